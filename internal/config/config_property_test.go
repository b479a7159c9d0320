//go:build property

package config

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestPortValidationMatchesRange checks Validate's port bound against the
// full int16-ish domain gopter can generate, not just hand-picked cases.
func TestPortValidationMatchesRange(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2468)
	properties := gopter.NewProperties(parameters)

	properties.Property("Validate accepts iff port in [0,65535]", prop.ForAll(
		func(port int) bool {
			cfg := &Config{
				Build: BuildConfig{Target: "index.html", Minify: MinifyOnRelease, Dist: "dist"},
				Serve: ServeConfig{Port: port},
			}
			err := Validate(cfg)
			inRange := port >= 0 && port <= 65535
			return (err == nil) == inRange
		},
		gen.IntRange(-70000, 140000),
	))

	properties.TestingRun(t)
}
