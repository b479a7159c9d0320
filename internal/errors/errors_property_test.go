//go:build property

package errors

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestCollectorLastSetWins checks the quantified invariant that Collector
// always reflects exactly the most recent Set call, never accumulating
// stale errors across builds (spec.md's atomicity/overlay semantics).
func TestCollectorLastSetWins(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1357)
	properties := gopter.NewProperties(parameters)

	properties.Property("Set replaces, never appends", prop.ForAll(
		func(messages []string) bool {
			c := NewCollector()
			for _, m := range messages {
				c.Set(New(TypeToolFailed, m))
			}
			if len(messages) == 0 {
				return !c.HasErrors()
			}
			events := c.Events()
			return len(events) == 1 && events[0].Message == New(TypeToolFailed, messages[len(messages)-1]).Error()
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
