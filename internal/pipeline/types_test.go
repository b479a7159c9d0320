package pipeline

import (
	"strings"
	"testing"

	"github.com/conneroisu/trunkgo/internal/config"
)

func TestShouldMinify(t *testing.T) {
	cases := []struct {
		policy  config.Minify
		profile Profile
		want    bool
	}{
		{config.MinifyNever, ProfileRelease, false},
		{config.MinifyAlways, ProfileDebug, true},
		{config.MinifyOnRelease, ProfileRelease, true},
		{config.MinifyOnRelease, ProfileDebug, false},
	}
	for _, c := range cases {
		ctx := Context{Minify: c.policy, Profile: c.profile}
		if got := ctx.ShouldMinify(); got != c.want {
			t.Errorf("policy=%s profile=%s: got %v, want %v", c.policy, c.profile, got, c.want)
		}
	}
}

func TestHashedNameInsertsDigestBeforeExtension(t *testing.T) {
	name, digest := HashedName("app.wasm", []byte("hello world"), true)
	if !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".wasm") {
		t.Errorf("HashedName = %q, want app-<hash>.wasm shape", name)
	}
	if len(digest) != 16 {
		t.Errorf("digest length = %d, want 16", len(digest))
	}
	if !strings.Contains(name, digest) {
		t.Errorf("expected hashed name %q to contain digest %q", name, digest)
	}
}

func TestHashedNameNoopWhenFilehashDisabled(t *testing.T) {
	name, _ := HashedName("app.wasm", []byte("hello world"), false)
	if name != "app.wasm" {
		t.Errorf("HashedName with filehash=false = %q, want unchanged", name)
	}
}

func TestSRIProducesAlgorithmPrefix(t *testing.T) {
	for _, alg := range []IntegrityAlgorithm{IntegritySHA256, IntegritySHA384, IntegritySHA512} {
		v := SRI(alg, []byte("payload"))
		if !strings.HasPrefix(v, string(alg)+"-") {
			t.Errorf("SRI(%s) = %q, want prefix %q", alg, v, alg)
		}
	}
	if SRI(IntegrityNone, []byte("payload")) != "" {
		t.Error("expected empty SRI for IntegrityNone")
	}
}

func TestParseIntegrityAlgorithmDefaultsToSHA384(t *testing.T) {
	if got := ParseIntegrityAlgorithm(""); got != IntegritySHA384 {
		t.Errorf("ParseIntegrityAlgorithm(\"\") = %q, want sha384", got)
	}
	if got := ParseIntegrityAlgorithm("sha256"); got != IntegritySHA256 {
		t.Errorf("ParseIntegrityAlgorithm(sha256) = %q, want sha256", got)
	}
}
