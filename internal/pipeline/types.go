// Package pipeline drives a single build: it plans one Task per HTML link
// descriptor, runs them concurrently, and assembles their outputs into the
// final HTML written to the staging directory.
package pipeline

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/conneroisu/trunkgo/internal/config"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

// Profile selects debug or release build settings.
type Profile string

const (
	ProfileDebug   Profile = "debug"
	ProfileRelease Profile = "release"
)

// Context is the runtime context shared by every task in a build.
type Context struct {
	SourceDir      string
	PublicURL      string
	StagingDir     string
	Profile        Profile
	Minify         config.Minify
	Filehash       bool
	NoSRI          bool
	InjectScripts  bool
	PatternScript  string
	PatternPreload string
	Offline        bool
	Logger         Logger
}

// Logger is the subset of a structured logger pipelines need.
type Logger interface {
	Warnw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
}

// ShouldMinify reports whether this context's minify policy applies to the
// current build profile.
func (c Context) ShouldMinify() bool {
	switch c.Minify {
	case config.MinifyAlways:
		return true
	case config.MinifyOnRelease:
		return c.Profile == ProfileRelease
	default:
		return false
	}
}

// Task is one ready-to-execute pipeline unit: exactly one descriptor plus
// the shared runtime context.
type Task struct {
	Descriptor rewriter.LinkDescriptor
	Context    Context
}

// Artifact is a file produced into the staging directory.
type Artifact struct {
	StagingPath string
	PublicPath  string
	Hash        string
	Integrity   string
	Size        int64
}

// Output is what a task returns: its artifacts, the HTML patch to apply at
// its descriptor's anchor, and a dependency key for incremental decisions.
type Output struct {
	Artifacts []Artifact
	Patch     rewriter.Patch
	// HeadInjection and BodyInjection carry HTML injected outside the
	// anchor-patch mechanism (spec.md §4.2's "not via insertion anchors"
	// case, used by the rust pipeline's loader-script/preload injection).
	HeadInjection string
	BodyInjection string
	DependencyKey string
}

// Runner is the capability every asset pipeline package implements.
type Runner interface {
	Run(ctx context.Context, descriptor rewriter.LinkDescriptor, pctx Context) (Output, error)
}

// IntegrityAlgorithm names a subresource-integrity digest algorithm.
type IntegrityAlgorithm string

const (
	IntegrityNone   IntegrityAlgorithm = "none"
	IntegritySHA256 IntegrityAlgorithm = "sha256"
	IntegritySHA384 IntegrityAlgorithm = "sha384"
	IntegritySHA512 IntegrityAlgorithm = "sha512"
)

// ParseIntegrityAlgorithm decodes a `data-integrity` attribute value,
// defaulting to sha384 as the original's implicit default when the
// attribute is absent but integrity stamping is otherwise requested.
func ParseIntegrityAlgorithm(v string) IntegrityAlgorithm {
	switch IntegrityAlgorithm(v) {
	case IntegrityNone, IntegritySHA256, IntegritySHA384, IntegritySHA512:
		return IntegrityAlgorithm(v)
	default:
		return IntegritySHA384
	}
}

// HashedName inserts the first 16 hex characters of SHA-256(data) between
// the base name and extension of name, per spec.md §8's hashed-artifact
// invariant. If filehash is false, name is returned unchanged.
func HashedName(name string, data []byte, filehash bool) (hashedName, hexDigest string) {
	sum := sha256.Sum256(data)
	hexDigest = hex.EncodeToString(sum[:8])
	if !filehash {
		return name, hexDigest
	}
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return fmt.Sprintf("%s-%s%s", base, hexDigest, ext), hexDigest
}

// SRI computes the `integrity` attribute value for data under alg. It
// returns "" for IntegrityNone.
func SRI(alg IntegrityAlgorithm, data []byte) string {
	var sum []byte
	switch alg {
	case IntegritySHA256:
		s := sha256.Sum256(data)
		sum = s[:]
	case IntegritySHA384:
		s := sha512.Sum384(data)
		sum = s[:]
	case IntegritySHA512:
		s := sha512.Sum512(data)
		sum = s[:]
	default:
		return ""
	}
	return fmt.Sprintf("%s-%s", alg, base64.StdEncoding.EncodeToString(sum))
}
