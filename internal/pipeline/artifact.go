package pipeline

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/trunkgo/internal/errors"
)

// JoinPublicURL prefixes rel (a staging-relative, forward-slash path) with
// publicURL, per spec.md §4's "every injected URL is prefixed with the
// configured public_url" rule (glossary: public_url is "baked into emitted
// HTML paths"). An empty publicURL behaves like "/".
func JoinPublicURL(publicURL, rel string) string {
	base := publicURL
	if base == "" {
		base = "/"
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.TrimPrefix(rel, "/")
}

// Stage writes data into ctx.StagingDir under targetDir/baseName, applying
// the Filehash and SRI policies from ctx, and returns the resulting
// Artifact. targetDir may be "" for the staging root. alg selects the
// integrity digest; pass IntegrityNone when ctx.NoSRI is set.
func Stage(ctx Context, targetDir, baseName string, data []byte, alg IntegrityAlgorithm) (Artifact, error) {
	name, hash := HashedName(baseName, data, ctx.Filehash)

	publicPath := JoinPublicURL(ctx.PublicURL, filepath.ToSlash(filepath.Join(targetDir, name)))
	stagingPath := filepath.Join(ctx.StagingDir, targetDir, name)

	if err := os.MkdirAll(filepath.Dir(stagingPath), 0o755); err != nil {
		return Artifact{}, errors.Wrap(errors.TypeIO, "creating staging directory", err)
	}
	if _, err := os.Stat(stagingPath); err == nil {
		return Artifact{}, errors.ArtifactCollision(stagingPath)
	}
	if err := os.WriteFile(stagingPath, data, 0o644); err != nil {
		return Artifact{}, errors.Wrap(errors.TypeIO, "writing artifact", err)
	}

	integrity := ""
	if !ctx.NoSRI {
		integrity = SRI(alg, data)
	}

	return Artifact{
		StagingPath: stagingPath,
		PublicPath:  publicPath,
		Hash:        hash,
		Integrity:   integrity,
		Size:        int64(len(data)),
	}, nil
}
