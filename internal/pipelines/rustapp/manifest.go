package rustapp

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

// cargoManifest is the subset of Cargo.toml this pipeline reads: the
// package name, used as the default artifact stem and to disambiguate
// compiler-artifact messages when no explicit data-bin is given.
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
}

// resolveManifestPath builds the path to the target Cargo.toml per
// spec.md §4.3's "rust pipeline" resolution rule: explicit href (relative
// to the entry HTML's directory unless absolute), nearest neighbor
// defaulting to "Cargo.toml" if href doesn't already name the file.
func resolveManifestPath(d rewriter.LinkDescriptor, sourceDir string) string {
	href, ok := d.Attr("href")
	if !ok || href == "" {
		return filepath.Join(sourceDir, "Cargo.toml")
	}

	path := filepath.FromSlash(href)
	if !filepath.IsAbs(path) {
		path = filepath.Join(sourceDir, path)
	}
	if filepath.Base(path) != "Cargo.toml" {
		path = filepath.Join(path, "Cargo.toml")
	}
	return path
}

func readManifest(path string) (cargoManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cargoManifest{}, errors.Wrap(errors.TypeSourceMissing, "reading Cargo.toml", err).WithContext("path", path)
	}

	var manifest cargoManifest
	if err := toml.Unmarshal(data, &manifest); err != nil {
		return cargoManifest{}, errors.Wrap(errors.TypeConfigInvalid, "parsing Cargo.toml", err).WithContext("path", path)
	}
	return manifest, nil
}
