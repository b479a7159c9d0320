package rustapp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/conneroisu/trunkgo/internal/rewriter"
)

func TestResolveManifestPathDefaultsToSourceDir(t *testing.T) {
	got := resolveManifestPath(rewriter.LinkDescriptor{Attrs: map[string]string{}}, "/src")
	want := filepath.Join("/src", "Cargo.toml")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveManifestPathAppendsFilenameForDirectoryHref(t *testing.T) {
	got := resolveManifestPath(rewriter.LinkDescriptor{Attrs: map[string]string{"href": "crates/app"}}, "/src")
	want := filepath.Join("/src", "crates", "app", "Cargo.toml")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveManifestPathHonorsExplicitFilename(t *testing.T) {
	got := resolveManifestPath(rewriter.LinkDescriptor{Attrs: map[string]string{"href": "crates/app/Cargo.toml"}}, "/src")
	want := filepath.Join("/src", "crates", "app", "Cargo.toml")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestReadManifestParsesPackageName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Cargo.toml")
	if err := os.WriteFile(path, []byte("[package]\nname = \"demo-app\"\nversion = \"0.1.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	manifest, err := readManifest(path)
	if err != nil {
		t.Fatalf("readManifest: %v", err)
	}
	if manifest.Package.Name != "demo-app" {
		t.Errorf("got %q, want demo-app", manifest.Package.Name)
	}
}

func TestReadManifestMissingFileFails(t *testing.T) {
	_, err := readManifest(filepath.Join(t.TempDir(), "missing", "Cargo.toml"))
	if err == nil {
		t.Error("expected error for missing manifest")
	}
}
