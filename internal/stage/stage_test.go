package stage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPromoteMovesNewFilesAndDeletesStaleOnes(t *testing.T) {
	root := t.TempDir()
	distDir := filepath.Join(root, "dist")
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(distDir, "stale.txt"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(distDir, "index.html"), []byte("old html"), 0o644); err != nil {
		t.Fatal(err)
	}

	stagingDir, err := NewStagingDir(distDir)
	if err != nil {
		t.Fatalf("NewStagingDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stagingDir, "index.html"), []byte("new html"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(stagingDir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stagingDir, "assets", "app-abc123.js"), []byte("js"), 0o644); err != nil {
		t.Fatal(err)
	}

	manifest := []string{"index.html", "assets/app-abc123.js"}
	if err := Promote(stagingDir, distDir, manifest); err != nil {
		t.Fatalf("Promote: %v", err)
	}

	if _, err := os.Stat(filepath.Join(distDir, "stale.txt")); !os.IsNotExist(err) {
		t.Errorf("expected stale.txt to be removed, stat err=%v", err)
	}
	got, err := os.ReadFile(filepath.Join(distDir, "index.html"))
	if err != nil {
		t.Fatalf("reading promoted index.html: %v", err)
	}
	if string(got) != "new html" {
		t.Errorf("got %q, want %q", got, "new html")
	}
	got, err = os.ReadFile(filepath.Join(distDir, "assets", "app-abc123.js"))
	if err != nil {
		t.Fatalf("reading promoted asset: %v", err)
	}
	if string(got) != "js" {
		t.Errorf("got %q, want %q", got, "js")
	}
	if _, err := os.Stat(stagingDir); !os.IsNotExist(err) {
		t.Errorf("expected staging dir to be removed after promote, stat err=%v", err)
	}
}

func TestPromoteCreatesDistWhenMissing(t *testing.T) {
	root := t.TempDir()
	distDir := filepath.Join(root, "dist")
	stagingDir, err := NewStagingDir(distDir)
	if err != nil {
		t.Fatalf("NewStagingDir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(stagingDir, "index.html"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := Promote(stagingDir, distDir, []string{"index.html"}); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if _, err := os.Stat(filepath.Join(distDir, "index.html")); err != nil {
		t.Errorf("expected dist/index.html to exist: %v", err)
	}
}

func TestDiscardRemovesStagingDir(t *testing.T) {
	root := t.TempDir()
	distDir := filepath.Join(root, "dist")
	stagingDir, err := NewStagingDir(distDir)
	if err != nil {
		t.Fatalf("NewStagingDir: %v", err)
	}
	if err := Discard(stagingDir); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(stagingDir); !os.IsNotExist(err) {
		t.Errorf("expected staging dir removed, stat err=%v", err)
	}
}

func TestPruneStaleRemovesNowEmptyDirectories(t *testing.T) {
	root := t.TempDir()
	distDir := filepath.Join(root, "dist")
	if err := os.MkdirAll(filepath.Join(distDir, "old", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(distDir, "old", "nested", "f.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	stagingDir, err := NewStagingDir(distDir)
	if err != nil {
		t.Fatalf("NewStagingDir: %v", err)
	}
	if err := Promote(stagingDir, distDir, nil); err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if _, err := os.Stat(filepath.Join(distDir, "old")); !os.IsNotExist(err) {
		t.Errorf("expected old/ directory tree removed, stat err=%v", err)
	}
}
