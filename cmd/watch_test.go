package cmd

import (
	"testing"

	"github.com/conneroisu/trunkgo/internal/config"
)

func TestSourceDirOfUsesTargetsParent(t *testing.T) {
	cfg := &config.Config{Build: config.BuildConfig{Target: "web/index.html"}}
	if got := sourceDirOf(cfg); got != "web" {
		t.Errorf("got %q, want web", got)
	}
}

func TestSourceDirOfDefaultsToCurrentDir(t *testing.T) {
	cfg := &config.Config{Build: config.BuildConfig{Target: "index.html"}}
	if got := sourceDirOf(cfg); got != "." {
		t.Errorf("got %q, want .", got)
	}
}

func TestToolsCacheDirEndsInTrunk(t *testing.T) {
	dir, err := toolsCacheDir()
	if err != nil {
		t.Fatalf("toolsCacheDir: %v", err)
	}
	if got, want := dir[len(dir)-len("trunk"):], "trunk"; got != want {
		t.Errorf("got %q, want a path ending in %q", dir, want)
	}
}
