package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStageWritesHashedFileAndIntegrity(t *testing.T) {
	dir := t.TempDir()
	ctx := Context{StagingDir: dir, Filehash: true}

	artifact, err := Stage(ctx, "", "app.css", []byte("body{color:red}"), IntegritySHA384)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if artifact.Integrity == "" {
		t.Error("expected integrity string")
	}
	if _, err := os.Stat(artifact.StagingPath); err != nil {
		t.Errorf("expected staged file to exist: %v", err)
	}
	if filepath.Base(artifact.StagingPath) == "app.css" {
		t.Error("expected hashed filename, got unhashed")
	}
}

func TestStageNoSRIProducesEmptyIntegrity(t *testing.T) {
	dir := t.TempDir()
	ctx := Context{StagingDir: dir, NoSRI: true}

	artifact, err := Stage(ctx, "", "app.css", []byte("body{color:red}"), IntegritySHA384)
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}
	if artifact.Integrity != "" {
		t.Errorf("expected empty integrity when NoSRI set, got %q", artifact.Integrity)
	}
}

func TestStageDetectsCollision(t *testing.T) {
	dir := t.TempDir()
	ctx := Context{StagingDir: dir}

	if _, err := Stage(ctx, "assets", "a.txt", []byte("one"), IntegrityNone); err != nil {
		t.Fatalf("first stage: %v", err)
	}
	if _, err := Stage(ctx, "assets", "a.txt", []byte("two"), IntegrityNone); err == nil {
		t.Error("expected artifact-collision error on duplicate staging path")
	}
}
