package icon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

func TestRunStagesAndPatchesIconLink(t *testing.T) {
	srcDir := t.TempDir()
	stagingDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "favicon.png"), []byte("fake-png-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := rewriter.LinkDescriptor{Anchor: "x", Attrs: map[string]string{"href": "favicon.png"}}
	pctx := pipeline.Context{SourceDir: srcDir, StagingDir: stagingDir}

	out, err := New().Run(context.Background(), d, pctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.Patch.HTML, `rel="icon"`) {
		t.Errorf("expected icon link, got %q", out.Patch.HTML)
	}
	if len(out.Artifacts) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(out.Artifacts))
	}
}

func TestRunMissingHrefFails(t *testing.T) {
	d := rewriter.LinkDescriptor{Anchor: "x", Attrs: map[string]string{}}
	if _, err := New().Run(context.Background(), d, pipeline.Context{}); err == nil {
		t.Error("expected error for missing href")
	}
}
