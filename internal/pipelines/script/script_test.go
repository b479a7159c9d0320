package script

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

func TestRunStagesAndRewritesScriptTag(t *testing.T) {
	srcDir := t.TempDir()
	stagingDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "main.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	d := rewriter.LinkDescriptor{Anchor: "x", Attrs: map[string]string{"src": "main.js", "async": "true"}}
	pctx := pipeline.Context{SourceDir: srcDir, StagingDir: stagingDir, Filehash: true}

	out, err := New().Run(context.Background(), d, pctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.Patch.HTML, `async="true"`) {
		t.Errorf("expected carried-through attribute, got %q", out.Patch.HTML)
	}
	if !strings.HasPrefix(out.Patch.HTML, "<script src=") {
		t.Errorf("expected rewritten script tag, got %q", out.Patch.HTML)
	}
}

func TestRunMissingSrcFails(t *testing.T) {
	_, err := New().Run(context.Background(), rewriter.LinkDescriptor{Attrs: map[string]string{}}, pipeline.Context{})
	if err == nil {
		t.Error("expected error for missing src")
	}
}

func TestMinifyDropsBlankLinesAndLineComments(t *testing.T) {
	in := []byte("// header\nconsole.log(1);\n\n   \nconsole.log(2);\n")
	out := string(Minify(in))
	if strings.Contains(out, "header") {
		t.Errorf("expected comment dropped, got %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected blank lines collapsed, got %q", out)
	}
}
