package inline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

func run(t *testing.T, href, fileContent string, attrs map[string]string) (pipeline.Output, error) {
	t.Helper()
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, href), []byte(fileContent), 0o644); err != nil {
		t.Fatal(err)
	}
	merged := map[string]string{"href": href}
	for k, v := range attrs {
		merged[k] = v
	}
	d := rewriter.LinkDescriptor{Anchor: "x", Attrs: merged}
	return New().Run(context.Background(), d, pipeline.Context{SourceDir: srcDir})
}

func TestRunInfersTypeFromExtension(t *testing.T) {
	out, err := run(t, "a.css", "body{color:red}", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Patch.HTML != "<style>body{color:red}</style>" {
		t.Errorf("got %q", out.Patch.HTML)
	}
}

func TestRunExplicitTypeOverridesExtension(t *testing.T) {
	out, err := run(t, "a.txt", "console.log(1)", map[string]string{"data-type": "js"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Patch.HTML != "<script>console.log(1)</script>" {
		t.Errorf("got %q", out.Patch.HTML)
	}
}

func TestRunModuleType(t *testing.T) {
	out, err := run(t, "a.mjs", "export const x = 1;", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Patch.HTML != `<script type="module">export const x = 1;</script>` {
		t.Errorf("got %q", out.Patch.HTML)
	}
}

func TestRunUnknownTypeFails(t *testing.T) {
	_, err := run(t, "a.xyz", "content", nil)
	if err == nil {
		t.Error("expected error for unknown inline type")
	}
}

func TestRunNoArtifactsStaged(t *testing.T) {
	out, err := run(t, "a.html", "<p>hi</p>", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Artifacts) != 0 {
		t.Errorf("expected no staged artifacts for inline pipeline, got %d", len(out.Artifacts))
	}
}
