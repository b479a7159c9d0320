package tailwind

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
	"github.com/conneroisu/trunkgo/internal/tools"
)

type fakeGetter struct{}

func (fakeGetter) Get(_ context.Context, _ string) ([]byte, error) { return nil, os.ErrNotExist }

func writeFakeTailwind(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "tailwindcss")
	script := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then echo \"3.4.1\"; exit 0; fi\n" +
		"in=\"$2\"\nout=\"$4\"\ncp \"$in\" \"$out\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func probe(output string) (string, bool) { return strings.TrimSpace(output), true }

func TestRunCompilesStagesAndPatchesStylesheet(t *testing.T) {
	writeFakeTailwind(t)
	srcDir := t.TempDir()
	stagingDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "style.css"), []byte("@tailwind base;"), 0o644); err != nil {
		t.Fatal(err)
	}

	mgr := tools.New(t.TempDir(), true, fakeGetter{})
	runner := New(mgr, tools.Descriptor{Name: tools.TailwindCSS, Version: "*"}, probe)

	d := rewriter.LinkDescriptor{Anchor: "x", Attrs: map[string]string{"href": "style.css"}}
	pctx := pipeline.Context{SourceDir: srcDir, StagingDir: stagingDir, Filehash: true}

	out, err := runner.Run(context.Background(), d, pctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.Patch.HTML, `rel="stylesheet"`) {
		t.Errorf("expected stylesheet link, got %q", out.Patch.HTML)
	}
	if len(out.Artifacts) != 1 {
		t.Fatalf("expected one artifact, got %d", len(out.Artifacts))
	}
}

func TestRunMissingHrefFails(t *testing.T) {
	mgr := tools.New(t.TempDir(), true, fakeGetter{})
	runner := New(mgr, tools.Descriptor{Name: tools.TailwindCSS, Version: "*"}, probe)
	_, err := runner.Run(context.Background(), rewriter.LinkDescriptor{Attrs: map[string]string{}}, pipeline.Context{})
	if err == nil {
		t.Error("expected error for missing href")
	}
}
