package rustapp

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

func probe(output string) (string, bool) { return strings.TrimSpace(output), true }

// writeFakeToolchain installs stand-in cargo/wasm-bindgen/wasm-opt
// executables on PATH so the pipeline can be exercised without a real Rust
// or WASM toolchain: cargo emits one compiler-artifact JSON message naming
// a synthetic .wasm file it also creates; wasm-bindgen copies that file
// into its --out-dir under --out-name, plus a matching ".js" loader;
// wasm-opt copies its input to its --output path unchanged.
func writeFakeToolchain(t *testing.T, crateDir string) {
	t.Helper()
	dir := t.TempDir()

	wasmOut := filepath.Join(crateDir, "target", "wasm32-unknown-unknown", "debug", "demo.wasm")
	if err := os.MkdirAll(filepath.Dir(wasmOut), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(wasmOut, []byte("\x00asm-fake-binary"), 0o644); err != nil {
		t.Fatal(err)
	}

	cargoScript := "#!/bin/sh\n" +
		"case \"$*\" in\n" +
		"  *--message-format=json*)\n" +
		"    printf '{\"reason\":\"compiler-artifact\",\"target\":{\"name\":\"demo\",\"kind\":[\"cdylib\"]},\"filenames\":[\"" + wasmOut + "\"]}\\n'\n" +
		"    printf '{\"reason\":\"build-finished\",\"success\":true}\\n'\n" +
		"    ;;\n" +
		"esac\n" +
		"exit 0\n"
	if err := os.WriteFile(filepath.Join(dir, "cargo"), []byte(cargoScript), 0o755); err != nil {
		t.Fatal(err)
	}

	bindgenScript := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then echo \"0.2.92\"; exit 0; fi\n" +
		"out_dir=\"\"\nout_name=\"\"\nwasm=\"\"\n" +
		"for arg in \"$@\"; do\n" +
		"  case \"$arg\" in\n" +
		"    --out-dir=*) out_dir=\"${arg#--out-dir=}\" ;;\n" +
		"    --out-name=*) out_name=\"${arg#--out-name=}\" ;;\n" +
		"    *.wasm) wasm=\"$arg\" ;;\n" +
		"  esac\n" +
		"done\n" +
		"echo 'export default function init(){}' > \"$out_dir/$out_name.js\"\n" +
		"cp \"$wasm\" \"$out_dir/${out_name}_bg.wasm\"\n"
	if err := os.WriteFile(filepath.Join(dir, "wasm-bindgen"), []byte(bindgenScript), 0o755); err != nil {
		t.Fatal(err)
	}

	wasmOptScript := "#!/bin/sh\n" +
		"if [ \"$1\" = \"--version\" ]; then echo \"version_116\"; exit 0; fi\n" +
		"out=\"\"\ninput=\"\"\n" +
		"for arg in \"$@\"; do\n" +
		"  case \"$arg\" in\n" +
		"    --output=*) out=\"${arg#--output=}\" ;;\n" +
		"    -O*) ;;\n" +
		"    *) input=\"$arg\" ;;\n" +
		"  esac\n" +
		"done\n" +
		"cp \"$input\" \"$out\"\n"
	if err := os.WriteFile(filepath.Join(dir, "wasm-opt"), []byte(wasmOptScript), 0o755); err != nil {
		t.Fatal(err)
	}

	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func newRunner(t *testing.T) Runner {
	mgr := tools.New(t.TempDir(), true, fakeGetter{})
	return New(mgr,
		tools.Descriptor{Name: tools.WasmBindgen, Version: "*"}, probe,
		tools.Descriptor{Name: tools.WasmOpt, Version: "*"}, probe,
	)
}

func TestRunMainProducesModuleScriptAndPreload(t *testing.T) {
	srcDir := t.TempDir()
	stagingDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "Cargo.toml"), []byte("[package]\nname = \"demo\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFakeToolchain(t, srcDir)

	runner := newRunner(t)
	d := rewriter.LinkDescriptor{Anchor: "x", Attrs: map[string]string{}}
	pctx := pipeline.Context{SourceDir: srcDir, StagingDir: stagingDir, Filehash: true, Profile: pipeline.ProfileDebug, InjectScripts: true}

	out, err := runner.Run(context.Background(), d, pctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.Patch.HTML, `<script type="module">`) {
		t.Errorf("expected module script patch, got %q", out.Patch.HTML)
	}
	if !strings.Contains(out.HeadInjection, `rel="modulepreload"`) {
		t.Errorf("expected modulepreload head injection, got %q", out.HeadInjection)
	}
	if len(out.Artifacts) != 2 {
		t.Fatalf("expected js+wasm artifacts, got %d", len(out.Artifacts))
	}
}

func TestRunWorkerWithoutLoaderShimHasNoPatch(t *testing.T) {
	srcDir := t.TempDir()
	stagingDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "Cargo.toml"), []byte("[package]\nname = \"demo\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFakeToolchain(t, srcDir)

	runner := newRunner(t)
	d := rewriter.LinkDescriptor{Anchor: "x", Attrs: map[string]string{"data-type": "worker"}}
	pctx := pipeline.Context{SourceDir: srcDir, StagingDir: stagingDir, Filehash: true, Profile: pipeline.ProfileDebug}

	out, err := runner.Run(context.Background(), d, pctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.Patch.HTML != "" {
		t.Errorf("expected no HTML patch for worker without loader shim, got %q", out.Patch.HTML)
	}
	if len(out.Artifacts) != 2 {
		t.Fatalf("expected js+wasm artifacts still staged, got %d", len(out.Artifacts))
	}
}

func TestRunWorkerWithLoaderShimEmitsBootstrapScript(t *testing.T) {
	srcDir := t.TempDir()
	stagingDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "Cargo.toml"), []byte("[package]\nname = \"demo\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeFakeToolchain(t, srcDir)

	runner := newRunner(t)
	d := rewriter.LinkDescriptor{Anchor: "x", Attrs: map[string]string{"data-type": "worker", "data-loader-shim": "true"}}
	pctx := pipeline.Context{SourceDir: srcDir, StagingDir: stagingDir, Filehash: true, Profile: pipeline.ProfileDebug, InjectScripts: true}

	out, err := runner.Run(context.Background(), d, pctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.Patch.HTML, "import(") {
		t.Errorf("expected dynamic-import bootstrap shim, got %q", out.Patch.HTML)
	}
}

func TestRunRejectsInvalidDataType(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "Cargo.toml"), []byte("[package]\nname = \"demo\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runner := newRunner(t)
	d := rewriter.LinkDescriptor{Anchor: "x", Attrs: map[string]string{"data-type": "bogus"}}
	_, err := runner.Run(context.Background(), d, pipeline.Context{SourceDir: srcDir, StagingDir: t.TempDir()})
	if err == nil {
		t.Error("expected error for invalid data-type")
	}
}
