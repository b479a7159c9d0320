package rustapp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/tools"
)

// bindgenOptions carries the wasm-bindgen flag surface spec.md §4.3 names.
type bindgenOptions struct {
	KeepDebug      bool
	NoDemangle     bool
	ReferenceTypes bool
	WeakRefs       bool
	Typescript     bool
	Target         string // defaults to "web"
}

// runBindgen invokes wasm-bindgen against wasmPath, writing its outputs
// (loader JS, processed wasm, optional snippets dir) into outDir under
// outName, per original_source's wasmbg.rs/rust_app.rs invocation shape.
func runBindgen(ctx context.Context, mgr *tools.Manager, descriptor tools.Descriptor, probe tools.VersionProbe, wasmPath, outDir, outName string, opts bindgenOptions) error {
	resolved, err := mgr.Resolve(ctx, descriptor, probe)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrap(errors.TypeIO, "creating wasm-bindgen output dir", err)
	}

	target := opts.Target
	if target == "" {
		target = "web"
	}

	args := []string{
		fmt.Sprintf("--target=%s", target),
		fmt.Sprintf("--out-dir=%s", outDir),
		fmt.Sprintf("--out-name=%s", outName),
	}
	if !opts.Typescript {
		args = append(args, "--no-typescript")
	}
	if opts.KeepDebug {
		args = append(args, "--keep-debug")
	}
	if opts.NoDemangle {
		args = append(args, "--no-demangle")
	}
	if opts.ReferenceTypes {
		args = append(args, "--reference-types")
	}
	if opts.WeakRefs {
		args = append(args, "--weak-refs")
	}
	args = append(args, wasmPath)

	return tools.Invoke(ctx, "wasm-bindgen", resolved.Path, args, nil, nil)
}

func bindgenLoaderPath(outDir, outName string) string {
	return filepath.Join(outDir, outName+".js")
}

func bindgenWasmPath(outDir, outName string) string {
	return filepath.Join(outDir, outName+"_bg.wasm")
}
