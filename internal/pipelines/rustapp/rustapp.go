// Package rustapp implements the rust asset pipeline: cargo build to wasm,
// wasm-bindgen, optional wasm-opt, then hash/stage the results. When
// pctx.InjectScripts is set it splices a module-script tag into the page
// for type=main; for type=worker it splices nothing unless
// data-loader-shim is set, which adds a bootstrap script.
package rustapp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
	"github.com/conneroisu/trunkgo/internal/tools"
	"github.com/conneroisu/trunkgo/internal/validation"
)

// Runner implements pipeline.Runner for rewriter.KindRust.
type Runner struct {
	Tools              *tools.Manager
	WasmBindgen        tools.Descriptor
	WasmBindgenProbe   tools.VersionProbe
	WasmOpt            tools.Descriptor
	WasmOptProbe       tools.VersionProbe
}

func New(mgr *tools.Manager, wasmBindgen tools.Descriptor, wasmBindgenProbe tools.VersionProbe, wasmOpt tools.Descriptor, wasmOptProbe tools.VersionProbe) Runner {
	return Runner{
		Tools:            mgr,
		WasmBindgen:      wasmBindgen,
		WasmBindgenProbe: wasmBindgenProbe,
		WasmOpt:          wasmOpt,
		WasmOptProbe:     wasmOptProbe,
	}
}

func (r Runner) Run(ctx context.Context, d rewriter.LinkDescriptor, pctx pipeline.Context) (pipeline.Output, error) {
	manifestPath := resolveManifestPath(d, pctx.SourceDir)
	manifest, err := readManifest(manifestPath)
	if err != nil {
		return pipeline.Output{}, err
	}

	dataType, _ := d.Attr("data-type")
	if dataType == "" {
		dataType = "main"
	}
	if dataType != "main" && dataType != "worker" {
		return pipeline.Output{}, errors.DescriptorInvalid(fmt.Sprintf(`data-type must be "main" or "worker", got %q`, dataType))
	}

	targetPath, _ := d.Attr("data-target-path")
	if targetPath != "" {
		if err := validation.ValidateTargetPath(targetPath); err != nil {
			return pipeline.Output{}, errors.DescriptorInvalid(err.Error())
		}
	}

	bin, _ := d.Attr("data-bin")
	features, _ := d.Attr("data-cargo-features")
	noDefaultFeatures := d.AttrBool("data-cargo-no-default-features")
	allFeatures := d.AttrBool("data-cargo-all-features")

	cargoPath, err := exec.LookPath("cargo")
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeToolMissing, "cargo not found on PATH", err).WithContext("tool", "cargo")
	}

	opts := cargoBuildOptions{
		ManifestPath:      manifestPath,
		Release:           pctx.Profile == pipeline.ProfileRelease,
		Bin:               bin,
		Features:          features,
		NoDefaultFeatures: noDefaultFeatures,
		AllFeatures:       allFeatures,
	}

	wasmPath, err := cargoBuild(ctx, cargoPath, opts, bin, manifest.Package.Name)
	if err != nil {
		return pipeline.Output{}, err
	}

	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "reading cargo wasm output", err)
	}
	outName := "index"
	if pctx.Filehash {
		_, hexDigest := pipeline.HashedName("index.wasm", wasmBytes, true)
		outName = fmt.Sprintf("index-%s", hexDigest)
	}

	bindgenOutDir, err := os.MkdirTemp("", "trunkgo-wasm-bindgen-*")
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "creating wasm-bindgen scratch dir", err)
	}
	defer os.RemoveAll(bindgenOutDir)

	bgOpts := bindgenOptions{
		KeepDebug:      d.AttrBool("data-keep-debug"),
		NoDemangle:     d.AttrBool("data-no-demangle"),
		ReferenceTypes: d.AttrBool("data-reference-types"),
		WeakRefs:       d.AttrBool("data-weak-refs"),
		Typescript:     d.AttrBool("data-typescript"),
	}
	if target, ok := d.Attr("data-bindgen-target"); ok && target != "" {
		bgOpts.Target = target
	}

	if err := runBindgen(ctx, r.Tools, r.WasmBindgen, r.WasmBindgenProbe, wasmPath, bindgenOutDir, outName, bgOpts); err != nil {
		return pipeline.Output{}, err
	}

	loaderJS, err := os.ReadFile(bindgenLoaderPath(bindgenOutDir, outName))
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "reading wasm-bindgen JS loader", err)
	}
	outWasmPath := bindgenWasmPath(bindgenOutDir, outName)

	requestedLevel, _ := d.Attr("data-wasm-opt")
	level, skip, err := wasmOptLevel(requestedLevel, opts.Release)
	if err != nil {
		return pipeline.Output{}, err
	}
	if !skip {
		if bgOpts.KeepDebug {
			warn(pctx, "wasm-opt level requested alongside data-keep-debug; both will be honored, which may re-strip debug info", "level", level)
		}
		if err := runWasmOpt(ctx, r.Tools, r.WasmOpt, r.WasmOptProbe, outWasmPath, level); err != nil {
			return pipeline.Output{}, err
		}
	}

	outWasmBytes, err := os.ReadFile(outWasmPath)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "reading bindgen wasm output", err)
	}

	alg := pipeline.ParseIntegrityAlgorithm(attrValue(d, "data-integrity"))
	if pctx.NoSRI {
		alg = pipeline.IntegrityNone
	}

	// outName is already hash-qualified above (or left unhashed if
	// build.filehash is off), so staging must not re-hash it.
	stagingCtx := pctx
	stagingCtx.Filehash = false

	jsArtifact, err := pipeline.Stage(stagingCtx, targetPath, outName+".js", loaderJS, alg)
	if err != nil {
		return pipeline.Output{}, err
	}
	wasmArtifact, err := pipeline.Stage(stagingCtx, targetPath, outName+"_bg.wasm", outWasmBytes, alg)
	if err != nil {
		return pipeline.Output{}, err
	}
	artifacts := []pipeline.Artifact{jsArtifact, wasmArtifact}

	if snippets, err := stageSnippets(pctx, bindgenOutDir, targetPath); err != nil {
		return pipeline.Output{}, err
	} else {
		artifacts = append(artifacts, snippets...)
	}

	out := pipeline.Output{
		Artifacts: artifacts,
		Patch:     rewriter.Patch{Anchor: d.Anchor, HTML: ""},
	}

	if pctx.InjectScripts {
		switch dataType {
		case "worker":
			if d.AttrBool("data-loader-shim") {
				out.Patch.HTML = workerLoaderShim(jsArtifact.PublicPath, wasmArtifact.PublicPath)
			}
		default: // main
			out.HeadInjection = fmt.Sprintf(
				`<link rel="preload" href="%s" as="fetch" type="application/wasm" crossorigin>`+"\n"+
					`<link rel="modulepreload" href="%s">`,
				wasmArtifact.PublicPath, jsArtifact.PublicPath,
			)
			out.Patch.HTML = fmt.Sprintf(
				`<script type="module">import init from '%s';init('%s');</script>`,
				jsArtifact.PublicPath, wasmArtifact.PublicPath,
			)
		}
	}

	return out, nil
}

// workerLoaderShim bootstraps a classic (non-module) worker scope: it
// dynamically imports the ES-module loader wasm-bindgen generated and
// calls its default init export, since a plain Worker constructor can't
// load an ES module directly without this indirection.
func workerLoaderShim(jsPublicPath, wasmPublicPath string) string {
	return fmt.Sprintf(
		`<script>(async () => { const m = await import('%s'); await m.default('%s'); })();</script>`,
		jsPublicPath, wasmPublicPath,
	)
}

func attrValue(d rewriter.LinkDescriptor, name string) string {
	v, _ := d.Attr(name)
	return v
}

func warn(pctx pipeline.Context, msg string, kv ...interface{}) {
	if pctx.Logger != nil {
		pctx.Logger.Warnw(msg, kv...)
	}
}

// stageSnippets copies wasm-bindgen's generated JS snippet helpers verbatim
// (no hashing, no integrity): the generated loader imports them by their
// fixed relative path, so renaming them would break that reference.
func stageSnippets(pctx pipeline.Context, bindgenOutDir, targetPath string) ([]pipeline.Artifact, error) {
	snippetsDir := filepath.Join(bindgenOutDir, "snippets")
	if _, err := os.Stat(snippetsDir); err != nil {
		return nil, nil
	}

	var artifacts []pipeline.Artifact
	var walk func(dir, rel string) error
	walk = func(dir, rel string) error {
		ents, err := os.ReadDir(dir)
		if err != nil {
			return errors.Wrap(errors.TypeIO, "reading snippets dir", err)
		}
		for _, e := range ents {
			childRel := filepath.Join(rel, e.Name())
			if e.IsDir() {
				if err := walk(filepath.Join(dir, e.Name()), childRel); err != nil {
					return err
				}
				continue
			}
			data, err := os.ReadFile(filepath.Join(dir, e.Name()))
			if err != nil {
				return errors.Wrap(errors.TypeIO, "reading snippet file", err)
			}
			artifact, err := pipeline.Stage(pipeline.Context{
				StagingDir: pctx.StagingDir,
				PublicURL:  pctx.PublicURL,
				Filehash:   false,
				NoSRI:      true,
			}, filepath.Join(targetPath, "snippets", filepath.Dir(childRel)), filepath.Base(childRel), data, pipeline.IntegrityNone)
			if err != nil {
				return err
			}
			artifacts = append(artifacts, artifact)
		}
		return nil
	}

	if err := walk(snippetsDir, ""); err != nil {
		return nil, err
	}
	return artifacts, nil
}
