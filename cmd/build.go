package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conneroisu/trunkgo/internal/config"
	trunkerrors "github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/hooks"
	"github.com/conneroisu/trunkgo/internal/logging"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/pipelines/copydir"
	"github.com/conneroisu/trunkgo/internal/pipelines/copyfile"
	"github.com/conneroisu/trunkgo/internal/pipelines/css"
	"github.com/conneroisu/trunkgo/internal/pipelines/icon"
	"github.com/conneroisu/trunkgo/internal/pipelines/inline"
	"github.com/conneroisu/trunkgo/internal/pipelines/rustapp"
	"github.com/conneroisu/trunkgo/internal/pipelines/sass"
	"github.com/conneroisu/trunkgo/internal/pipelines/script"
	"github.com/conneroisu/trunkgo/internal/pipelines/tailwind"
	"github.com/conneroisu/trunkgo/internal/rewriter"
	"github.com/conneroisu/trunkgo/internal/stage"
	"github.com/conneroisu/trunkgo/internal/tools"
	"golang.org/x/sync/errgroup"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one build, then exit",
	RunE:  runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().Bool("release", false, "build in release profile (enables on_release minification)")
	_ = v.BindPFlag("build.release", buildCmd.Flags().Lookup("release"))
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	printConfigFileUsed()

	logger, err := logging.New(logLevel())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	result, err := build(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	fmt.Printf("🎉 build finished: %d artifacts staged into %s\n", len(result.Artifacts), cfg.Build.Dist)
	return nil
}

// buildDeps holds everything a build needs to run, built once per process
// and reused across every rebuild in watch/serve mode.
type buildDeps struct {
	cfg      *config.Config
	dispatch pipeline.Dispatch
	toolsMgr *tools.Manager
}

func newBuildDeps(cfg *config.Config) (*buildDeps, error) {
	cacheDir, err := toolsCacheDir()
	if err != nil {
		return nil, err
	}
	mgr := tools.New(cacheDir, cfg.Build.Offline, tools.NewHTTPGetter(2*time.Minute))

	sassDescriptor, sassProbe, err := tools.DescriptorFor(tools.Sass, "")
	if err != nil {
		return nil, fmt.Errorf("resolving sass tool descriptor: %w", err)
	}
	tailwindDescriptor, tailwindProbe, err := tools.DescriptorFor(tools.TailwindCSS, "")
	if err != nil {
		return nil, fmt.Errorf("resolving tailwindcss tool descriptor: %w", err)
	}
	wasmBindgenDescriptor, wasmBindgenProbe, err := tools.DescriptorFor(tools.WasmBindgen, "")
	if err != nil {
		return nil, fmt.Errorf("resolving wasm-bindgen tool descriptor: %w", err)
	}
	wasmOptDescriptor, wasmOptProbe, err := tools.DescriptorFor(tools.WasmOpt, "")
	if err != nil {
		return nil, fmt.Errorf("resolving wasm-opt tool descriptor: %w", err)
	}

	dispatch := pipeline.Dispatch{
		rewriter.KindCSS:         css.New(),
		rewriter.KindIcon:        icon.New(),
		rewriter.KindInline:      inline.New(),
		rewriter.KindCopyFile:    copyfile.New(),
		rewriter.KindCopyDir:     copydir.New(),
		rewriter.KindScript:      script.New(),
		rewriter.KindSass:        sass.New(mgr, sassDescriptor, sassProbe),
		rewriter.KindTailwindCSS: tailwind.New(mgr, tailwindDescriptor, tailwindProbe),
		rewriter.KindRust:        rustapp.New(mgr, wasmBindgenDescriptor, wasmBindgenProbe, wasmOptDescriptor, wasmOptProbe),
	}

	return &buildDeps{cfg: cfg, dispatch: dispatch, toolsMgr: mgr}, nil
}

func toolsCacheDir() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(dir, "trunk"), nil
}

// build runs a full pre_build → parse+pipeline+build-hooks → post_build →
// promote cycle, per spec.md §6's hook-timing rules.
func build(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (pipeline.Result, error) {
	deps, err := newBuildDeps(cfg)
	if err != nil {
		return pipeline.Result{}, err
	}
	return deps.run(ctx, logger)
}

func (d *buildDeps) run(ctx context.Context, logger *zap.SugaredLogger) (pipeline.Result, error) {
	cfg := d.cfg
	sourceDir := filepath.Dir(cfg.Build.Target)
	if sourceDir == "" {
		sourceDir = "."
	}

	profile := pipeline.ProfileDebug
	if cfg.Build.Release {
		profile = pipeline.ProfileRelease
	}

	env := hooks.Env{
		Profile:   string(profile),
		HTMLFile:  cfg.Build.Target,
		SourceDir: sourceDir,
		DistDir:   cfg.Build.Dist,
		PublicURL: cfg.Build.PublicURL,
	}

	if err := hooks.Run(ctx, config.HookPreBuild, cfg.Hooks, sourceDir, env, logger); err != nil {
		return pipeline.Result{}, err
	}

	f, err := os.Open(cfg.Build.Target)
	if err != nil {
		return pipeline.Result{}, trunkerrors.Wrap(trunkerrors.TypeIO, "opening entry HTML", err)
	}
	entry, err := rewriter.Parse(f, sourceDir, func(p string) bool {
		_, statErr := os.Stat(filepath.Join(sourceDir, p))
		return statErr == nil
	}, func(desc rewriter.LinkDescriptor, path string) {
		logger.Warnw("referenced asset not found", "kind", desc.Kind, "path", path)
	})
	f.Close()
	if err != nil {
		return pipeline.Result{}, err
	}

	stagingDir, err := stage.NewStagingDir(cfg.Build.Dist)
	if err != nil {
		return pipeline.Result{}, err
	}
	env.StagingDir = stagingDir

	pctx := pipeline.Context{
		SourceDir:      sourceDir,
		PublicURL:      cfg.Build.PublicURL,
		StagingDir:     stagingDir,
		Profile:        profile,
		Minify:         cfg.Build.Minify,
		Filehash:       cfg.Build.Filehash,
		NoSRI:          cfg.Build.NoSRI,
		InjectScripts:  cfg.Build.InjectScripts,
		PatternScript:  cfg.Build.PatternScript,
		PatternPreload: cfg.Build.PatternPreload,
		Offline:        cfg.Build.Offline,
		Logger:         logger,
	}

	engine := pipeline.NewEngine(d.dispatch)

	var result pipeline.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var runErr error
		result, runErr = engine.Run(gctx, entry, pctx, cfg.Build.PublicURL)
		return runErr
	})
	g.Go(func() error {
		return hooks.Run(gctx, config.HookBuild, cfg.Hooks, sourceDir, env, logger)
	})
	if err := g.Wait(); err != nil {
		_ = stage.Discard(stagingDir)
		return pipeline.Result{}, err
	}

	htmlPath := filepath.Join(stagingDir, cfg.Build.HTMLOutput)
	if err := os.MkdirAll(filepath.Dir(htmlPath), 0o755); err != nil {
		_ = stage.Discard(stagingDir)
		return pipeline.Result{}, trunkerrors.Wrap(trunkerrors.TypeIO, "creating html output directory", err)
	}
	if err := os.WriteFile(htmlPath, result.HTML, 0o644); err != nil {
		_ = stage.Discard(stagingDir)
		return pipeline.Result{}, trunkerrors.Wrap(trunkerrors.TypeIO, "writing entry HTML", err)
	}

	if err := hooks.Run(ctx, config.HookPostBuild, cfg.Hooks, sourceDir, env, logger); err != nil {
		_ = stage.Discard(stagingDir)
		return pipeline.Result{}, err
	}

	manifest := make([]string, 0, len(result.Artifacts)+1)
	manifest = append(manifest, filepath.ToSlash(cfg.Build.HTMLOutput))
	for _, a := range result.Artifacts {
		rel, err := filepath.Rel(stagingDir, a.StagingPath)
		if err != nil {
			_ = stage.Discard(stagingDir)
			return pipeline.Result{}, trunkerrors.Wrap(trunkerrors.TypeIO, "computing manifest path", err)
		}
		manifest = append(manifest, filepath.ToSlash(rel))
	}

	if err := stage.Promote(stagingDir, cfg.Build.Dist, manifest); err != nil {
		return pipeline.Result{}, err
	}

	return result, nil
}
