package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/conneroisu/trunkgo/internal/config"
	"github.com/conneroisu/trunkgo/internal/logging"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/watcher"
)

const watchDebounce = 100 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Build, then rebuild on source change",
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return watchAndRebuild(ctx, cfg, logger, func(pipeline.Result, error) {})
}

// watchAndRebuild runs the initial build, then watches and rebuilds on
// every debounced change batch until ctx is cancelled. onBuild is invoked
// after every build attempt (including the first), letting serve.go
// broadcast reloads without watch.go knowing about devserver.
func watchAndRebuild(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, onBuild func(pipeline.Result, error)) error {
	deps, err := newBuildDeps(cfg)
	if err != nil {
		return err
	}

	fmt.Println("📦 building...")
	result, err := deps.run(ctx, logger)
	onBuild(result, err)
	if err != nil {
		logger.Errorw("build failed", "error", err)
	} else {
		fmt.Printf("✅ build finished: %d artifacts\n", len(result.Artifacts))
	}

	fw, err := watcher.New(watchDebounce, logger)
	if err != nil {
		return fmt.Errorf("starting file watcher: %w", err)
	}
	defer fw.Close()

	sourceDir := sourceDirOf(cfg)
	distDir := cfg.Build.Dist
	if abs, err := filepath.Abs(distDir); err == nil {
		distDir = abs
	}
	if real, err := filepath.EvalSymlinks(distDir); err == nil {
		distDir = real
	}
	fw.AddFilter(watcher.DefaultIgnores(distDir, ""))
	fw.AddFilter(watcher.IgnoreGlobs([]string{filepath.Base(distDir) + ".stage-*"}))
	if len(cfg.Watch.Ignore) > 0 {
		fw.AddFilter(watcher.IgnoreGlobs(cfg.Watch.Ignore))
	}

	watchPaths := cfg.Watch.Watch
	if len(watchPaths) == 0 {
		watchPaths = []string{sourceDir}
	}
	for _, p := range watchPaths {
		if err := fw.AddRecursive(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
	}

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		fmt.Printf("📦 change detected (%d files), rebuilding...\n", len(events))
		result, err := deps.run(ctx, logger)
		onBuild(result, err)
		if err != nil {
			logger.Errorw("build failed", "error", err)
			return nil
		}
		fmt.Printf("✅ build finished: %d artifacts\n", len(result.Artifacts))
		return nil
	})

	fw.Start(ctx)
	<-ctx.Done()
	return nil
}

func sourceDirOf(cfg *config.Config) string {
	dir := filepath.Dir(cfg.Build.Target)
	if dir == "" {
		return "."
	}
	return dir
}
