// Package hooks runs user-configured shell commands at the three points in
// a build where spec.md lets a project hook in: before the asset pipeline
// starts, alongside it, and after the finished site is staged but before it
// is promoted into its dist directory.
package hooks

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/trunkgo/internal/config"
	"github.com/conneroisu/trunkgo/internal/errors"
)

// Env carries the TRUNK_* environment variables every hook process sees,
// mirroring what the original Rust CLI exposes to its own hooks.
type Env struct {
	Profile    string // "release" or "debug"
	HTMLFile   string
	SourceDir  string
	StagingDir string
	DistDir    string
	PublicURL  string
}

func (e Env) vars() []string {
	return []string{
		"TRUNK_PROFILE=" + e.Profile,
		"TRUNK_HTML_FILE=" + e.HTMLFile,
		"TRUNK_SOURCE_DIR=" + e.SourceDir,
		"TRUNK_STAGING_DIR=" + e.StagingDir,
		"TRUNK_DIST_DIR=" + e.DistDir,
		"TRUNK_PUBLIC_URL=" + e.PublicURL,
	}
}

// Logger is the subset of a structured logger hooks need.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
}

// Run executes every hook configured for stage concurrently in dir. The
// first hook to exit nonzero cancels the rest and its error is returned;
// a stage with no matching hooks is a no-op.
func Run(ctx context.Context, stage config.HookStage, all []config.HookConfig, dir string, env Env, logger Logger) error {
	var matched []config.HookConfig
	for _, h := range all {
		if h.Stage == stage {
			matched = append(matched, h)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range matched {
		h := h
		g.Go(func() error {
			return runHook(gctx, h, dir, env, logger)
		})
	}
	return g.Wait()
}

func runHook(ctx context.Context, h config.HookConfig, dir string, env Env, logger Logger) error {
	command, args := resolveCommand(h)
	if command == "" {
		return nil
	}

	if logger != nil {
		logger.Infow("running hook", "stage", h.Stage, "command", command, "args", args)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env.vars()...)
	cmd.Stdout = os.Stdout

	var stderr bytes.Buffer
	cmd.Stderr = io.MultiWriter(os.Stderr, &stderr)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return errors.ToolFailed(command, args, exitCode, errors.Wrap(errors.TypeToolFailed, stderr.String(), err))
	}
	return nil
}

// resolveCommand applies a hook's per-OS override, if any, for the running
// GOOS, falling back to its default command/arguments.
func resolveCommand(h config.HookConfig) (string, []string) {
	if override, ok := h.PerOS[goosKey()]; ok {
		return override.Command, override.CommandArguments
	}
	return h.Command, h.CommandArguments
}

// goosKey maps runtime.GOOS onto the key spec.md's hook config uses, which
// says "macos" where Go says "darwin".
func goosKey() string {
	if runtime.GOOS == "darwin" {
		return "macos"
	}
	return runtime.GOOS
}
