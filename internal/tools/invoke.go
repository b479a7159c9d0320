package tools

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/conneroisu/trunkgo/internal/errors"
)

// Invoke runs the resolved binary at path with args, inheriting stdin and
// writing stdout/stderr to the given writers (nil defaults to the process's
// own streams). A nonzero exit becomes a tool-failed error carrying the
// tool name, arguments, and exit code (spec.md §4.4's invocation policy).
func Invoke(ctx context.Context, name string, path string, args []string, stdout, stderr io.Writer) error {
	if err := validateCommand(name); err != nil {
		return errors.Wrap(errors.TypeToolFailed, "command not allowed", err).WithContext("tool", name)
	}
	if err := validateArgs(args); err != nil {
		return errors.Wrap(errors.TypeToolFailed, "argument rejected", err).WithContext("tool", name)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	exitCode := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	return errors.ToolFailed(name, args, exitCode, err)
}
