package rustapp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/conneroisu/trunkgo/internal/errors"
)

// cargoBuildOptions carries the build-flag surface spec.md §4.3 names for
// the rust pipeline: bin selection and feature forwarding.
type cargoBuildOptions struct {
	ManifestPath       string
	Release            bool
	Bin                string
	Features           string
	NoDefaultFeatures  bool
	AllFeatures        bool
}

func cargoArgs(opts cargoBuildOptions) []string {
	args := []string{"build", "--target=wasm32-unknown-unknown", "--manifest-path", opts.ManifestPath}
	if opts.Release {
		args = append(args, "--release")
	}
	if opts.Bin != "" {
		args = append(args, "--bin", opts.Bin)
	}
	if opts.AllFeatures {
		args = append(args, "--all-features")
	} else {
		if opts.NoDefaultFeatures {
			args = append(args, "--no-default-features")
		}
		if opts.Features != "" {
			args = append(args, "--features", opts.Features)
		}
	}
	return args
}

// cargoMessage is the subset of a `cargo build --message-format=json` line
// this pipeline reads: the compiler-artifact record naming the produced
// files, matched by package/target rather than by scanning the filesystem
// for a ".wasm" file (spec.md §4.3: "no heuristic filename matching is
// performed").
type cargoMessage struct {
	Reason  string `json:"reason"`
	Success *bool  `json:"success"`
	Target  struct {
		Name string   `json:"name"`
		Kind []string `json:"kind"`
	} `json:"target"`
	Filenames []string `json:"filenames"`
}

// cargoBuild runs the build once for its human-readable output (so build
// errors surface in the usual stderr stream) and a second time with
// --message-format=json to recover the exact artifact path. Both runs
// share the same args except for the trailing message-format flag, so a
// build failure is reported the same way regardless of which run catches
// it first.
func cargoBuild(ctx context.Context, cargoPath string, opts cargoBuildOptions, bin string, pkgName string) (wasmPath string, err error) {
	args := cargoArgs(opts)

	if err := runCargo(ctx, cargoPath, args, nil); err != nil {
		return "", err
	}

	jsonArgs := append(append([]string{}, args...), "--message-format=json")
	var stdout bytes.Buffer
	if err := runCargo(ctx, cargoPath, jsonArgs, &stdout); err != nil {
		return "", err
	}

	return findWasmArtifact(stdout.Bytes(), bin, pkgName)
}

func runCargo(ctx context.Context, cargoPath string, args []string, stdout io.Writer) error {
	cmd := exec.CommandContext(ctx, cargoPath, args...)
	cmd.Stdout = stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	var stderr bytes.Buffer
	cmd.Stderr = io.MultiWriter(&stderr, os.Stderr)

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return errors.ToolFailed("cargo", args, exitCode, errors.Wrap(errors.TypeToolFailed, strings.TrimSpace(stderr.String()), err))
	}
	return nil
}

// findWasmArtifact scans the JSON-lines cargo message stream for the
// compiler-artifact record matching bin (if set) or pkgName, returning the
// ".wasm" entry from its filenames. No directory scanning is performed.
func findWasmArtifact(streamed []byte, bin, pkgName string) (string, error) {
	want := bin
	if want == "" {
		want = pkgName
	}

	dec := json.NewDecoder(bytes.NewReader(streamed))
	var lastMatch *cargoMessage
	for {
		var msg cargoMessage
		if err := dec.Decode(&msg); err != nil {
			break
		}
		switch msg.Reason {
		case "compiler-artifact":
			if msg.Target.Name == want || (want == "" && isBinaryTarget(msg.Target.Kind)) {
				m := msg
				lastMatch = &m
			}
		case "build-finished":
			if msg.Success != nil && !*msg.Success {
				return "", errors.New(errors.TypeToolFailed, "cargo reported a failed build")
			}
		}
	}

	if lastMatch == nil {
		return "", errors.New(errors.TypeToolFailed, "cargo artifacts not found for target crate").WithContext("target", want)
	}
	for _, f := range lastMatch.Filenames {
		if filepath.Ext(f) == ".wasm" {
			return f, nil
		}
	}
	return "", errors.New(errors.TypeToolFailed, "could not find WASM output after cargo build")
}

func isBinaryTarget(kinds []string) bool {
	for _, k := range kinds {
		if k == "cdylib" || k == "bin" {
			return true
		}
	}
	return false
}
