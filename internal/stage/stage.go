// Package stage atomically promotes one build's staging directory into the
// publish directory: the engine writes every artifact for a build into a
// fresh sibling directory, and only once that build is fully finalized does
// this package make the result visible, pruning anything left behind by an
// earlier build that no longer belongs.
package stage

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	trunkerrors "github.com/conneroisu/trunkgo/internal/errors"
)

// NewStagingDir creates a fresh staging directory adjacent to distDir and
// returns its path. The caller promotes it with Promote on success or
// discards it with Discard on failure.
func NewStagingDir(distDir string) (string, error) {
	parent := filepath.Dir(distDir)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", trunkerrors.Wrap(trunkerrors.TypeIO, "creating dist parent directory", err)
	}
	dir, err := os.MkdirTemp(parent, filepath.Base(distDir)+".stage-*")
	if err != nil {
		return "", trunkerrors.Wrap(trunkerrors.TypeIO, "creating staging directory", err)
	}
	return dir, nil
}

// Discard removes a staging directory a build abandoned, e.g. after
// cancellation or a fatal task error. Preserving it for debugging instead is
// a valid implementation choice spec.md leaves open; trunkgo always cleans
// up, since its build errors already carry enough context via errors.CoreError.
func Discard(stagingDir string) error {
	if err := os.RemoveAll(stagingDir); err != nil {
		return trunkerrors.Wrap(trunkerrors.TypeIO, "discarding staging directory", err)
	}
	return nil
}

// Promote makes a finished build's staging directory the new contents of
// distDir. manifest lists every dist-relative path (forward-slash form, as
// staged) the just-finished build produced; anything already in distDir
// outside that set is deleted first, then every staged file is moved into
// place, preferring a same-filesystem os.Rename and falling back to a copy
// followed by removal of the staged original when rename reports a
// cross-device link. The staging directory itself is removed once empty.
func Promote(stagingDir, distDir string, manifest []string) error {
	if err := os.MkdirAll(distDir, 0o755); err != nil {
		return trunkerrors.Wrap(trunkerrors.TypeIO, "creating dist directory", err)
	}

	keep := make(map[string]bool, len(manifest))
	for _, m := range manifest {
		keep[filepath.FromSlash(m)] = true
	}

	if err := pruneStale(distDir, keep); err != nil {
		return err
	}
	if err := promoteTree(stagingDir, distDir); err != nil {
		return err
	}
	_ = os.RemoveAll(stagingDir)
	return nil
}

// pruneStale deletes every file under distDir whose dist-relative path is
// not in keep, then removes directories left empty by that deletion.
func pruneStale(distDir string, keep map[string]bool) error {
	var stale []string
	err := filepath.WalkDir(distDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == distDir || d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(distDir, path)
		if err != nil {
			return err
		}
		if !keep[rel] {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		return trunkerrors.Wrap(trunkerrors.TypeIO, "scanning dist directory", err)
	}

	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return trunkerrors.Wrap(trunkerrors.TypeIO, "removing stale dist entry", err)
		}
	}
	removeEmptyDirs(distDir)
	return nil
}

// removeEmptyDirs is best-effort tidying: whether it succeeds has no effect
// on the manifest invariant, since only file presence is load-bearing.
func removeEmptyDirs(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, dir := range dirs {
		_ = os.Remove(dir)
	}
}

// promoteTree walks stagingDir and moves every file into its corresponding
// path under distDir.
func promoteTree(stagingDir, distDir string) error {
	return filepath.WalkDir(stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(stagingDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(distDir, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return trunkerrors.Wrap(trunkerrors.TypeIO, "creating dist subdirectory", err)
		}
		return renameOrCopy(path, target)
	})
}

// renameOrCopy promotes one staged file, falling back to copy+remove when
// stagingDir and distDir are not on the same filesystem (os.Rename reports
// this as a cross-device link error).
func renameOrCopy(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return trunkerrors.Wrap(trunkerrors.TypeIO, "promoting staged file", err)
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return trunkerrors.Wrap(trunkerrors.TypeIO, "removing staged file after copy", err)
	}
	return nil
}

func isCrossDevice(err error) bool {
	var linkErr *os.LinkError
	return errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return trunkerrors.Wrap(trunkerrors.TypeIO, "opening staged file", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return trunkerrors.Wrap(trunkerrors.TypeIO, "stat staged file", err)
	}

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode())
	if err != nil {
		return trunkerrors.Wrap(trunkerrors.TypeIO, "creating dist file", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return trunkerrors.Wrap(trunkerrors.TypeIO, "copying staged file into dist", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return trunkerrors.Wrap(trunkerrors.TypeIO, "closing dist file", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return trunkerrors.Wrap(trunkerrors.TypeIO, "finalizing copied dist file", err)
	}
	return nil
}
