// Package copydir implements the copy-dir asset pipeline: stage the
// recursive contents of a source directory verbatim, no hashing, no HTML
// patch. Symlinked subdirectories are skipped: they are neither walked into
// nor staged (see DESIGN.md's Open Question decision).
package copydir

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
	"github.com/conneroisu/trunkgo/internal/validation"
)

type Runner struct{}

func New() Runner { return Runner{} }

func (Runner) Run(_ context.Context, d rewriter.LinkDescriptor, pctx pipeline.Context) (pipeline.Output, error) {
	href, ok := d.Attr("href")
	if !ok || href == "" {
		return pipeline.Output{}, errors.DescriptorInvalid(`required attr "href" missing for <link data-trunk rel="copy-dir"> element`)
	}

	targetDir, _ := d.Attr("data-target-path")
	if err := validation.ValidateTargetPath(targetDir); err != nil {
		return pipeline.Output{}, errors.DescriptorInvalid(err.Error())
	}

	srcRoot := filepath.Join(pctx.SourceDir, filepath.FromSlash(href))
	info, err := os.Stat(srcRoot)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeSourceMissing, fmt.Sprintf("reading copy-dir source %s", href), err)
	}
	if !info.IsDir() {
		return pipeline.Output{}, errors.DescriptorInvalid(fmt.Sprintf("copy-dir href %q is not a directory", href))
	}

	destRoot := filepath.Join(pctx.StagingDir, filepath.FromSlash(targetDir))

	var artifacts []pipeline.Artifact
	err = filepath.WalkDir(srcRoot, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(srcRoot, path)
		if err != nil {
			return err
		}

		if entry.Type()&fs.ModeSymlink != 0 {
			return copySymlinkAsEntry(path, filepath.Join(destRoot, rel), targetDir, rel, pctx.PublicURL, &artifacts)
		}

		if entry.IsDir() {
			return os.MkdirAll(filepath.Join(destRoot, rel), 0o755)
		}

		return copyRegularFile(path, filepath.Join(destRoot, rel), targetDir, rel, pctx.PublicURL, &artifacts)
	})
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "copying directory", err)
	}

	return pipeline.Output{
		Artifacts: artifacts,
		Patch:     rewriter.Patch{Anchor: d.Anchor, HTML: ""},
	}, nil
}

// copySymlinkAsEntry stages a symlinked filesystem entry as a single opaque
// unit — copying the file it resolves to if it is a regular file, or
// skipping it entirely (without descending) if it resolves to a directory.
func copySymlinkAsEntry(src, dest, targetDir, rel, publicURL string, artifacts *[]pipeline.Artifact) error {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return nil // dangling symlink: skip rather than fail the whole copy
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil
	}
	if info.IsDir() {
		return nil
	}
	return copyRegularFile(resolved, dest, targetDir, rel, publicURL, artifacts)
}

func copyRegularFile(src, dest, targetDir, rel, publicURL string, artifacts *[]pipeline.Artifact) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	size, err := io.Copy(out, in)
	if err != nil {
		return err
	}

	*artifacts = append(*artifacts, pipeline.Artifact{
		StagingPath: dest,
		PublicPath:  pipeline.JoinPublicURL(publicURL, filepath.ToSlash(filepath.Join(targetDir, rel))),
		Size:        size,
	})
	return nil
}
