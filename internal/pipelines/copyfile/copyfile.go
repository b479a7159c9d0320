// Package copyfile implements the copy-file asset pipeline: stage a file
// verbatim, no hashing, no HTML patch.
package copyfile

import (
	"context"
	"fmt"
	"io"
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
		return pipeline.Output{}, errors.DescriptorInvalid(`required attr "href" missing for <link data-trunk rel="copy-file"> element`)
	}

	targetDir, _ := d.Attr("data-target-path")
	if err := validation.ValidateTargetPath(targetDir); err != nil {
		return pipeline.Output{}, errors.DescriptorInvalid(err.Error())
	}

	src := filepath.Join(pctx.SourceDir, filepath.FromSlash(href))
	in, err := os.Open(src)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeSourceMissing, fmt.Sprintf("opening copy-file asset %s", href), err)
	}
	defer in.Close()

	destDir := filepath.Join(pctx.StagingDir, filepath.FromSlash(targetDir))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "creating staging directory", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(href))
	out, err := os.Create(destPath)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "creating staged file", err)
	}
	defer out.Close()

	size, err := io.Copy(out, in)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "copying file", err)
	}

	return pipeline.Output{
		Artifacts: []pipeline.Artifact{{
			StagingPath: destPath,
			PublicPath:  pipeline.JoinPublicURL(pctx.PublicURL, filepath.ToSlash(filepath.Join(targetDir, filepath.Base(href)))),
			Size:        size,
		}},
		Patch: rewriter.Patch{Anchor: d.Anchor, HTML: ""},
	}, nil
}
