// Package icon implements the icon asset pipeline: copy, hash, and patch in
// a <link rel="icon"> element.
package icon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

type Runner struct{}

func New() Runner { return Runner{} }

func (Runner) Run(_ context.Context, d rewriter.LinkDescriptor, pctx pipeline.Context) (pipeline.Output, error) {
	href, ok := d.Attr("href")
	if !ok || href == "" {
		return pipeline.Output{}, errors.DescriptorInvalid(`required attr "href" missing for <link data-trunk rel="icon"> element`)
	}

	path := filepath.Join(pctx.SourceDir, filepath.FromSlash(href))
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeSourceMissing, fmt.Sprintf("reading icon asset %s", href), err)
	}

	alg := pipeline.ParseIntegrityAlgorithm(attr(d, "data-integrity"))
	if pctx.NoSRI {
		alg = pipeline.IntegrityNone
	}

	artifact, err := pipeline.Stage(pctx, "", filepath.Base(href), data, alg)
	if err != nil {
		return pipeline.Output{}, err
	}

	patch := fmt.Sprintf(`<link rel="icon" href="%s">`, artifact.PublicPath)
	if artifact.Integrity != "" {
		patch = fmt.Sprintf(`<link rel="icon" href="%s" integrity="%s" crossorigin="anonymous">`, artifact.PublicPath, artifact.Integrity)
	}

	return pipeline.Output{
		Artifacts: []pipeline.Artifact{artifact},
		Patch:     rewriter.Patch{Anchor: d.Anchor, HTML: patch},
	}, nil
}

func attr(d rewriter.LinkDescriptor, name string) string {
	v, _ := d.Attr(name)
	return v
}
