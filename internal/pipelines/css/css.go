// Package css implements the plain-css asset pipeline: read, optionally
// minify, hash, stage, and patch in a stylesheet link.
package css

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

// Runner implements pipeline.Runner for rewriter.KindCSS.
type Runner struct{}

func New() Runner { return Runner{} }

func (Runner) Run(_ context.Context, d rewriter.LinkDescriptor, pctx pipeline.Context) (pipeline.Output, error) {
	href, ok := d.Attr("href")
	if !ok || href == "" {
		return pipeline.Output{}, errors.DescriptorInvalid(`required attr "href" missing for <link data-trunk rel="css"> element`)
	}

	path := filepath.Join(pctx.SourceDir, filepath.FromSlash(href))
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeSourceMissing, fmt.Sprintf("reading css asset %s", href), err)
	}

	if pctx.ShouldMinify() && !d.AttrBool("data-no-minify") {
		data = Minify(data)
	}

	alg := pipeline.ParseIntegrityAlgorithm(firstAttr(d, "data-integrity"))
	if pctx.NoSRI {
		alg = pipeline.IntegrityNone
	}

	artifact, err := pipeline.Stage(pctx, "", filepath.Base(href), data, alg)
	if err != nil {
		return pipeline.Output{}, err
	}

	patch := fmt.Sprintf(`<link rel="stylesheet" href="%s">`, artifact.PublicPath)
	if artifact.Integrity != "" {
		patch = fmt.Sprintf(`<link rel="stylesheet" href="%s" integrity="%s" crossorigin="anonymous">`, artifact.PublicPath, artifact.Integrity)
	}

	return pipeline.Output{
		Artifacts: []pipeline.Artifact{artifact},
		Patch:     rewriter.Patch{Anchor: d.Anchor, HTML: patch},
	}, nil
}

func firstAttr(d rewriter.LinkDescriptor, name string) string {
	v, _ := d.Attr(name)
	return v
}
