// Package tailwind implements the tailwind-css asset pipeline: invoke the
// tailwindcss CLI, then hash/stage/patch the resulting CSS.
package tailwind

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
	"github.com/conneroisu/trunkgo/internal/tools"
)

// Runner implements pipeline.Runner for rewriter.KindTailwindCSS.
type Runner struct {
	Tools        *tools.Manager
	Descriptor   tools.Descriptor
	VersionProbe tools.VersionProbe
}

func New(mgr *tools.Manager, descriptor tools.Descriptor, probe tools.VersionProbe) Runner {
	return Runner{Tools: mgr, Descriptor: descriptor, VersionProbe: probe}
}

func (r Runner) Run(ctx context.Context, d rewriter.LinkDescriptor, pctx pipeline.Context) (pipeline.Output, error) {
	href, ok := d.Attr("href")
	if !ok || href == "" {
		return pipeline.Output{}, errors.DescriptorInvalid(`required attr "href" missing for <link data-trunk rel="tailwind-css"> element`)
	}

	resolved, err := r.Tools.Resolve(ctx, r.Descriptor, r.VersionProbe)
	if err != nil {
		return pipeline.Output{}, err
	}

	srcPath := filepath.Join(pctx.SourceDir, filepath.FromSlash(href))
	if _, err := os.Stat(srcPath); err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeSourceMissing, fmt.Sprintf("reading tailwind css asset %s", href), err)
	}

	outDir, err := os.MkdirTemp("", "trunkgo-tailwind-*")
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "creating temp dir", err)
	}
	defer os.RemoveAll(outDir)

	stem := strings.TrimSuffix(filepath.Base(href), filepath.Ext(href))
	outPath := filepath.Join(outDir, stem+".css")

	args := []string{"--input", srcPath, "--output", outPath}
	if pctx.ShouldMinify() && !d.AttrBool("data-no-minify") {
		args = append(args, "--minify")
	}

	if err := tools.Invoke(ctx, "tailwindcss", resolved.Path, args, nil, nil); err != nil {
		return pipeline.Output{}, err
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeIO, "reading compiled css", err)
	}

	alg := pipeline.ParseIntegrityAlgorithm(attrValue(d, "data-integrity"))
	if pctx.NoSRI {
		alg = pipeline.IntegrityNone
	}

	if d.AttrBool("data-inline") {
		return pipeline.Output{
			Patch: rewriter.Patch{Anchor: d.Anchor, HTML: fmt.Sprintf("<style>%s</style>", data)},
		}, nil
	}

	artifact, err := pipeline.Stage(pctx, "", stem+".css", data, alg)
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

func attrValue(d rewriter.LinkDescriptor, name string) string {
	v, _ := d.Attr(name)
	return v
}
