// Package script implements the script asset pipeline: copy, optionally
// minify, hash, and rewrite the original <script> tag with the staged URL.
package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

type Runner struct{}

func New() Runner { return Runner{} }

func (Runner) Run(_ context.Context, d rewriter.LinkDescriptor, pctx pipeline.Context) (pipeline.Output, error) {
	src, ok := d.Attr("src")
	if !ok || src == "" {
		return pipeline.Output{}, errors.DescriptorInvalid(`required attr "src" missing for <script data-trunk> element`)
	}

	path := filepath.Join(pctx.SourceDir, filepath.FromSlash(src))
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeSourceMissing, fmt.Sprintf("reading script asset %s", src), err)
	}

	if pctx.ShouldMinify() && !d.AttrBool("data-no-minify") {
		data = Minify(data)
	}

	alg := pipeline.ParseIntegrityAlgorithm(attrValue(d, "data-integrity"))
	if pctx.NoSRI {
		alg = pipeline.IntegrityNone
	}

	artifact, err := pipeline.Stage(pctx, "", filepath.Base(src), data, alg)
	if err != nil {
		return pipeline.Output{}, err
	}

	passthrough := carriedAttrs(d)
	tag := fmt.Sprintf(`<script src="%s"%s`, artifact.PublicPath, passthrough)
	if artifact.Integrity != "" {
		tag += fmt.Sprintf(` integrity="%s" crossorigin="anonymous"`, artifact.Integrity)
	}
	tag += "></script>"

	return pipeline.Output{
		Artifacts: []pipeline.Artifact{artifact},
		Patch:     rewriter.Patch{Anchor: d.Anchor, HTML: tag},
	}, nil
}

// carriedAttrs renders every attribute other than src/data-trunk*/data-*
// pipeline directives verbatim onto the output <script> tag, preserving
// author intent (e.g. async, defer, type=module).
func carriedAttrs(d rewriter.LinkDescriptor) string {
	keys := make([]string, 0, len(d.Attrs))
	for k := range d.Attrs {
		if k == "src" || strings.HasPrefix(k, "data-") {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, ` %s="%s"`, k, d.Attrs[k])
	}
	return b.String()
}

func attrValue(d rewriter.LinkDescriptor, name string) string {
	v, _ := d.Attr(name)
	return v
}
