// Package inline implements the inline asset pipeline: read a file's
// content and emit it directly into the HTML patch with no staged file.
package inline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/pipeline"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

type Runner struct{}

func New() Runner { return Runner{} }

func (Runner) Run(_ context.Context, d rewriter.LinkDescriptor, pctx pipeline.Context) (pipeline.Output, error) {
	href, ok := d.Attr("href")
	if !ok || href == "" {
		return pipeline.Output{}, errors.DescriptorInvalid(`required attr "href" missing for <link data-trunk rel="inline"> element`)
	}

	path := filepath.Join(pctx.SourceDir, filepath.FromSlash(href))
	data, err := os.ReadFile(path)
	if err != nil {
		return pipeline.Output{}, errors.Wrap(errors.TypeSourceMissing, fmt.Sprintf("reading inline asset %s", href), err)
	}

	typ, hasType := d.Attr("data-type")
	if !hasType || typ == "" {
		typ = strings.TrimPrefix(filepath.Ext(href), ".")
	}

	html, err := wrap(typ, string(data))
	if err != nil {
		return pipeline.Output{}, errors.DescriptorInvalid(err.Error())
	}

	return pipeline.Output{
		Patch: rewriter.Patch{Anchor: d.Anchor, HTML: html},
	}, nil
}

func wrap(typ, content string) (string, error) {
	switch typ {
	case "html", "svg":
		return content, nil
	case "css":
		return fmt.Sprintf("<style>%s</style>", content), nil
	case "js":
		return fmt.Sprintf("<script>%s</script>", content), nil
	case "mjs", "module":
		return fmt.Sprintf(`<script type="module">%s</script>`, content), nil
	default:
		return "", fmt.Errorf(`unknown data-type %q for <link data-trunk rel="inline"> element; must be one of html, svg, css, js, mjs, module`, typ)
	}
}
