package pipeline

import (
	"fmt"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

// Dispatch maps a descriptor Kind to the Runner that executes it. It is
// built once at process start (by cmd wiring, which is the only place that
// can import every pipelines/* package without an import cycle back into
// this package) and passed into NewEngine.
type Dispatch map[rewriter.Kind]Runner

// plan produces one Task per descriptor and validates the main-rust-link
// uniqueness invariant (spec.md §3's PipelineTask invariant: at most one
// main-type rust link). Zero is a valid asset-only build; two or more fail
// with descriptor-invalid.
func plan(descriptors []rewriter.LinkDescriptor, pctx Context, dispatch Dispatch) ([]Task, error) {
	tasks := make([]Task, 0, len(descriptors))
	mainRustCount := 0

	for _, d := range descriptors {
		if d.Kind == rewriter.KindRust {
			dataType, _ := d.Attr("data-type")
			if dataType == "" || dataType == "main" {
				mainRustCount++
			}
		}

		if _, ok := dispatch[d.Kind]; !ok {
			return nil, errors.DescriptorInvalid(fmt.Sprintf("unrecognized rel/kind %q", d.Kind))
		}

		tasks = append(tasks, Task{Descriptor: d, Context: pctx})
	}

	if mainRustCount > 1 {
		return nil, errors.DescriptorInvalid("multiple main-type rust links found; at most one is allowed")
	}

	return tasks, nil
}
