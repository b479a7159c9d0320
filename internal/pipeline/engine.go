package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

// Engine drives one build from parsed entry HTML to finalized staged HTML.
type Engine struct {
	dispatch Dispatch
}

// NewEngine creates an Engine bound to a fixed Kind→Runner dispatch table.
func NewEngine(dispatch Dispatch) *Engine {
	return &Engine{dispatch: dispatch}
}

// Result is what a completed build produced.
type Result struct {
	Artifacts []Artifact
	HTML      []byte
}

// Run executes spec.md §4.2's five-step finalization sequence: (1) await
// all tasks, (2) apply HTML patches in source order, (3) inject
// preloads/loader script, (4) minify if the policy requires, (5) return the
// finalized HTML for the caller to write to staging.
func (e *Engine) Run(ctx context.Context, entry *rewriter.EntryHTML, pctx Context, publicURL string) (Result, error) {
	tasks, err := plan(entry.Descriptors, pctx, e.dispatch)
	if err != nil {
		return Result{}, err
	}

	outputs, err := e.runTasks(ctx, tasks)
	if err != nil {
		return Result{}, err
	}

	entry.SetPublicURL(publicURL)

	if err := e.applyPatches(entry, outputs); err != nil {
		return Result{}, err
	}

	if err := e.injectHeadAndBody(entry, outputs); err != nil {
		return Result{}, err
	}

	out, err := entry.Render()
	if err != nil {
		return Result{}, err
	}

	if pctx.ShouldMinify() {
		out = MinifyHTML(out)
	}

	var artifacts []Artifact
	for _, o := range outputs {
		artifacts = append(artifacts, o.Artifacts...)
	}

	return Result{Artifacts: artifacts, HTML: out}, nil
}

// step 1: run every task concurrently, cancelling the rest on first error.
func (e *Engine) runTasks(ctx context.Context, tasks []Task) ([]Output, error) {
	outputs := make([]Output, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex

	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			runner := e.dispatch[task.Descriptor.Kind]
			out, err := runner.Run(gctx, task.Descriptor, task.Context)
			if err != nil {
				return err
			}
			mu.Lock()
			outputs[i] = out
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() == context.Canceled {
			return nil, errors.Wrap(errors.TypeBuildCancelled, "build cancelled", err)
		}
		return nil, err
	}

	return outputs, nil
}

// step 2: apply patches in source order.
func (e *Engine) applyPatches(entry *rewriter.EntryHTML, outputs []Output) error {
	type indexed struct {
		idx   int
		patch rewriter.Patch
	}
	var patches []indexed
	for i, o := range outputs {
		if o.Patch.Anchor != "" || i < len(entry.Descriptors) {
			anchor := o.Patch.Anchor
			if anchor == "" {
				anchor = entry.Descriptors[i].Anchor
			}
			patches = append(patches, indexed{idx: entry.Descriptors[i].SourceIndex, patch: rewriter.Patch{Anchor: anchor, HTML: o.Patch.HTML}})
		}
	}

	sort.Slice(patches, func(a, b int) bool { return patches[a].idx < patches[b].idx })

	ordered := make([]rewriter.Patch, len(patches))
	for i, p := range patches {
		ordered[i] = p.patch
	}

	return entry.ApplyPatches(ordered)
}

// step 3: inject head/body content contributed outside the anchor mechanism,
// in descriptor source order.
func (e *Engine) injectHeadAndBody(entry *rewriter.EntryHTML, outputs []Output) error {
	var head, body strings.Builder
	for _, o := range outputs {
		if o.HeadInjection != "" {
			head.WriteString(o.HeadInjection)
			head.WriteByte('\n')
		}
		if o.BodyInjection != "" {
			body.WriteString(o.BodyInjection)
			body.WriteByte('\n')
		}
	}

	// InjectHead/InjectBodyEnd each prepend/append their whole fragment in
	// one shot, so a single call per target preserves the outputs' source
	// order; calling them once per output would reverse it (inject prepends
	// each new fragment ahead of the previous one).
	if err := entry.InjectHead(head.String()); err != nil {
		return err
	}
	return entry.InjectBodyEnd(body.String())
}

