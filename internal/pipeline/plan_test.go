package pipeline

import (
	"testing"

	"github.com/conneroisu/trunkgo/internal/rewriter"
)

func descriptor(kind rewriter.Kind, dataType string) rewriter.LinkDescriptor {
	attrs := map[string]string{}
	if dataType != "" {
		attrs["data-type"] = dataType
	}
	return rewriter.LinkDescriptor{Kind: kind, Anchor: "a", Attrs: attrs}
}

func TestPlanRequiresExactlyOneMainRustLink(t *testing.T) {
	dispatch := Dispatch{rewriter.KindRust: nil, rewriter.KindCSS: nil}

	if _, err := plan(nil, Context{}, dispatch); err == nil {
		t.Error("expected error for zero rust links")
	}

	one := []rewriter.LinkDescriptor{descriptor(rewriter.KindRust, "main")}
	if _, err := plan(one, Context{}, dispatch); err != nil {
		t.Errorf("unexpected error for exactly one main rust link: %v", err)
	}

	two := []rewriter.LinkDescriptor{
		descriptor(rewriter.KindRust, "main"),
		descriptor(rewriter.KindRust, ""),
	}
	if _, err := plan(two, Context{}, dispatch); err == nil {
		t.Error("expected error for two main rust links")
	}
}

func TestPlanRejectsUnknownKind(t *testing.T) {
	dispatch := Dispatch{rewriter.KindRust: nil}
	descs := []rewriter.LinkDescriptor{
		descriptor(rewriter.KindRust, "main"),
		descriptor(rewriter.Kind("mystery"), ""),
	}
	if _, err := plan(descs, Context{}, dispatch); err == nil {
		t.Error("expected error for unrecognized kind")
	}
}

func TestPlanAllowsWorkerAlongsideMain(t *testing.T) {
	dispatch := Dispatch{rewriter.KindRust: nil}
	descs := []rewriter.LinkDescriptor{
		descriptor(rewriter.KindRust, "main"),
		descriptor(rewriter.KindRust, "worker"),
	}
	tasks, err := plan(descs, Context{}, dispatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("got %d tasks, want 2", len(tasks))
	}
}
