package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/conneroisu/trunkgo/internal/config"
	"github.com/conneroisu/trunkgo/internal/rewriter"
)

// fakeRunner returns a fixed patch/injection for every descriptor it sees,
// tagging the emitted HTML with the descriptor's source index so tests can
// assert on ordering.
type fakeRunner struct {
	fail bool
}

func (f fakeRunner) Run(_ context.Context, d rewriter.LinkDescriptor, _ Context) (Output, error) {
	if f.fail {
		return Output{}, fmt.Errorf("boom")
	}
	return Output{
		Patch: rewriter.Patch{Anchor: d.Anchor, HTML: fmt.Sprintf("<!--out-%d-->", d.SourceIndex)},
	}, nil
}

func parseFixture(t *testing.T, body string) *rewriter.EntryHTML {
	t.Helper()
	entry, err := rewriter.Parse(strings.NewReader(body), "/src", func(string) bool { return true }, nil)
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return entry
}

func TestEngineRunAppliesPatchesInSourceOrder(t *testing.T) {
	html := `<html><head>
<link data-trunk rel="rust" href="Cargo.toml" />
</head><body>
<link data-trunk rel="css" href="a.css" />
<link data-trunk rel="css" href="b.css" />
</body></html>`

	entry := parseFixture(t, html)

	dispatch := Dispatch{
		rewriter.KindRust: fakeRunner{},
		rewriter.KindCSS:  fakeRunner{},
	}
	engine := NewEngine(dispatch)

	result, err := engine.Run(context.Background(), entry, Context{}, "/")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := string(result.HTML)
	firstIdx := strings.Index(out, "out-1")
	secondIdx := strings.Index(out, "out-2")
	if firstIdx < 0 || secondIdx < 0 || firstIdx > secondIdx {
		t.Errorf("expected out-1 before out-2 in rendered HTML, got: %s", out)
	}
}

func TestEngineRunPropagatesTaskFailure(t *testing.T) {
	html := `<html><head>
<link data-trunk rel="rust" href="Cargo.toml" />
</head><body></body></html>`

	entry := parseFixture(t, html)

	dispatch := Dispatch{rewriter.KindRust: fakeRunner{fail: true}}
	engine := NewEngine(dispatch)

	if _, err := engine.Run(context.Background(), entry, Context{}, "/"); err == nil {
		t.Error("expected error from failing runner to propagate")
	}
}

func TestEngineRunMinifiesWhenPolicyApplies(t *testing.T) {
	html := `<html><head>
<link data-trunk rel="rust" href="Cargo.toml" />
</head><body>


</body></html>`

	entry := parseFixture(t, html)
	dispatch := Dispatch{rewriter.KindRust: fakeRunner{}}
	engine := NewEngine(dispatch)

	pctx := Context{Profile: ProfileRelease, Minify: config.MinifyOnRelease}
	result, err := engine.Run(context.Background(), entry, pctx, "/")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.Contains(string(result.HTML), "\n\n") {
		t.Error("expected collapsed whitespace when minify policy applies")
	}
}
