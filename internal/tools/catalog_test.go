package tools

import (
	"strings"
	"testing"
)

func TestDescriptorForBuildsADownloadableURL(t *testing.T) {
	for _, name := range []Name{Sass, TailwindCSS, WasmBindgen, WasmOpt} {
		d, probe, err := DescriptorFor(name, "")
		if err != nil {
			t.Fatalf("%s: DescriptorFor: %v", name, err)
		}
		if d.URLTemplate == "" || !strings.HasPrefix(d.URLTemplate, "https://") {
			t.Errorf("%s: got URL %q, want an https URL", name, d.URLTemplate)
		}
		if probe == nil {
			t.Errorf("%s: expected a non-nil version probe", name)
		}
	}
}

func TestSassProbeExtractsFirstToken(t *testing.T) {
	_, probe, _ := DescriptorFor(Sass, "")
	got, ok := probe("1.69.5 compiled with dart2native")
	if !ok || got != "1.69.5" {
		t.Errorf("got (%q, %v), want (1.69.5, true)", got, ok)
	}
}

func TestWasmBindgenProbeExtractsSecondToken(t *testing.T) {
	_, probe, _ := DescriptorFor(WasmBindgen, "")
	got, ok := probe("wasm-bindgen 0.2.92")
	if !ok || got != "0.2.92" {
		t.Errorf("got (%q, %v), want (0.2.92, true)", got, ok)
	}
}

func TestWasmOptProbePrefixesVersionUnderscore(t *testing.T) {
	_, probe, _ := DescriptorFor(WasmOpt, "")
	got, ok := probe("wasm-opt version 116")
	if !ok || got != "version_116" {
		t.Errorf("got (%q, %v), want (version_116, true)", got, ok)
	}
}

func TestTailwindProbeExtractsAfterV(t *testing.T) {
	_, probe, _ := DescriptorFor(TailwindCSS, "")
	got, ok := probe("tailwindcss v3.3.5\n")
	if !ok || got != "3.3.5" {
		t.Errorf("got (%q, %v), want (3.3.5, true)", got, ok)
	}
}
