// Package tools resolves the external binaries (cargo/wasm-bindgen/wasm-opt/
// sass/tailwindcss) the asset pipelines shell out to: find on PATH, download
// and cache otherwise, with single-flight resolution and an in-process
// cache keyed by tool name alone: a later request for the same tool with a
// different version gets the first request's result.
package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/conneroisu/trunkgo/internal/errors"
	"github.com/conneroisu/trunkgo/internal/version"
)

// Name identifies a known external tool.
type Name string

const (
	WasmBindgen Name = "wasm-bindgen"
	WasmOpt     Name = "wasm-opt"
	Sass        Name = "sass"
	TailwindCSS Name = "tailwindcss"
	Cargo       Name = "cargo"
)

// Descriptor names a tool, its required version, and how to obtain it when
// not already present on PATH.
type Descriptor struct {
	Name     Name
	Version  string // a bare version or a "^"-style requirement
	Platform string // GOOS/GOARCH-derived triple used in the download URL template
	URLTemplate string
	Checksum    string // hex sha256, optional
}

// Resolved is a tool ready to invoke.
type Resolved struct {
	Path    string
	Version string
}

// VersionProbe extracts a bare version string from a candidate binary's
// --version output (Manager.fromPATH runs the binary and passes the output
// in). Tool-specific because output formats vary ("1.69.5 compiled with
// dart2native", "wasm-bindgen 0.2.92", etc).
type VersionProbe func(output string) (string, bool)

// Manager resolves and caches tool binaries for the lifetime of one process.
type Manager struct {
	cacheDir string
	offline  bool
	lookPath func(string) (string, error)
	httpGet  HTTPGetter

	mu        sync.Mutex
	resolved  map[Name]Resolved
	inflight  map[Name]*sync.WaitGroup
	inflightErr map[Name]error
}

// HTTPGetter abstracts the download transport so tests can stub it; the
// production implementation wraps net/http with a per-request timeout.
type HTTPGetter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// New creates a Manager. cacheDir holds downloaded/unpacked tool binaries,
// keyed by name@version subdirectories.
func New(cacheDir string, offline bool, getter HTTPGetter) *Manager {
	return &Manager{
		cacheDir:    cacheDir,
		offline:     offline,
		lookPath:    exec.LookPath,
		httpGet:     getter,
		resolved:    make(map[Name]Resolved),
		inflight:    make(map[Name]*sync.WaitGroup),
		inflightErr: make(map[Name]error),
	}
}

// Resolve returns an executable path for d, downloading it into the cache
// if necessary. Concurrent calls for the same d.Name single-flight: only
// the first caller actually resolves; the rest wait and share its result.
func (m *Manager) Resolve(ctx context.Context, d Descriptor, probe VersionProbe) (Resolved, error) {
	m.mu.Lock()
	if r, ok := m.resolved[d.Name]; ok {
		m.mu.Unlock()
		return r, nil
	}
	if wg, ok := m.inflight[d.Name]; ok {
		m.mu.Unlock()
		wg.Wait()
		m.mu.Lock()
		defer m.mu.Unlock()
		if r, ok := m.resolved[d.Name]; ok {
			return r, nil
		}
		return Resolved{}, m.inflightErr[d.Name]
	}

	wg := &sync.WaitGroup{}
	wg.Add(1)
	m.inflight[d.Name] = wg
	m.mu.Unlock()

	r, err := m.resolveOnce(ctx, d, probe)

	m.mu.Lock()
	if err == nil {
		m.resolved[d.Name] = r
	} else {
		m.inflightErr[d.Name] = err
	}
	delete(m.inflight, d.Name)
	m.mu.Unlock()
	wg.Done()

	return r, err
}

func (m *Manager) resolveOnce(ctx context.Context, d Descriptor, probe VersionProbe) (Resolved, error) {
	if path, version, ok := m.fromPATH(d, probe); ok {
		return Resolved{Path: path, Version: version}, nil
	}

	if m.offline {
		return Resolved{}, errors.OfflineToolMissing(string(d.Name))
	}

	path, err := m.download(ctx, d)
	if err != nil {
		return Resolved{}, errors.Wrap(errors.TypeToolMissing, fmt.Sprintf("resolving %s", d.Name), err).
			WithContext("tool", string(d.Name))
	}

	return Resolved{Path: path, Version: d.Version}, nil
}

func (m *Manager) fromPATH(d Descriptor, probe VersionProbe) (path, resolvedVersion string, ok bool) {
	binPath, err := m.lookPath(string(d.Name))
	if err != nil {
		return "", "", false
	}
	if probe == nil {
		return binPath, d.Version, true
	}

	out, err := exec.Command(binPath, "--version").CombinedOutput()
	if err != nil {
		return "", "", false
	}
	ver, ok := probe(strings.TrimSpace(string(out)))
	if !ok {
		return "", "", false
	}

	if d.Version != "" {
		req, err := version.ParseRequirement(d.Version)
		if err != nil {
			return "", "", false
		}
		matches, err := req.Matches(ver)
		if err != nil || !matches {
			return "", "", false
		}
	}

	return binPath, ver, true
}
