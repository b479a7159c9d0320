package devserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func writeDistFixture(t *testing.T, dir string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html><body>hi</body></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log('hi')"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestStaticHandlerServesRealFile(t *testing.T) {
	dir := t.TempDir()
	writeDistFixture(t, dir)

	srv := New(Config{DistDir: dir, NoAutoreload: true})
	handler := srv.staticHandler()

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	if rec.Body.String() != "console.log('hi')" {
		t.Errorf("got body %q", rec.Body.String())
	}
}

func TestStaticHandlerFallsBackToIndexForUnknownPath(t *testing.T) {
	dir := t.TempDir()
	writeDistFixture(t, dir)

	srv := New(Config{DistDir: dir, NoAutoreload: true})
	handler := srv.staticHandler()

	req := httptest.NewRequest(http.MethodGet, "/some/client/route", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("got status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hi") {
		t.Errorf("expected index content, got %q", rec.Body.String())
	}
}

func TestStaticHandlerReturns404WhenNoSPAAndPathMissing(t *testing.T) {
	dir := t.TempDir()
	writeDistFixture(t, dir)

	srv := New(Config{DistDir: dir, NoSPA: true, NoAutoreload: true})
	handler := srv.staticHandler()

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestStaticHandlerReturns404ForNonHTMLAcceptOnUnknownPath(t *testing.T) {
	dir := t.TempDir()
	writeDistFixture(t, dir)

	srv := New(Config{DistDir: dir, NoAutoreload: true})
	handler := srv.staticHandler()

	req := httptest.NewRequest(http.MethodGet, "/missing.png", nil)
	req.Header.Set("Accept", "image/png")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", rec.Code)
	}
}

func TestStaticHandlerInjectsAutoreloadScript(t *testing.T) {
	dir := t.TempDir()
	writeDistFixture(t, dir)

	srv := New(Config{DistDir: dir})
	handler := srv.staticHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !strings.Contains(rec.Body.String(), "autoreload.js") {
		t.Errorf("expected autoreload script tag injected, got %q", rec.Body.String())
	}
}

func TestBroadcastReloadDeliversToConnectedClient(t *testing.T) {
	dir := t.TempDir()
	writeDistFixture(t, dir)

	srv := New(Config{DistDir: dir})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.hub.run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc(autoreloadWSPath, srv.handleAutoreloadWS)
	ts := httptest.NewServer(mux)
	defer ts.Close()

	wsURL := "ws" + ts.URL[len("http"):] + autoreloadWSPath
	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	time.Sleep(50 * time.Millisecond)
	srv.BroadcastReload()

	readCtx, readCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer readCancel()
	_, data, err := conn.Read(readCtx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"reload":true`) {
		t.Errorf("got %q, want reload:true", data)
	}
}
