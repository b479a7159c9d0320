package devserver

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// staticHandler serves files out of distDir, falling back to the SPA entry
// document for navigations that don't match a real file, unless NoSPA is set.
func (s *Server) staticHandler() http.Handler {
	fileServer := http.FileServer(http.Dir(s.cfg.DistDir))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.servesRealFile(r.URL.Path) {
			fileServer.ServeHTTP(w, r)
			return
		}
		if s.cfg.NoSPA || !acceptsHTML(r.Header.Get("Accept")) {
			http.NotFound(w, r)
			return
		}
		s.serveIndex(w, r)
	})
}

func (s *Server) servesRealFile(urlPath string) bool {
	clean := filepath.Clean("/" + urlPath)
	full := filepath.Join(s.cfg.DistDir, clean)
	info, err := os.Stat(full)
	if err != nil || info.IsDir() {
		return false
	}
	return true
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	indexPath := filepath.Join(s.cfg.DistDir, s.indexName())
	body, err := os.ReadFile(indexPath)
	if err != nil {
		http.Error(w, "index not found", http.StatusNotFound)
		return
	}
	if !s.cfg.NoAutoreload {
		body = injectAutoreloadScript(body, s.cfg.WSProtocol)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) indexName() string {
	if s.cfg.IndexName != "" {
		return s.cfg.IndexName
	}
	return "index.html"
}

// acceptsHTML treats a missing Accept header as permitting HTML, matching
// curl and most non-browser clients' default behavior.
func acceptsHTML(accept string) bool {
	if accept == "" {
		return true
	}
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "*/*")
}

const autoreloadScriptTag = `<script src="/.well-known/trunk/autoreload.js" data-ws-protocol="%s"></script>`

func injectAutoreloadScript(html []byte, wsProtocol string) []byte {
	tag := []byte(fmt.Sprintf(autoreloadScriptTag, wsProtocol))
	const marker = "</body>"
	idx := strings.LastIndex(string(html), marker)
	if idx == -1 {
		return append(html, tag...)
	}
	out := make([]byte, 0, len(html)+len(tag))
	out = append(out, html[:idx]...)
	out = append(out, tag...)
	out = append(out, html[idx:]...)
	return out
}
