// Package proxy implements the dev server's reverse-proxy rules: an
// ordinary HTTP reverse proxy via stdlib net/http/httputil, and, for rules
// that opt in, bidirectional WebSocket frame relaying between the browser
// and the configured backend.
package proxy

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/coder/websocket"

	"github.com/conneroisu/trunkgo/internal/config"
	"github.com/conneroisu/trunkgo/internal/errors"
)

// MountPath is the path a rule's handler is registered at: its explicit
// rewrite prefix when configured, else the backend URL's own path.
func MountPath(rule config.ProxyConfig) (string, error) {
	if rule.Rewrite != "" {
		return rule.Rewrite, nil
	}
	backend, err := url.Parse(rule.Backend)
	if err != nil {
		return "", errors.Wrap(errors.TypeConfigInvalid, "parsing proxy backend URL", err)
	}
	if backend.Path == "" {
		return "/", nil
	}
	return backend.Path, nil
}

// NewHandler builds the http.Handler for one proxy rule. Ordinary requests
// go through a stdlib reverse proxy; WebSocket upgrade requests go through
// bidirectional frame relaying when rule.WS is set, otherwise they reach the
// reverse proxy unmodified (and fail the way any non-upgrade-aware backend
// would).
func NewHandler(rule config.ProxyConfig) (http.Handler, error) {
	backend, err := url.Parse(rule.Backend)
	if err != nil {
		return nil, errors.Wrap(errors.TypeConfigInvalid, "parsing proxy backend URL", err)
	}
	mount, err := MountPath(rule)
	if err != nil {
		return nil, err
	}

	rp := httputil.NewSingleHostReverseProxy(backend)
	baseDirector := rp.Director
	rp.Director = func(r *http.Request) {
		r.URL.Path = stripMount(r.URL.Path, mount)
		baseDirector(r)
		for k, v := range rule.RequestHeaders {
			r.Header.Set(k, v)
		}
	}

	transport := &http.Transport{}
	if rule.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if !rule.NoSystemProxy {
		transport.Proxy = http.ProxyFromEnvironment
	}
	var rt http.RoundTripper = transport
	if !rule.NoRedirect {
		// httputil.ReverseProxy's own RoundTrip never follows redirects; to
		// make "redirect following" an actual per-rule toggle rather than a
		// no-op, a 3xx response is followed here and the final response
		// relayed to the client instead of the redirect itself.
		rt = &followRedirectsTransport{base: transport}
	}
	rp.Transport = rt

	ws := &wsProxy{backend: backendWSURL(backend), requestHeaders: rule.RequestHeaders, insecure: rule.Insecure}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rule.WS && isWebSocketUpgrade(r) {
			ws.serve(w, r, stripMount(r.URL.Path, mount))
			return
		}
		rp.ServeHTTP(w, r)
	}), nil
}

const maxProxyRedirects = 10

// followRedirectsTransport follows up to maxProxyRedirects 3xx responses
// itself before returning to the caller, since the underlying Transport's
// RoundTrip never does.
type followRedirectsTransport struct {
	base http.RoundTripper
}

func (t *followRedirectsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	for i := 0; err == nil && isRedirectStatus(resp.StatusCode) && i < maxProxyRedirects; i++ {
		loc := resp.Header.Get("Location")
		if loc == "" {
			break
		}
		next, parseErr := req.URL.Parse(loc)
		if parseErr != nil {
			break
		}
		resp.Body.Close()
		nextReq := req.Clone(req.Context())
		nextReq.URL = next
		nextReq.Host = next.Host
		req = nextReq
		resp, err = t.base.RoundTrip(req)
	}
	return resp, err
}

func isRedirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

func stripMount(path, mount string) string {
	if mount == "" || mount == "/" {
		return path
	}
	trimmed := strings.TrimPrefix(path, mount)
	if trimmed == path {
		return path
	}
	if trimmed == "" {
		return "/"
	}
	return trimmed
}

func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

func backendWSURL(backend *url.URL) *url.URL {
	u := *backend
	if backend.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	return &u
}

// wsProxy dials the backend once per client connection and relays frames in
// both directions until either side closes.
type wsProxy struct {
	backend        *url.URL
	requestHeaders map[string]string
	insecure       bool
}

func (p *wsProxy) serve(w http.ResponseWriter, r *http.Request, path string) {
	clientConn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer clientConn.Close(websocket.StatusInternalError, "proxy closing")

	target := *p.backend
	target.Path = path
	target.RawQuery = r.URL.RawQuery

	dialOpts := &websocket.DialOptions{}
	if len(p.requestHeaders) > 0 {
		h := make(http.Header, len(p.requestHeaders))
		for k, v := range p.requestHeaders {
			h.Set(k, v)
		}
		dialOpts.HTTPHeader = h
	}
	if p.insecure {
		dialOpts.HTTPClient = &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}
	}

	ctx := r.Context()
	backendConn, _, err := websocket.Dial(ctx, target.String(), dialOpts)
	if err != nil {
		clientConn.Close(websocket.StatusInternalError, "backend dial failed")
		return
	}
	defer backendConn.Close(websocket.StatusInternalError, "proxy closing")

	done := make(chan struct{}, 2)
	go relay(ctx, clientConn, backendConn, done)
	go relay(ctx, backendConn, clientConn, done)
	<-done
}

// relay copies frames from one side to the other until either direction
// errors; the caller closes both connections as soon as the first relay
// goroutine returns, so the other direction is never awaited.
func relay(ctx context.Context, from, to *websocket.Conn, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()
	for {
		typ, data, err := from.Read(ctx)
		if err != nil {
			return
		}
		if err := to.Write(ctx, typ, data); err != nil {
			return
		}
	}
}
