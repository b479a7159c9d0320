// Package devserver implements the dev-mode HTTP server: static asset
// serving with SPA fallback, an autoreload WebSocket endpoint, and arbitrary
// per-response header injection. Modeled on the teacher's
// internal/server.PreviewServer, generalized from its templ-preview-plus-JSON-API
// shape to trunkgo's static-dist-plus-autoreload shape.
package devserver

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Logger is the minimal structured-logging surface devserver needs.
type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Infow(string, ...interface{}) {}
func (nopLogger) Warnw(string, ...interface{}) {}

// Config describes how the dev server binds and what it serves.
type Config struct {
	DistDir   string
	IndexName string

	Addresses []string
	Port      int

	Headers map[string]string

	NoSPA          bool
	NoAutoreload   bool
	WSProtocol     string
	AllowedOrigins []string

	TLSCertPath string
	TLSKeyPath  string

	// ProxyRoutes mounts additional handlers (reverse proxy rules) ahead of
	// the static/SPA-fallback handler, keyed by their http.ServeMux pattern.
	ProxyRoutes map[string]http.Handler

	Logger Logger
}

// Server is a running (or not-yet-started) dev server instance.
type Server struct {
	cfg     Config
	hub     *hub
	servers []*http.Server
	cancel  context.CancelFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New constructs a Server. Call Start to bind listeners.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if len(cfg.Addresses) == 0 {
		cfg.Addresses = []string{"127.0.0.1"}
	}
	return &Server{cfg: cfg, hub: newHub(), stopCh: make(chan struct{})}
}

// Start binds one listener per configured address and serves until ctx is
// canceled or Shutdown is called. It returns once all listeners have
// stopped, or immediately with an error if any fails to bind.
func (s *Server) Start(ctx context.Context) error {
	hubCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.hub.run(hubCtx)

	mux := http.NewServeMux()
	for pattern, h := range s.cfg.ProxyRoutes {
		mux.Handle(pattern, h)
	}
	mux.Handle("/", s.staticHandler())
	if !s.cfg.NoAutoreload {
		mux.HandleFunc(autoreloadJSPath, s.handleAutoreloadJS)
		mux.HandleFunc(autoreloadWSPath, s.handleAutoreloadWS)
	}

	var handler http.Handler = mux
	if len(s.cfg.Headers) > 0 {
		handler = s.withExtraHeaders(handler)
	}

	useTLS := s.cfg.TLSCertPath != "" && s.cfg.TLSKeyPath != ""

	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range s.cfg.Addresses {
		bind := net.JoinHostPort(addr, portString(s.cfg.Port))
		srv := &http.Server{Addr: bind, Handler: handler}
		s.servers = append(s.servers, srv)

		g.Go(func() error {
			s.cfg.Logger.Infow("dev server listening", "address", bind, "tls", useTLS)
			var err error
			if useTLS {
				err = srv.ListenAndServeTLS(s.cfg.TLSCertPath, s.cfg.TLSKeyPath)
			} else {
				err = srv.ListenAndServe()
			}
			if err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-s.stopCh:
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

const shutdownGrace = 5 * time.Second

// Shutdown gracefully stops all listeners and closes every autoreload
// client connection, mirroring the teacher's PreviewServer.Shutdown.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.hub.closeAll()
	if s.cancel != nil {
		s.cancel()
	}
	var firstErr error
	for _, srv := range s.servers {
		if err := srv.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BroadcastReload notifies every connected autoreload client to reload.
func (s *Server) BroadcastReload() {
	s.hub.broadcast(message{Reload: true})
}

// BroadcastBuildFailure notifies connected clients that a build failed,
// without triggering a reload.
func (s *Server) BroadcastBuildFailure(reason string) {
	s.hub.broadcast(message{BuildFailure: reason})
}

func (s *Server) withExtraHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range s.cfg.Headers {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

func portString(port int) string {
	if port == 0 {
		return "8080"
	}
	return strconv.Itoa(port)
}
