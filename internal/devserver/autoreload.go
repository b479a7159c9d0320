package devserver

import (
	_ "embed"
	"net/http"

	"github.com/coder/websocket"
)

//go:embed autoreload.js
var autoreloadJS []byte

const autoreloadWSPath = "/.well-known/trunk/ws"
const autoreloadJSPath = "/.well-known/trunk/autoreload.js"

func (s *Server) handleAutoreloadJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write(autoreloadJS)
}

func (s *Server) handleAutoreloadWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.cfg.AllowedOrigins,
	})
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 8)}
	s.hub.register <- c
	go c.writePump()
	c.readPump(s.hub)
}
