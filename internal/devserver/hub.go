package devserver

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
)

// message is the JSON payload streamed to autoreload clients. spec.md names
// {"reload":true} explicitly; buildFailure is a supplemented addition
// (grounded on original_source/src/ws.rs's ClientMessage::BuildFailure)
// surfaced for operators who want to log build failures in the console.
type message struct {
	Reload       bool   `json:"reload,omitempty"`
	BuildFailure string `json:"buildFailure,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// hub fans build-status messages out to every connected autoreload client.
// No catch-up semantics: a client connecting between two broadcasts simply
// waits for the next one (DESIGN.md Open Question decision #2).
type hub struct {
	mu          sync.RWMutex
	clients     map[*client]struct{}
	register    chan *client
	unregister  chan *client
	broadcastCh chan []byte
}

func newHub() *hub {
	return &hub{
		clients:     make(map[*client]struct{}),
		register:    make(chan *client, 64),
		unregister:  make(chan *client, 64),
		broadcastCh: make(chan []byte),
	}
}

func (h *hub) broadcast(msg message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.broadcastCh <- data
}

func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.drop(c)
		case data := <-h.broadcastCh:
			h.mu.RLock()
			var dead []*client
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					dead = append(dead, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range dead {
				h.drop(c)
			}
		}
	}
}

func (h *hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// closeAll force-closes every connected client, for server shutdown.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}
	h.clients = make(map[*client]struct{})
}

func (c *client) readPump(h *hub) {
	defer func() {
		h.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()
	c.conn.SetReadLimit(maxMessageSize)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), pongWait)
		_, _, err := c.conn.Read(ctx)
		cancel()
		if err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
