// Package hub fans scheduler events out to WebSocket clients. Messages
// are JSON text frames with an envelope {type, ts, data}; the first
// frame on connect is "state_init" carrying a full state snapshot.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

type envelope struct {
	Type string `json:"type"`
	Ts   int64  `json:"ts"`
	Data any    `json:"data,omitempty"`
}

// SnapshotFunc builds the state_init payload for a new client.
type SnapshotFunc func() (any, error)

// Hub tracks connected clients and broadcasts frames to all of them.
// One slow client never blocks the rest: each client has its own send
// queue and is dropped when the queue fills.
type Hub struct {
	logger   *slog.Logger
	snapshot SnapshotFunc

	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	mu      sync.Mutex
	clients map[*client]struct{}

	sendBuf int
}

// Config tunes the hub queues. Zero values use defaults.
type Config struct {
	SendBuf      int // per-client outbound queue
	BroadcastBuf int // hub inbound queue
}

// New constructs a hub. Call Run(ctx) to start it.
func New(logger *slog.Logger, snapshot SnapshotFunc, cfg Config) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 32
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 128
	}
	return &Hub{
		logger:     logger,
		snapshot:   snapshot,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		clients:    make(map[*client]struct{}),
		sendBuf:    sendBuf,
	}
}

// Emit satisfies the engine's event sink. It marshals the envelope and
// enqueues it for broadcast; on a full queue the frame is dropped, the
// scheduler never blocks on the UI.
func (h *Hub) Emit(event string, data any) {
	msg, err := json.Marshal(envelope{Type: event, Ts: time.Now().Unix(), Data: data})
	if err != nil {
		h.logger.Warn("ws marshal failed", "type", event, "error", err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast queue full, dropping", "type", event)
	}
}

// Run processes hub events until ctx is canceled, then disconnects all
// clients.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping")
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws client connected", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.remove(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*client
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()
			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeClose(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeClose(c.send)
		h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover() // close of closed channel on racy double-remove
	}()
	close(ch)
}

type client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	logger     *slog.Logger
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Info("ws write pump exiting", "remote_addr", c.remoteAddr, "error", err)
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) readPump() {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			c.hub.unregister <- c
			return
		}
	}
}

var upgrader = websocket.Upgrader{
	// Local-only daemon, same trust domain as the caller.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Register mounts the WS handler on the mux.
func (h *Hub) Register(mux *http.ServeMux, path string) {
	mux.HandleFunc(path, h.handleWS)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	c := &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, h.sendBuf),
		remoteAddr: r.RemoteAddr,
		logger:     h.logger,
	}
	h.register <- c

	// The pumps outlive the handler: net/http cancels r.Context() when
	// the handler returns, which would tear the connection down early.
	go c.writePump()
	go c.readPump()

	if h.snapshot == nil {
		return
	}
	snap, err := h.snapshot()
	if err != nil {
		h.logger.Warn("ws snapshot failed", "error", err)
		return
	}
	msg, err := json.Marshal(envelope{Type: "state_init", Ts: time.Now().Unix(), Data: snap})
	if err != nil {
		h.logger.Warn("ws snapshot marshal failed", "error", err)
		return
	}
	select {
	case c.send <- msg:
	default:
		h.unregister <- c
	}
}
