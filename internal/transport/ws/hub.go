// Package ws streams raid notices to HUD renderers over websocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/raid-controller/internal/arbitration"
	"github.com/example/raid-controller/internal/logging"
	"github.com/example/raid-controller/internal/session"
)

const (
	// TypeNotice tags notice frames.
	TypeNotice = "NOTICE"

	defaultQueueSize = 64
	writeTimeout     = 5 * time.Second
	readTimeout      = 60 * time.Second
)

// Frame is the JSON message written for each notice.
type Frame struct {
	Type   string         `json:"type"`
	Notice session.Notice `json:"notice"`
}

type client struct {
	id    uint64
	actor *arbitration.ActorID
	out   chan []byte
}

func (c *client) wants(n session.Notice) bool {
	return c.actor == nil || *c.actor == n.Actor
}

// Hub fans notices out to connected subscribers. Slow subscribers lose
// notices rather than blocking the engine.
type Hub struct {
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	queueSize int

	mu      sync.Mutex
	clients map[uint64]*client
	closed  bool
	nextID  atomic.Uint64
	dropped atomic.Uint64
}

// Option customizes a Hub.
type Option func(*Hub)

// WithQueueSize sets the per-subscriber buffer.
func WithQueueSize(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.queueSize = n
		}
	}
}

// WithCheckOrigin replaces the origin check of the upgrader.
func WithCheckOrigin(fn func(*http.Request) bool) Option {
	return func(h *Hub) {
		if fn != nil {
			h.upgrader.CheckOrigin = fn
		}
	}
}

// NewHub returns an empty hub.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		logger:    logger,
		queueSize: defaultQueueSize,
		clients:   make(map[uint64]*client),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Notify implements session.Notifier.
func (h *Hub) Notify(n session.Notice) {
	payload, err := json.Marshal(Frame{Type: TypeNotice, Notice: n})
	if err != nil {
		h.logger.Error("failed to encode notice", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		if !c.wants(n) {
			continue
		}
		select {
		case c.out <- payload:
		default:
			h.dropped.Add(1)
		}
	}
}

// Clients reports the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Dropped reports how many notices were discarded for full queues.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Close disconnects every subscriber and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		close(c.out)
		delete(h.clients, id)
	}
}

func (h *Hub) register(actor *arbitration.ActorID) (*client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, false
	}
	c := &client{id: h.nextID.Add(1), actor: actor, out: make(chan []byte, h.queueSize)}
	h.clients[c.id] = c
	return c, true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		close(c.out)
		delete(h.clients, c.id)
	}
}

// Handler upgrades the request and streams notices until either side closes.
// An actor_id query parameter restricts the stream to one actor.
func (h *Hub) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		var actor *arbitration.ActorID
		if raw := strings.TrimSpace(r.URL.Query().Get("actor_id")); raw != "" {
			id, err := arbitration.ParseActorID(raw)
			if err != nil {
				http.Error(rw, "invalid actor_id", http.StatusBadRequest)
				return
			}
			actor = &id
		}

		logger := logging.Resolve(r.Context(), h.logger, "component", "notice_hub")

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		c, ok := h.register(actor)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		}
		defer h.unregister(c)
		logger.Info("notice subscriber connected", "subscriber", c.id)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-c.out:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
						cancel()
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Subscribers never send data; reading only detects the close.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			if ctx.Err() != nil {
				break
			}
		}
		cancel()

		select {
		case <-writeDone:
		case <-time.After(500 * time.Millisecond):
		}
		logger.Info("notice subscriber disconnected", "subscriber", c.id)
	}
}

var _ session.Notifier = (*Hub)(nil)
