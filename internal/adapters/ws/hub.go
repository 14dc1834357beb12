package ws

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"chime-together/pkg/logattr"

	"github.com/gorilla/websocket"
)

const outboundQueueSize = 64

// Conn is one user's live websocket with a bounded outbound queue for
// backpressure.
type Conn struct {
	UserID string
	WS     *websocket.Conn
	Out    chan []byte
}

// Hub tracks the live connection per user. SendToUser silently no-ops for
// users without a connection; an offline receiver is not an error.
//
// A connection's queue is closed exactly once, under the write lock, at the
// moment it leaves the map. SendToUser holds the read lock across the send,
// so a push can never hit a closed queue.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Conn),
		logger: logger,
	}
}

func (h *Hub) Set(userId string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old := h.conns[userId]; old != nil {
		close(old.Out)
	}
	h.conns[userId] = c
}

func (h *Hub) Get(userId string) (*Conn, bool) {
	h.mu.RLock()
	c, ok := h.conns[userId]
	h.mu.RUnlock()
	return c, ok
}

// Del removes c if it is still the registered connection for userId. A stale
// instance, already replaced by a reconnect, is left alone so the fresh
// connection survives the old read pump's teardown.
func (h *Hub) Del(userId string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userId] != c {
		return
	}
	delete(h.conns, userId)
	close(c.Out)
}

func (h *Hub) Len() int {
	h.mu.RLock()
	n := len(h.conns)
	h.mu.RUnlock()
	return n
}

// SendToUser marshals payload and enqueues it on the user's connection.
// No connection, or a full queue, is a normal empty effect.
func (h *Hub) SendToUser(userId string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling push payload: %w", err)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[userId]
	if !ok {
		h.logger.Debug("no active connection, push skipped", logattr.UserId(userId))
		return nil
	}
	select {
	case c.Out <- data:
	default:
		h.logger.Warn("outbound queue full, push dropped", logattr.UserId(userId))
	}
	return nil
}
