package webchat

import (
	"sync"

	"golang.org/x/net/websocket"
)

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// Hub tracks the open WebSocket for each web chat user so messages can be
// pushed outside the request loop.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*wsConn // user id -> active connection
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*wsConn)}
}

func (h *Hub) attach(userID string, c *wsConn) {
	h.mu.Lock()
	h.conns[userID] = c
	h.mu.Unlock()
}

// detach drops c unless a newer connection for the user replaced it.
func (h *Hub) detach(userID string, c *wsConn) {
	h.mu.Lock()
	if h.conns[userID] == c {
		delete(h.conns, userID)
	}
	h.mu.Unlock()
}

// Push sends msg to the user's open connection and reports whether it was
// delivered.
func (h *Hub) Push(userID string, msg OutboundMessage) bool {
	h.mu.RLock()
	c, ok := h.conns[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.send(msg) == nil
}

// Len reports the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
