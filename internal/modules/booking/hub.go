package booking

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) send(message any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(message)
}

// Hub holds at most one live connection per booking session.
type Hub struct {
	connections map[string]*subscriber
	mutex       sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		connections: make(map[string]*subscriber),
	}
}

// Register replaces any previous connection of the session.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if old, exists := h.connections[sessionID]; exists && old.conn != conn {
		_ = old.conn.Close()
	}
	h.connections[sessionID] = &subscriber{conn: conn}
}

// Unregister drops conn if it is still the session's connection.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if sub, exists := h.connections[sessionID]; exists && sub.conn == conn {
		_ = sub.conn.Close()
		delete(h.connections, sessionID)
	}
}

// Publish sends event to the session's live connection and reports whether
// it was delivered.
func (h *Hub) Publish(sessionID string, event any) bool {
	h.mutex.RLock()
	sub, exists := h.connections[sessionID]
	h.mutex.RUnlock()

	if !exists {
		return false
	}

	if err := sub.send(event); err != nil {
		h.Unregister(sessionID, sub.conn)
		return false
	}
	return true
}

func (h *Hub) IsLive(sessionID string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.connections[sessionID]
	return exists
}

func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	return len(h.connections)
}

func (h *Hub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for id, sub := range h.connections {
		_ = sub.conn.Close()
		delete(h.connections, id)
	}
}
