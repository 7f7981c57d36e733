package websocket

import (
	"sync"

	"ai-chatstream-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Hub tracks the live chat connections so shutdown can close them and
// metrics can count them.
type Hub struct {
	// Registered connections by id.
	conns map[uuid.UUID]*Conn

	mu sync.RWMutex

	onChange func(active int)

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		conns:    make(map[uuid.UUID]*Conn),
		onChange: func(int) {},
		logger:   log,
	}
}

// OnChange registers a callback that receives the connection count after
// every register and unregister.
func (h *Hub) OnChange(fn func(active int)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	h.conns[c.ID] = c
	n := len(h.conns)
	notify := h.onChange
	h.mu.Unlock()

	notify(n)
	h.logger.Debug("Hub", "Connection registered", map[string]interface{}{"conn_id": c.ID.String(), "active": n})
}

func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	if _, ok := h.conns[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c.ID)
	n := len(h.conns)
	notify := h.onChange
	h.mu.Unlock()

	notify(n)
	h.logger.Debug("Hub", "Connection unregistered", map[string]interface{}{"conn_id": c.ID.String(), "active": n})
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// CloseAll closes every registered connection. Their handlers observe the
// disconnect and unregister themselves.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Close()
	}
	h.logger.Info("Hub", "Closed all connections", map[string]interface{}{"count": len(conns)})
}
