// Package server carries websocket connections to the coordinator.
package server

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/pkg/coordinator"
)

// Hub keeps track of all active connections and is responsible for
// registering and unregistering them. Inbound frames bypass the hub and go
// straight to the coordinator so different matches proceed in parallel.
type Hub struct {
	mu          sync.RWMutex         // Mutex to protect direct access to the connections map.
	connections map[*Connection]bool // Registered connections

	register   chan *Connection // Incoming registration
	unregister chan *Connection // Incoming unregistration
	done       chan struct{}

	coordinator *coordinator.Coordinator
	logger      *zap.Logger
}

// NewHub creates a new hub
func NewHub(coord *coordinator.Coordinator, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		done:        make(chan struct{}),
		coordinator: coord,
		logger:      logger,
	}
}

// Run is the main execution of the hub. It returns when ctx is cancelled,
// after closing every remaining connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case conn := <-h.register:
			h.registerConnection(conn)

		case conn := <-h.unregister:
			h.unregisterConnection(conn)

		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Register hands a new connection to the hub
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.done:
		conn.close()
	}
}

// Unregister removes a connection from the hub
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// Count returns the number of registered connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.connections)
}

func (h *Hub) registerConnection(conn *Connection) {
	h.mu.Lock()
	h.connections[conn] = true
	n := len(h.connections)
	h.mu.Unlock()

	h.coordinator.Connect(conn)
	h.logger.Debug("new connection registered", zap.Int("connections", n))
}

func (h *Hub) unregisterConnection(conn *Connection) {
	h.mu.Lock()
	_, ok := h.connections[conn]
	delete(h.connections, conn)
	n := len(h.connections)
	h.mu.Unlock()

	if !ok {
		return
	}

	h.coordinator.Disconnect(conn)
	conn.close()
	h.logger.Debug("connection unregistered", zap.Int("connections", n))
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.connections))
	for conn := range h.connections {
		conns = append(conns, conn)
	}
	h.connections = make(map[*Connection]bool)
	h.mu.Unlock()

	for _, conn := range conns {
		h.coordinator.Disconnect(conn)
		conn.close()
	}

	h.logger.Info("hub stopped", zap.Int("closed", len(conns)))
}
