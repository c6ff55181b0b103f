package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/pkg/game"
	"github.com/tecu23/pairing-server/pkg/messages"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// DefaultSendBuffer is the outbound queue length of a connection
	DefaultSendBuffer = 256
)

// Connection is one websocket client
type Connection struct {
	id       string
	identity game.Identity

	ws   *websocket.Conn // The underlying Websocket connection
	hub  *Hub
	send chan []byte // Buffered channel of outbound messages.

	mu     sync.Mutex // guards send against close
	closed bool

	logger *zap.Logger
}

// NewConnection wraps ws for identity
func NewConnection(
	ws *websocket.Conn,
	hub *Hub,
	identity game.Identity,
	sendBuffer int,
	logger *zap.Logger,
) *Connection {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}

	id := uuid.NewString()
	return &Connection{
		id:       id,
		identity: identity,
		ws:       ws,
		hub:      hub,
		send:     make(chan []byte, sendBuffer),
		logger:   logger.With(zap.String("connection_id", id)),
	}
}

// ID returns the transport level id
func (c *Connection) ID() string { return c.id }

// Identity returns the player this connection speaks for
func (c *Connection) Identity() game.Identity { return c.identity }

// Send queues msg without blocking. Messages to a closed or saturated
// connection are dropped.
func (c *Connection) Send(msg messages.OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Error marshaling JSON", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		c.logger.Warn("send buffer full, dropping message", zap.String("event", msg.Event))
	}
}

func (c *Connection) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadPump handles inbound messages from the client. Each frame is handled
// to completion before the next is read.
func (c *Connection) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.ws.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", zap.Error(err))
			}
			return
		}

		// We only handle text
		if msgType != websocket.TextMessage {
			continue
		}

		c.hub.coordinator.HandleRaw(ctx, c, msg)
	}
}

// WritePump handles outbound messages to the client
func (c *Connection) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.logger.Debug("send channel closed")
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("write error", zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
