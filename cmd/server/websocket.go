package main

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/pkg/game"
	"github.com/tecu23/pairing-server/pkg/server"
)

// handleWebSocket handles WebSocket connections
func (app *application) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Upgrade HTTP connection to WebSocket
	ws, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		app.Logger.Error("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}

	// Every connection plays under a fresh identity
	identity := game.Identity(uuid.NewString())

	conn := server.NewConnection(ws, app.Hub, identity, app.Config.SendBuffer, app.Logger)
	app.Hub.Register(conn)

	app.Logger.Info("WebSocket connection established",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("identity", string(identity)))

	// Start connection read/write goroutines. The request context ends with
	// the handler, so the read loop gets the server lifetime context.
	go conn.WritePump()
	go conn.ReadPump(app.baseContext())
}
