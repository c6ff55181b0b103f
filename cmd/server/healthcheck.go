package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type healthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	Matches     int    `json:"matches"`
	Queued      int    `json:"queued"`
	Connections int    `json:"connections"`
	Archive     string `json:"archive"`
}

// handleHealth handles the GET /health endpoint
func (app *application) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:      "ok",
		Uptime:      time.Since(app.StartTime).Round(time.Second).String(),
		Matches:     app.Registry.Count(),
		Queued:      app.Matchmaker.Len(),
		Connections: app.Registry.ConnectionCount(),
		Archive:     "disabled",
	}

	if app.Archive != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp.Archive = "ok"
		if err := app.Archive.Ping(ctx); err != nil {
			app.Logger.Warn("archive ping failed", zap.Error(err))
			resp.Archive = "unavailable"
		}
	}

	app.writeJSON(w, http.StatusOK, resp)
}

func (app *application) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		app.Logger.Warn("writing response", zap.Error(err))
	}
}

func (app *application) writeError(w http.ResponseWriter, status int, message string) {
	app.writeJSON(w, status, map[string]string{"error": message})
}
