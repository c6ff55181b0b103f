package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/pkg/archive"
)

// handleGetGame returns the archived record of a finished match
func (app *application) handleGetGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		app.writeError(w, http.StatusBadRequest, "invalid game id")
		return
	}

	if app.Archive == nil {
		app.writeError(w, http.StatusNotFound, "game not found")
		return
	}

	rec, err := app.Archive.Get(r.Context(), id)
	if errors.Is(err, archive.ErrNotFound) {
		app.writeError(w, http.StatusNotFound, "game not found")
		return
	}
	if err != nil {
		app.Logger.Error("loading archived game", zap.String("match_id", id), zap.Error(err))
		app.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	app.writeJSON(w, http.StatusOK, rec)
}

// handleRecentGames lists the latest finished matches
func (app *application) handleRecentGames(w http.ResponseWriter, r *http.Request) {
	if app.Archive == nil {
		app.writeJSON(w, http.StatusOK, []archive.Record{})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			app.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	recs, err := app.Archive.Recent(r.Context(), limit)
	if err != nil {
		app.Logger.Error("listing archived games", zap.Error(err))
		app.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	app.writeJSON(w, http.StatusOK, recs)
}
