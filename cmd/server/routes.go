package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(app.logRequests)

	r.Get("/health", app.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(app.authenticate)

		r.Get("/ws", app.handleWebSocket)
		r.Get("/games", app.handleRecentGames)
		r.Get("/games/{id}", app.handleGetGame)
	})

	return r
}
