package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/modulant/lattice/internal/httpserver/deps"
	"github.com/modulant/lattice/internal/httpserver/handlers"
	"github.com/modulant/lattice/internal/httpserver/mw"
)

func init() { Register(registerServices) }

func registerServices(r chi.Router, d deps.Deps) {
	sub := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	sub.Get("/api/services", handlers.ListServices(d))
	sub.Get("/api/services/{id}", handlers.GetService(d))
	sub.Get("/api/stats", handlers.Stats(d))
}
