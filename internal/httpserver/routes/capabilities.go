package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/modulant/lattice/internal/httpserver/deps"
	"github.com/modulant/lattice/internal/httpserver/handlers"
	"github.com/modulant/lattice/internal/httpserver/mw"
)

func init() { Register(registerCapabilities) }

func registerCapabilities(r chi.Router, d deps.Deps) {
	sub := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	sub.Get("/api/capabilities", handlers.ListCapabilities(d))
	sub.Get("/api/capabilities/{name}", handlers.GetCapability(d))
	sub.Post("/api/discover", handlers.Discover(d))
}
