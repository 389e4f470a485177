package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/modulant/lattice/internal/httpserver/deps"
	"github.com/modulant/lattice/internal/httpserver/handlers"
	"github.com/modulant/lattice/internal/httpserver/mw"
)

func init() { Register(registerLifecycle) }

// Mutating lifecycle endpoints share a per-IP rate limit.
func registerLifecycle(r chi.Router, d deps.Deps) {
	limited := r.With(
		mw.EnforceHost(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RegisterBurst,
			RefillPerIPPerMin: d.RegisterPerMinute,
			TrustProxy:        d.TrustProxy,
		}),
	)
	limited.Post("/api/register", handlers.Register(d))
	limited.Delete("/api/unregister/{id}", handlers.Unregister(d))
	limited.Post("/api/heartbeat/{id}", handlers.Heartbeat(d))
}
