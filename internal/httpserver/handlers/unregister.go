package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/modulant/lattice/internal/httpserver/deps"
	"github.com/modulant/lattice/internal/logger"
)

func Unregister(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := d.Registry.Unregister(id); err != nil {
			writeError(w, err)
			return
		}
		d.Logger.Info("service unregistered", logger.String("service_id", id))
		w.WriteHeader(http.StatusNoContent)
	}
}
