package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/modulant/lattice/internal/httpserver/deps"
)

type heartbeatResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

func Heartbeat(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := d.Registry.Heartbeat(id); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, heartbeatResponse{Acknowledged: true})
	}
}
