package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/httpserver/deps"
)

type servicesResponse struct {
	Services []*lattice.ServiceRecord `json:"services"`
	Count    int                      `json:"count"`
}

func ListServices(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := d.Registry.List()
		writeJSON(w, http.StatusOK, servicesResponse{
			Services: services,
			Count:    len(services),
		})
	}
}

func GetService(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, ok := d.Registry.Get(id)
		if !ok {
			writeError(w, lattice.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}
