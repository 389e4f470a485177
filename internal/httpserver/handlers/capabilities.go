package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/httpserver/deps"
)

type capabilitiesResponse struct {
	Capabilities map[string][]string `json:"capabilities"`
}

// ListCapabilities returns every capability with its active providers.
func ListCapabilities(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, capabilitiesResponse{
			Capabilities: d.Registry.Capabilities(),
		})
	}
}

// GetCapability resolves a single capability to its best provider.
func GetCapability(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		providers := d.Registry.FindByCapability(name)
		best, err := lattice.FindOne(providers, name)
		if err != nil {
			writeError(w, fmt.Errorf("%w: no active provider for capability %q", lattice.ErrNotFound, name))
			return
		}
		writeJSON(w, http.StatusOK, best.Record)
	}
}
