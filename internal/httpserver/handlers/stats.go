package handlers

import (
	"net/http"

	"github.com/modulant/lattice/internal/httpserver/deps"
)

func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Registry.Stats())
	}
}
