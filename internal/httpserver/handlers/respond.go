// Package handlers implements the registry's HTTP API. Each handler is a
// constructor taking the shared deps and returning an http.HandlerFunc.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/modulant/lattice"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain sentinels onto HTTP statuses. Anything unmapped
// is a 500 with a generic body so internals never leak to callers.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lattice.ErrValidation), errors.Is(err, lattice.ErrSsrfRejected):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, lattice.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
