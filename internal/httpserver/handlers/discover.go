package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/httpserver/deps"
)

type discoverRequest struct {
	CapabilitiesRequired []string `json:"capabilities_required"`
	CapabilitiesOptional []string `json:"capabilities_optional"`
}

type discoverResponse struct {
	Matches []*lattice.Match `json:"matches"`
	Count   int              `json:"count"`
}

// Discover ranks active services against a capability query. An empty
// required list matches every active service, and an empty result is a
// 200 with an empty list, not an error.
func Discover(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req discoverRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: malformed request body", lattice.ErrValidation))
			return
		}
		matches := lattice.Discover(d.Registry.List(), req.CapabilitiesRequired, req.CapabilitiesOptional)
		writeJSON(w, http.StatusOK, discoverResponse{
			Matches: matches,
			Count:   len(matches),
		})
	}
}
