package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/modulant/lattice/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Error  string `json:"error,omitempty"`
	Detail int    `json:"services,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz reports readiness plus per-component detail. A degraded snapshot
// store does not flip readiness: the in-memory registry is authoritative.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		components := map[string]componentStatus{
			"registry": {OK: true, Detail: d.Registry.Count()},
			"snapshot": checkSnapshotStore(d),
		}
		writeJSON(w, http.StatusOK, readyzResponse{
			Ready:      true,
			Components: components,
		})
	}
}

func checkSnapshotStore(d deps.Deps) componentStatus {
	if d.RedisClient == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Mode: "degraded", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: "optimal"}
}
