package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modulant/lattice"
	"github.com/modulant/lattice/internal/httpserver/deps"
	"github.com/modulant/lattice/internal/logger"
)

type registerResponse struct {
	ServiceID string `json:"service_id"`
}

func Register(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec lattice.ServiceRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			writeError(w, fmt.Errorf("%w: malformed request body", lattice.ErrValidation))
			return
		}

		id, err := d.Registry.Register(&rec)
		if err != nil {
			d.Logger.Warn("registration rejected",
				logger.String("service_id", rec.ID),
				logger.Error(err))
			writeError(w, err)
			return
		}

		d.Logger.Info("service registered",
			logger.String("service_id", id),
			logger.String("name", rec.Name),
			logger.String("mode", string(rec.Mode)),
			logger.Strings("capabilities", rec.Capabilities))
		writeJSON(w, http.StatusCreated, registerResponse{ServiceID: id})
	}
}
