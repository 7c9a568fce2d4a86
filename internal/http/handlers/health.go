package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status     string `json:"status"`
	ActiveRuns int    `json:"active_runs"`
}

// Health reports liveness and how many generation runs are in flight.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if a.Registry != nil {
		resp.ActiveRuns = a.Registry.ActiveRuns()
	}
	a.json(w, http.StatusOK, resp)
}
