package handlers

import (
	"net/http"
)

// Metrics reports live session counts per phase.
func (a *App) Metrics(w http.ResponseWriter, r *http.Request) {
	stats := a.Sessions.Stats()
	a.json(w, http.StatusOK, map[string]any{
		"sessions":        stats.Sessions,
		"previews":        stats.Previews,
		"phase_idle":      stats.Idle,
		"phase_analyzing": stats.Analyzing,
		"phase_success":   stats.Success,
		"phase_error":     stats.Error,
	})
}
