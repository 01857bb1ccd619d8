// Package dashboard serves a small live view of the crawler's counters.
package dashboard

import (
	"log/slog"
	"net/http"
)

// Dashboard serves the HTML page. The page polls /api/stats itself.
type Dashboard struct {
	logger *slog.Logger
}

// NewDashboard creates the dashboard handler.
func NewDashboard(logger *slog.Logger) *Dashboard {
	return &Dashboard{
		logger: logger.With("component", "dashboard"),
	}
}

func (d *Dashboard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(dashboardHTML)); err != nil {
		d.logger.Debug("dashboard write failed", "error", err)
	}
}
