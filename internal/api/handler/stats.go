package handler

import (
	"net/http"

	"github.com/jobswipe/engine/internal/api/response"
	"github.com/jobswipe/engine/pkg/models"
)

// StatsSource exposes the lifecycle tallies and the retained metrics view.
type StatsSource interface {
	Counts() models.RequestCounts
}

// SnapshotSource exposes the most recent metrics snapshot and active alerts.
type SnapshotSource interface {
	LatestSnapshot() (models.MetricsSnapshot, bool)
	ActiveAlerts() []models.AlertEvent
}

// NewStatsHandler returns an http.HandlerFunc for GET /api/v1/stats.
func NewStatsHandler(counts StatsSource, snapshots SnapshotSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"counts": counts.Counts(),
		}

		if snapshots != nil {
			if snap, ok := snapshots.LatestSnapshot(); ok {
				body["snapshot"] = snap
			}
			alerts := snapshots.ActiveAlerts()
			if alerts == nil {
				alerts = []models.AlertEvent{}
			}
			body["active_alerts"] = alerts
		}

		response.JSON(w, body)
	}
}
