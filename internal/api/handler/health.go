package handler

import (
	"context"
	"net/http"

	"github.com/jobswipe/engine/internal/api/response"
	"github.com/jobswipe/engine/pkg/models"
)

// HealthSource derives the engine health report on demand.
type HealthSource interface {
	Health(ctx context.Context) models.HealthReport
}

// Pinger checks connectivity to an external dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /health. The status
// code follows the derived engine health: 200 for healthy and degraded, 503
// for unhealthy or when a dependency is unreachable.
func NewHealthHandler(src HealthSource, db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := src.Health(r.Context())

		services := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}
		depsDown := false
		if db != nil {
			if err := db.Ping(r.Context()); err != nil {
				services["database"] = "degraded"
				depsDown = true
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				services["cache"] = "degraded"
				depsDown = true
			}
		}

		status := http.StatusOK
		if report.Status == models.HealthUnhealthy || depsDown {
			status = http.StatusServiceUnavailable
		}

		response.Status(w, status, map[string]any{
			"status":           report.Status,
			"queue_depth":      report.QueueDepth,
			"processing_count": report.ProcessingCount,
			"failure_rate":     report.FailureRate,
			"alerts":           report.Alerts,
			"services":         services,
		})
	}
}
