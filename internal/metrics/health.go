package metrics

import (
	"github.com/jobswipe/engine/internal/config"
	"github.com/jobswipe/engine/pkg/models"
)

// lifetimeFailureLimit marks the engine degraded when more than this share
// of all finished work has failed.
const lifetimeFailureLimit = 0.10

// buildReport derives health from one snapshot plus the unresolved alerts.
// Healthy means no active issue class; one class is degraded; co-occurring
// classes are unhealthy. Health is a pure function of its inputs.
func buildReport(snap models.MetricsSnapshot, active []models.AlertEvent, cfg config.MetricsConfig) models.HealthReport {
	classes := make(map[string]bool)
	for _, a := range active {
		classes[string(a.Type)] = true
	}

	failureRate := snap.Counts.FailureRate()
	if failureRate > lifetimeFailureLimit {
		classes["failure_rate"] = true
	}
	if cfg.BacklogLimit > 0 && snap.Counts.Queued > cfg.BacklogLimit && snap.Counts.Processing == 0 {
		classes[string(models.AlertTypeBacklog)] = true
	}

	status := models.HealthHealthy
	switch {
	case len(classes) > 1:
		status = models.HealthUnhealthy
	case len(classes) == 1:
		status = models.HealthDegraded
	}

	alerts := active
	if alerts == nil {
		alerts = []models.AlertEvent{}
	}
	return models.HealthReport{
		Status:          status,
		QueueDepth:      snap.Counts.Queued,
		ProcessingCount: snap.Counts.Processing,
		FailureRate:     failureRate,
		Alerts:          alerts,
	}
}
