package metrics

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jobswipe/engine/internal/config"
	"github.com/jobswipe/engine/pkg/models"
)

// evaluateRules checks every alert rule independently against one snapshot
// and returns the alerts that fired.
func evaluateRules(snap models.MetricsSnapshot, cfg config.MetricsConfig) []models.AlertEvent {
	var fired []models.AlertEvent
	now := snap.Timestamp

	if snap.WindowFinished > 0 && snap.ErrorRate > cfg.ErrorRateThreshold {
		fired = append(fired, newAlert(now, models.AlertTypeError, models.SeverityHigh,
			"error_rate", snap.ErrorRate, cfg.ErrorRateThreshold,
			fmt.Sprintf("error rate %.2f exceeds threshold %.2f over the trailing window",
				snap.ErrorRate, cfg.ErrorRateThreshold)))
	}

	if snap.WindowFinished > 0 && snap.AvgDuration > cfg.ResponseTimeThreshold {
		fired = append(fired, newAlert(now, models.AlertTypePerformance, models.SeverityMedium,
			"avg_processing_time",
			float64(snap.AvgDuration.Milliseconds()),
			float64(cfg.ResponseTimeThreshold.Milliseconds()),
			fmt.Sprintf("average processing time %s exceeds threshold %s",
				snap.AvgDuration.Round(time.Millisecond), cfg.ResponseTimeThreshold)))
	}

	if cfg.MemoryPercentLimit > 0 && snap.Host.MemoryPercent > cfg.MemoryPercentLimit {
		fired = append(fired, newAlert(now, models.AlertTypeSystem, models.SeverityHigh,
			"memory_percent", snap.Host.MemoryPercent, cfg.MemoryPercentLimit,
			fmt.Sprintf("host memory usage %.1f%% exceeds limit %.1f%%",
				snap.Host.MemoryPercent, cfg.MemoryPercentLimit)))
	}

	if cfg.CPUPercentLimit > 0 && snap.Host.CPUPercent > cfg.CPUPercentLimit {
		fired = append(fired, newAlert(now, models.AlertTypeSystem, models.SeverityHigh,
			"cpu_percent", snap.Host.CPUPercent, cfg.CPUPercentLimit,
			fmt.Sprintf("host CPU usage %.1f%% exceeds limit %.1f%%",
				snap.Host.CPUPercent, cfg.CPUPercentLimit)))
	}

	// A full backlog with zero workers draining it means dispatch has stalled.
	if cfg.BacklogLimit > 0 && snap.Counts.Queued > cfg.BacklogLimit && snap.Counts.Processing == 0 {
		fired = append(fired, newAlert(now, models.AlertTypeBacklog, models.SeverityHigh,
			"queue_backlog", float64(snap.Counts.Queued), float64(cfg.BacklogLimit),
			fmt.Sprintf("%d requests queued with no active workers", snap.Counts.Queued)))
	}

	return fired
}

func newAlert(ts time.Time, typ models.AlertType, sev models.AlertSeverity,
	metric string, observed, threshold float64, msg string) models.AlertEvent {
	return models.AlertEvent{
		ID:            uuid.New(),
		Type:          typ,
		Severity:      sev,
		Metric:        metric,
		ObservedValue: observed,
		Threshold:     threshold,
		Message:       msg,
		Timestamp:     ts,
	}
}
