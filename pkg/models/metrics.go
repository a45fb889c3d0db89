package models

import "time"

// RequestCounts are the point-in-time lifecycle tallies of the request store.
// Live counts reflect the current sets; Total* are lifetime counters that
// survive requests moving to history.
type RequestCounts struct {
	Queued         int   `json:"queued"`
	Processing     int   `json:"processing"`
	Completed      int   `json:"completed"`
	Failed         int   `json:"failed"`
	Cancelled      int   `json:"cancelled"`
	TotalSubmitted int64 `json:"total_submitted"`
	TotalCompleted int64 `json:"total_completed"`
	TotalFailed    int64 `json:"total_failed"`
}

// FailureRate is failed over finished work across the process lifetime.
func (c RequestCounts) FailureRate() float64 {
	done := c.TotalCompleted + c.TotalFailed
	if done == 0 {
		return 0
	}
	return float64(c.TotalFailed) / float64(done)
}

// HostStats are the sampled host resource readings.
type HostStats struct {
	MemoryPercent float64 `json:"memory_percent"`
	CPUPercent    float64 `json:"cpu_percent"`
}

// MetricsSnapshot is a point-in-time aggregate of the request store plus
// host resources. Immutable once produced; pruned after the retention window.
type MetricsSnapshot struct {
	Timestamp      time.Time     `json:"timestamp"`
	Counts         RequestCounts `json:"counts"`
	WindowErrors   int           `json:"window_errors"`
	WindowFinished int           `json:"window_finished"`
	ErrorRate      float64       `json:"error_rate"`
	AvgDuration    time.Duration `json:"avg_duration_ms"`
	Host           HostStats     `json:"host"`
}

// HealthStatus is derived from the latest snapshot and unresolved alerts;
// it has no persisted state of its own.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// HealthReport is the payload of the health endpoint.
type HealthReport struct {
	Status          HealthStatus `json:"status"`
	QueueDepth      int          `json:"queue_depth"`
	ProcessingCount int          `json:"processing_count"`
	FailureRate     float64      `json:"failure_rate"`
	Alerts          []AlertEvent `json:"alerts"`
}
