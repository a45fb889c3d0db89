package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType classifies what kind of condition an alert describes.
type AlertType string

const (
	AlertTypeError       AlertType = "error"
	AlertTypePerformance AlertType = "performance"
	AlertTypeSystem      AlertType = "system"
	AlertTypeBacklog     AlertType = "backlog"
)

// AlertSeverity ranks how urgent an alert is.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "low"
	SeverityMedium   AlertSeverity = "medium"
	SeverityHigh     AlertSeverity = "high"
	SeverityCritical AlertSeverity = "critical"
)

// AlertEvent is one threshold breach observed by the alert engine.
// Append-only; only Resolved is ever flipped after creation.
type AlertEvent struct {
	ID            uuid.UUID     `json:"id"`
	Type          AlertType     `json:"type"`
	Severity      AlertSeverity `json:"severity"`
	Metric        string        `json:"metric"`
	ObservedValue float64       `json:"observed_value"`
	Threshold     float64       `json:"threshold"`
	Message       string        `json:"message"`
	Timestamp     time.Time     `json:"timestamp"`
	Resolved      bool          `json:"resolved"`
}
