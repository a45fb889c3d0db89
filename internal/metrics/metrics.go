// Package metrics samples the request store and the host on a fixed tick,
// evaluates alert rules against each snapshot and derives the engine's
// health status.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jobswipe/engine/internal/config"
	"github.com/jobswipe/engine/pkg/models"
)

// trailingWindow bounds the completion history used for error-rate and
// average-duration rules.
const trailingWindow = 5 * time.Minute

// Source provides the lifecycle tallies to sample. Satisfied by
// *engine.Engine.
type Source interface {
	Counts() models.RequestCounts
}

type completion struct {
	at       time.Time
	duration time.Duration
	failed   bool
}

// Engine produces MetricsSnapshots and AlertEvents on its own tick,
// independent of the worker pool. It also receives per-execution
// observations so a pathologically slow run raises an alert at completion
// time instead of waiting for the next tick.
type Engine struct {
	mu sync.Mutex

	source Source
	cfg    config.MetricsConfig
	hostFn func(ctx context.Context) models.HostStats

	completions []completion
	snapshots   []models.MetricsSnapshot
	alerts      []models.AlertEvent
}

// NewEngine creates a metrics engine over the given source.
func NewEngine(source Source, cfg config.MetricsConfig) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	return &Engine{
		source: source,
		cfg:    cfg,
		hostFn: sampleHost,
	}
}

// Run evaluates on a fixed interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	slog.Info("metrics engine started", "interval", e.cfg.Interval)

	for {
		select {
		case <-ticker.C:
			e.EvaluateTick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// ObserveCompletion records one finished execution for the trailing window
// and raises an immediate PERFORMANCE alert when a single run exceeds twice
// the response-time threshold.
func (e *Engine) ObserveCompletion(requestID uuid.UUID, duration time.Duration, failed bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now().UTC()
	e.completions = append(e.completions, completion{at: now, duration: duration, failed: failed})

	slowLimit := 2 * e.cfg.ResponseTimeThreshold
	if slowLimit > 0 && duration > slowLimit {
		alert := models.AlertEvent{
			ID:            uuid.New(),
			Type:          models.AlertTypePerformance,
			Severity:      models.SeverityHigh,
			Metric:        "processing_time",
			ObservedValue: float64(duration.Milliseconds()),
			Threshold:     float64(slowLimit.Milliseconds()),
			Message:       "single request exceeded twice the processing time threshold",
			Timestamp:     now,
		}
		e.alerts = append(e.alerts, alert)
		slog.Warn("slow execution alert", "request_id", requestID,
			"duration_ms", duration.Milliseconds(), "threshold_ms", slowLimit.Milliseconds())
	}
}

// Collect produces one snapshot without evaluating rules.
func (e *Engine) Collect(ctx context.Context) models.MetricsSnapshot {
	counts := e.source.Counts()
	host := e.hostFn(ctx)

	e.mu.Lock()
	e.pruneCompletionsLocked(time.Now().UTC())
	var errors, finished int
	var total time.Duration
	for _, c := range e.completions {
		finished++
		total += c.duration
		if c.failed {
			errors++
		}
	}
	e.mu.Unlock()

	snap := models.MetricsSnapshot{
		Timestamp:      time.Now().UTC(),
		Counts:         counts,
		WindowErrors:   errors,
		WindowFinished: finished,
		Host:           host,
	}
	if finished > 0 {
		snap.ErrorRate = float64(errors) / float64(finished)
		snap.AvgDuration = total / time.Duration(finished)
	}
	return snap
}

// EvaluateTick samples, evaluates every alert rule independently, retains
// the snapshot and prunes expired history. Persisting conditions fire again
// on every tick; de-duplication is left to consumers.
func (e *Engine) EvaluateTick(ctx context.Context) models.MetricsSnapshot {
	snap := e.Collect(ctx)
	fired := evaluateRules(snap, e.cfg)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.snapshots = append(e.snapshots, snap)
	e.alerts = append(e.alerts, fired...)
	e.resolveClearedLocked(snap, fired)
	e.pruneRetainedLocked(snap.Timestamp)

	for _, a := range fired {
		slog.Warn("alert fired", "type", a.Type, "severity", a.Severity,
			"metric", a.Metric, "observed", a.ObservedValue, "threshold", a.Threshold)
	}
	return snap
}

// LatestSnapshot returns the most recent retained snapshot.
func (e *Engine) LatestSnapshot() (models.MetricsSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.snapshots) == 0 {
		return models.MetricsSnapshot{}, false
	}
	return e.snapshots[len(e.snapshots)-1], true
}

// ActiveAlerts returns copies of the unresolved alerts.
func (e *Engine) ActiveAlerts() []models.AlertEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []models.AlertEvent
	for _, a := range e.alerts {
		if !a.Resolved {
			out = append(out, a)
		}
	}
	return out
}

// Health derives the current health from a fresh snapshot and the
// unresolved alerts.
func (e *Engine) Health(ctx context.Context) models.HealthReport {
	snap, ok := e.LatestSnapshot()
	if !ok {
		snap = e.Collect(ctx)
	}
	return buildReport(snap, e.ActiveAlerts(), e.cfg)
}

func (e *Engine) pruneCompletionsLocked(now time.Time) {
	cutoff := now.Add(-trailingWindow)
	i := 0
	for ; i < len(e.completions); i++ {
		if e.completions[i].at.After(cutoff) {
			break
		}
	}
	e.completions = e.completions[i:]
}

func (e *Engine) pruneRetainedLocked(now time.Time) {
	cutoff := now.Add(-e.cfg.Retention)

	snaps := e.snapshots[:0]
	for _, s := range e.snapshots {
		if s.Timestamp.After(cutoff) {
			snaps = append(snaps, s)
		}
	}
	e.snapshots = snaps

	alerts := e.alerts[:0]
	for _, a := range e.alerts {
		if a.Timestamp.After(cutoff) {
			alerts = append(alerts, a)
		}
	}
	e.alerts = alerts
}

// resolveClearedLocked flips Resolved on alerts whose class did not fire
// this tick, so recovery is visible to the health status.
func (e *Engine) resolveClearedLocked(snap models.MetricsSnapshot, fired []models.AlertEvent) {
	breached := make(map[models.AlertType]bool, len(fired))
	for _, a := range fired {
		breached[a.Type] = true
	}
	// An immediate slow-execution alert stays active while the trailing
	// window still shows it.
	if snap.AvgDuration > e.cfg.ResponseTimeThreshold {
		breached[models.AlertTypePerformance] = true
	}
	for i := range e.alerts {
		if !e.alerts[i].Resolved && !breached[e.alerts[i].Type] {
			e.alerts[i].Resolved = true
		}
	}
}
