package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jobswipe/engine/internal/observability"
	"github.com/jobswipe/engine/pkg/models"
)

// AdapterResolver picks the execution adapter for a job posting URL.
type AdapterResolver interface {
	Resolve(jobURL string) models.ExecutionAdapter
}

// DesktopDispatcher hands a request payload to the durable desktop queue.
// Satisfied by cache.RedisCache.
type DesktopDispatcher interface {
	PushDesktopJob(ctx context.Context, payload []byte) error
}

// CompletionObserver is notified of every finished server-side execution so
// the alert engine can maintain its trailing window and raise immediate
// slow-execution alerts at completion time.
type CompletionObserver interface {
	ObserveCompletion(requestID uuid.UUID, duration time.Duration, failed bool)
}

// WorkerPool drives claimed requests through execution under a global
// concurrency ceiling. Each tick claims up to the free slot count and runs
// every claimed request in its own goroutine, so a slow adapter never stalls
// scheduling of the others.
type WorkerPool struct {
	store    *RequestStore
	sched    *Scheduler
	router   *ExecutionRouter
	adapters AdapterResolver
	notifier *Notifier
	desktop  DesktopDispatcher
	observer CompletionObserver
	archiver Archiver

	maxConcurrency int
	tickInterval   time.Duration
	execTimeout    time.Duration

	wg sync.WaitGroup
}

// PoolConfig wires a WorkerPool. Observer, desktop dispatcher and archiver
// are optional.
type PoolConfig struct {
	Store    *RequestStore
	Sched    *Scheduler
	Router   *ExecutionRouter
	Adapters AdapterResolver
	Notifier *Notifier
	Desktop  DesktopDispatcher
	Observer CompletionObserver
	Archiver Archiver

	MaxConcurrency   int
	TickInterval     time.Duration
	ExecutionTimeout time.Duration
}

// NewWorkerPool creates a stopped pool; call Run to start ticking.
func NewWorkerPool(cfg PoolConfig) *WorkerPool {
	if cfg.MaxConcurrency < 1 {
		cfg.MaxConcurrency = 1
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 5 * time.Second
	}
	if cfg.ExecutionTimeout <= 0 {
		cfg.ExecutionTimeout = 3 * time.Minute
	}
	return &WorkerPool{
		store:          cfg.Store,
		sched:          cfg.Sched,
		router:         cfg.Router,
		adapters:       cfg.Adapters,
		notifier:       cfg.Notifier,
		desktop:        cfg.Desktop,
		observer:       cfg.Observer,
		archiver:       cfg.Archiver,
		maxConcurrency: cfg.MaxConcurrency,
		tickInterval:   cfg.TickInterval,
		execTimeout:    cfg.ExecutionTimeout,
	}
}

// Run ticks until ctx is cancelled, then waits for in-flight executions.
func (p *WorkerPool) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tickInterval)
	defer ticker.Stop()

	slog.Info("worker pool started",
		"max_concurrency", p.maxConcurrency, "tick_interval", p.tickInterval)

	for {
		select {
		case <-ticker.C:
			p.Tick(ctx)
		case <-ctx.Done():
			slog.Info("worker pool stopping, waiting for in-flight executions")
			p.wg.Wait()
			return
		}
	}
}

// Tick claims and dispatches up to the free slot count. Exported so tests
// and the engine facade can drive the pool without the ticker.
func (p *WorkerPool) Tick(ctx context.Context) {
	slots := p.maxConcurrency - p.store.Counts().Processing
	if slots <= 0 {
		return
	}

	for _, cand := range p.sched.SelectNext(slots) {
		claimed, ok := p.store.Claim(cand.ID)
		if !ok {
			// Lost to a concurrent tick or a cancellation; not an error.
			continue
		}
		p.wg.Add(1)
		go p.process(ctx, claimed)
	}
}

// Wait blocks until all in-flight executions have finished.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

func (p *WorkerPool) process(ctx context.Context, req *models.AutomationRequest) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during automation execution",
				"request_id", req.ID, "panic", r)
			p.finish(req, &models.ExecutionResult{
				Success: false,
				Error:   fmt.Sprintf("internal error: %v", r),
			}, true, 0)
		}
	}()

	p.notifier.Publish(Event{RequestID: req.ID, Type: EventClaimed})

	mode, err := p.router.ResolveMode(ctx, req)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			// Invariant violation: abort this request loudly, keep the engine up.
			slog.Error("scheduling invariant violated", "request_id", req.ID, "error", err)
			p.finish(req, &models.ExecutionResult{Success: false, Error: err.Error()}, true, 0)
			return
		}
		// Quota collaborator unreachable: give the claim back and retry on a
		// later tick rather than charging or failing the request.
		slog.Warn("quota check failed, returning request to queue",
			"request_id", req.ID, "error", err)
		p.store.Unclaim(req.ID)
		return
	}

	if mode == models.ModeDesktop {
		p.handoff(ctx, req)
		return
	}

	p.execute(ctx, req)
}

// handoff returns the request to the queue tagged for desktop execution and
// pushes its payload onto the durable desktop queue. No local slot is held
// afterwards.
func (p *WorkerPool) handoff(ctx context.Context, req *models.AutomationRequest) {
	if err := p.store.ReturnForDesktop(req.ID); err != nil {
		slog.Error("desktop handoff failed", "request_id", req.ID, "error", err)
		p.finish(req, &models.ExecutionResult{Success: false, Error: err.Error()}, true, 0)
		return
	}

	if p.desktop != nil {
		updated, err := p.store.Get(req.ID)
		if err == nil {
			if payload, merr := json.Marshal(updated); merr == nil {
				if perr := p.desktop.PushDesktopJob(ctx, payload); perr != nil {
					slog.Warn("push to desktop queue failed, request stays queued",
						"request_id", req.ID, "error", perr)
				}
			}
		}
	}

	slog.Info("request handed off to desktop executor",
		"request_id", req.ID, "user_id", req.UserID)
	p.notifier.Publish(Event{RequestID: req.ID, Type: EventQueuedForDesktop})
}

func (p *WorkerPool) execute(ctx context.Context, req *models.AutomationRequest) {
	adapter := p.adapters.Resolve(req.Job.Target())

	execCtx, cancel := context.WithTimeout(ctx, p.execTimeout)
	defer cancel()

	execCtx, span := observability.StartSpan(execCtx, "engine.execute",
		attribute.String("request.id", req.ID.String()),
		attribute.String("adapter", adapter.Name()),
	)
	defer span.End()

	p.notifier.Publish(Event{
		RequestID: req.ID,
		Type:      EventProgress,
		Payload:   map[string]any{"adapter": adapter.Name(), "mode": string(models.ModeServer)},
	})

	start := time.Now()
	result, err := adapter.Execute(execCtx, req)
	duration := time.Since(start)

	switch {
	case err != nil:
		msg := err.Error()
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			msg = fmt.Sprintf("execution timed out after %s", p.execTimeout)
		}
		slog.Warn("automation failed", "request_id", req.ID,
			"adapter", adapter.Name(), "duration_ms", duration.Milliseconds(), "error", msg)
		p.finish(req, &models.ExecutionResult{
			Success:    false,
			Error:      msg,
			DurationMs: duration.Milliseconds(),
			Platform:   adapter.Name(),
		}, true, duration)
	case !result.Success:
		slog.Warn("automation reported failure", "request_id", req.ID,
			"adapter", adapter.Name(), "duration_ms", duration.Milliseconds(), "error", result.Error)
		p.fillResult(result, adapter.Name(), duration)
		p.finish(req, result, true, duration)
	default:
		slog.Info("automation completed", "request_id", req.ID,
			"adapter", adapter.Name(), "duration_ms", duration.Milliseconds(),
			"confirmation", result.Confirmation)
		p.fillResult(result, adapter.Name(), duration)
		p.finish(req, result, false, duration)
	}
}

func (p *WorkerPool) fillResult(result *models.ExecutionResult, platform string, d time.Duration) {
	if result.DurationMs == 0 {
		result.DurationMs = d.Milliseconds()
	}
	if result.Platform == "" {
		result.Platform = platform
	}
}

// finish transitions the request to its terminal status, which releases the
// processing slot, then notifies, observes and archives.
func (p *WorkerPool) finish(req *models.AutomationRequest, result *models.ExecutionResult, failed bool, duration time.Duration) {
	status := models.StatusCompleted
	eventType := EventCompleted
	if failed {
		status = models.StatusFailed
		eventType = EventFailed
	}

	if err := p.store.Transition(req.ID, status, result); err != nil {
		slog.Error("terminal transition rejected",
			"request_id", req.ID, "status", status, "error", err)
		return
	}

	p.notifier.Publish(Event{
		RequestID: req.ID,
		Type:      eventType,
		Payload:   map[string]any{"success": result.Success, "error": result.Error},
	})

	if p.observer != nil && duration > 0 {
		p.observer.ObserveCompletion(req.ID, duration, failed)
	}

	if p.archiver != nil {
		if archived, err := p.store.Get(req.ID); err == nil {
			go p.archiveAsync(archived)
		}
	}
}

func (p *WorkerPool) archiveAsync(req *models.AutomationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.archiver.ArchiveRequest(ctx, req); err != nil {
		slog.Warn("archive request failed", "request_id", req.ID, "error", err)
	}
}
