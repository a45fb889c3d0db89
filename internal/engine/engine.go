// Package engine implements the automation processing core: the request
// store and lifecycle state machine, the priority scheduler, the execution
// router, the bounded worker pool and the lifecycle notifier.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jobswipe/engine/internal/observability"
	"github.com/jobswipe/engine/pkg/models"
)

// Archiver persists terminal requests to durable history storage.
// Satisfied by store.PostgresStore.
type Archiver interface {
	ArchiveRequest(ctx context.Context, req *models.AutomationRequest) error
}

// Engine is the facade the API layer talks to. It owns the store, the
// scheduler, the router, the worker pool and the notifier; all are
// constructed once at process start and passed by reference.
type Engine struct {
	store    *RequestStore
	sched    *Scheduler
	router   *ExecutionRouter
	pool     *WorkerPool
	notifier *Notifier
	archiver Archiver
}

// Config assembles an Engine.
type Config struct {
	Quota    QuotaService
	Adapters AdapterResolver
	Desktop  DesktopDispatcher
	Sink     EventSink
	Observer CompletionObserver
	Archiver Archiver

	MaxConcurrency   int
	TickInterval     time.Duration
	ExecutionTimeout time.Duration
	NotifyBuffer     int
	EventsChannel    string
}

// New wires the engine. The observer may be set later with SetObserver when
// the metrics engine is constructed after (and samples) the engine.
func New(cfg Config) *Engine {
	st := NewRequestStore()
	sched := NewScheduler(st)
	router := NewExecutionRouter(cfg.Quota)
	notifier := NewNotifier(cfg.NotifyBuffer, cfg.Sink, cfg.EventsChannel)

	pool := NewWorkerPool(PoolConfig{
		Store:            st,
		Sched:            sched,
		Router:           router,
		Adapters:         cfg.Adapters,
		Notifier:         notifier,
		Desktop:          cfg.Desktop,
		Observer:         cfg.Observer,
		Archiver:         cfg.Archiver,
		MaxConcurrency:   cfg.MaxConcurrency,
		TickInterval:     cfg.TickInterval,
		ExecutionTimeout: cfg.ExecutionTimeout,
	})

	return &Engine{
		store:    st,
		sched:    sched,
		router:   router,
		pool:     pool,
		notifier: notifier,
		archiver: cfg.Archiver,
	}
}

// SetObserver installs the completion observer. Must be called before Run.
func (e *Engine) SetObserver(obs CompletionObserver) {
	e.pool.observer = obs
}

// Run starts the worker pool and the notifier and blocks until ctx is
// cancelled and both have drained.
func (e *Engine) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		e.notifier.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		e.pool.Run(ctx)
	}()
	wg.Wait()
}

// Submit admits a validated request: assigns its id, computes the fixed
// priority from intake signals and enqueues it.
func (e *Engine) Submit(ctx context.Context, req *models.AutomationRequest) (uuid.UUID, error) {
	_, span := observability.StartSpan(ctx, "engine.submit",
		attribute.String("user.id", req.UserID.String()),
		attribute.String("job.url", req.Job.Target()),
	)
	defer span.End()

	req.ID = uuid.New()
	req.Priority = models.ComputePriority(req.Options)
	req.Status = models.StatusQueued
	req.ExecutionMode = models.ModeServer
	req.QueuedAt = time.Now().UTC()

	if err := e.store.Enqueue(req); err != nil {
		return uuid.Nil, err
	}

	slog.Info("request queued", "request_id", req.ID,
		"user_id", req.UserID, "priority", req.Priority, "company", req.Job.Company)
	return req.ID, nil
}

// Status returns the current view of a request, including its result once
// terminal.
func (e *Engine) Status(_ context.Context, id uuid.UUID) (*models.AutomationRequest, error) {
	return e.store.Get(id)
}

// Cancel cancels a queued request owned by userID. A processing or terminal
// request reports cancelled=false without error: executions in flight cannot
// be preempted.
func (e *Engine) Cancel(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	cancelled, err := e.store.Cancel(id, userID)
	if err != nil || !cancelled {
		return cancelled, err
	}

	slog.Info("request cancelled", "request_id", id, "user_id", userID)
	if e.archiver != nil {
		if req, gerr := e.store.Get(id); gerr == nil {
			go func() {
				actx, cancelFn := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancelFn()
				if aerr := e.archiver.ArchiveRequest(actx, req); aerr != nil {
					slog.Warn("archive cancelled request failed", "request_id", id, "error", aerr)
				}
			}()
		}
	}
	return true, nil
}

// Counts exposes the store tallies for metrics sampling and the stats
// endpoint.
func (e *Engine) Counts() models.RequestCounts {
	return e.store.Counts()
}

// Subscribe registers a lifecycle event handler.
func (e *Engine) Subscribe(h Handler) {
	e.notifier.Subscribe(h)
}

// Tick runs one scheduling pass; used by tests and manual draining.
func (e *Engine) Tick(ctx context.Context) {
	e.pool.Tick(ctx)
}

// WaitIdle blocks until in-flight executions finish; test helper.
func (e *Engine) WaitIdle() {
	e.pool.Wait()
}
