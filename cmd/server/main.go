// Package main is the entrypoint for the JobSwipe automation engine server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/jobswipe/engine/internal/adapter"
	"github.com/jobswipe/engine/internal/api"
	"github.com/jobswipe/engine/internal/api/handler"
	mw "github.com/jobswipe/engine/internal/api/middleware"
	"github.com/jobswipe/engine/internal/cache"
	"github.com/jobswipe/engine/internal/config"
	"github.com/jobswipe/engine/internal/engine"
	"github.com/jobswipe/engine/internal/metrics"
	"github.com/jobswipe/engine/internal/observability"
	"github.com/jobswipe/engine/internal/quota"
	"github.com/jobswipe/engine/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env,
		"max_concurrency", cfg.Engine.MaxConcurrency, "quota_limit", cfg.Quota.ServerLimit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Tracing
	shutdownTracing, err := observability.InitTracingFromEnv("jobswipe-engine")
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(tctx)
	}()

	// 3. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 4. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 5. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 6. Build the engine and its collaborators
	pgStore := store.NewPostgresStore(pool)
	adapters := adapter.NewRunnerRegistry(cfg.Runner)
	quotaSvc := quota.NewRedis(redisCache, cfg.Quota.ServerLimit, cfg.Quota.Period)

	eng := engine.New(engine.Config{
		Quota:            quotaSvc,
		Adapters:         adapters,
		Desktop:          redisCache,
		Sink:             redisCache,
		Archiver:         pgStore,
		MaxConcurrency:   cfg.Engine.MaxConcurrency,
		TickInterval:     cfg.Engine.TickInterval,
		ExecutionTimeout: cfg.Engine.ExecutionTimeout,
		NotifyBuffer:     cfg.Engine.NotifyBuffer,
		EventsChannel:    cache.EventsChannel(),
	})

	metricsEngine := metrics.NewEngine(eng, cfg.Metrics)
	eng.SetObserver(metricsEngine)

	go eng.Run(ctx)
	go metricsEngine.Run(ctx)

	// 7. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin),

		HealthHandler:    handler.NewHealthHandler(metricsEngine, pgStore, redisCache),
		SubmitHandler:    handler.NewSubmitHandler(eng),
		StatusHandler:    handler.NewStatusHandler(eng, pgStore),
		CancelHandler:    handler.NewCancelHandler(eng),
		ListHandler:      handler.NewListHandler(pgStore),
		StatsHandler:     handler.NewStatsHandler(eng, metricsEngine),
		PlatformsHandler: handler.NewPlatformsHandler(adapters),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
