package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/internal/calls"
	"github.com/bluelotus98/blue-lotus-backend/internal/dashboard"
	"github.com/bluelotus98/blue-lotus-backend/internal/dispatch"
	"github.com/bluelotus98/blue-lotus-backend/internal/events"
	apphttp "github.com/bluelotus98/blue-lotus-backend/internal/http"
	"github.com/bluelotus98/blue-lotus-backend/internal/http/router"
	"github.com/bluelotus98/blue-lotus-backend/internal/recordings"
	"github.com/bluelotus98/blue-lotus-backend/platform/config"
	"github.com/bluelotus98/blue-lotus-backend/platform/db"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"
	"github.com/bluelotus98/blue-lotus-backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting api server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules; the audit log
	// subscribes so every lifecycle event leaves an operational trail.
	eventBus := events.NewInMemoryBus(log)
	events.NewAuditLog(log).RegisterHandlers(eventBus)

	// Durable analysis queue. The intake path depends on it, so a missing
	// broker is a startup failure, not a degraded mode.
	queueClient, err := dispatch.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize queue client", "error", err)
		panic("failed to initialize queue client: " + err.Error())
	}
	defer queueClient.Close()

	queueMonitor, err := dispatch.NewMonitor(cfg)
	if err != nil {
		log.Error("failed to initialize queue monitor", "error", err)
		panic("failed to initialize queue monitor: " + err.Error())
	}
	defer queueMonitor.Close()

	// Shared validator instance for dependency injection
	val := validator.New()

	// Recording storage is optional; without it the dashboard falls back to
	// provider URLs.
	var presigner dashboard.RecordingPresigner
	if cfg.IsMinIOEnabled() {
		recSvc, err := recordings.NewService(cfg)
		if err != nil {
			log.Error("failed to initialize recordings service", "error", err)
			panic("failed to initialize recordings service: " + err.Error())
		}
		presigner = recSvc
		log.Info("recordings storage initialized", "bucket", cfg.GetMinioBucketRecordings())
	} else {
		log.Warn("MinIO not configured; recordings served from provider URLs")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	callsModule := calls.NewModule(pool, queueClient, eventBus, val, log)
	dashboardModule := dashboard.NewModule(pool, presigner, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Queue:  queueMonitor,
		Modules: []apphttp.Module{
			callsModule,
			dashboardModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
