package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/internal/analysis"
	"github.com/bluelotus98/blue-lotus-backend/internal/dispatch"
	dispatchworker "github.com/bluelotus98/blue-lotus-backend/internal/dispatch/worker"
	"github.com/bluelotus98/blue-lotus-backend/internal/events"
	"github.com/bluelotus98/blue-lotus-backend/internal/notify"
	"github.com/bluelotus98/blue-lotus-backend/internal/recordings"
	"github.com/bluelotus98/blue-lotus-backend/platform/config"
	"github.com/bluelotus98/blue-lotus-backend/platform/db"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting analysis worker", "env", cfg.Env, "queue", cfg.QueueName, "concurrency", cfg.WorkerConcurrency)

	if !cfg.IsAnalysisEnabled() {
		panic("ANALYSIS_API_KEY is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The api process owns migrations; the worker only needs a pool.
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

	// Failure alerting and the audit trail both subscribe to the event bus;
	// the worker only publishes.
	eventBus := events.NewInMemoryBus(log)
	events.NewAuditLog(log).RegisterHandlers(eventBus)

	analyzer := analysis.NewKimiAnalyzer(cfg)
	alerter := notify.NewAlerter(cfg, log)
	if alerter == nil {
		log.Warn("SMTP not configured; terminal failures will only be logged")
	}
	alerter.RegisterHandlers(eventBus)

	var recSvc *recordings.Service
	if cfg.IsMinIOEnabled() {
		svc, err := recordings.NewService(cfg)
		if err != nil {
			log.Error("failed to initialize recordings service", "error", err)
			panic("failed to initialize recordings service: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure recordings bucket", 5, 2*time.Second, func() error {
			return svc.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure recordings bucket", "error", err)
			panic("failed to ensure recordings bucket: " + err.Error())
		}
		recSvc = svc
		log.Info("recordings storage initialized", "bucket", cfg.GetMinioBucketRecordings())
	} else {
		log.Warn("MinIO not configured; recordings will not be archived")
	}

	worker, err := dispatchworker.New(cfg, pool, analyzer, recSvc, eventBus, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	monitor, err := dispatch.NewMonitor(cfg)
	if err != nil {
		log.Error("failed to initialize queue monitor", "error", err)
		panic("failed to initialize queue monitor: " + err.Error())
	}
	defer monitor.Close()

	cleanup := dispatch.NewCompletedCleanup(monitor, cfg, log)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		worker.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		cleanup.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		reportQueueDepth(groupCtx, monitor, log)
		return nil
	})

	_ = group.Wait()
	log.Info("worker stopped")
}

// reportQueueDepth logs aggregate queue counts once a minute so operators can
// watch backlog without hitting the api.
func reportQueueDepth(ctx context.Context, monitor *dispatch.Monitor, log *logger.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := monitor.Stats(ctx)
			if err != nil {
				log.Warn("queue stats unavailable", "error", err)
				continue
			}
			log.Info("queue depth",
				"waiting", stats.Waiting,
				"active", stats.Active,
				"completed", stats.Completed,
				"failed", stats.Failed,
				"delayed", stats.Delayed,
			)
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
