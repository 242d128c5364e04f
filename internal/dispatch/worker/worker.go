// Package worker drains the analysis queue. It loads the durable call event,
// runs the analyzer, applies the insight block once, and archives the
// recording as a best effort side job.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/internal/analysis"
	"github.com/bluelotus98/blue-lotus-backend/internal/calls"
	"github.com/bluelotus98/blue-lotus-backend/internal/dispatch"
	"github.com/bluelotus98/blue-lotus-backend/internal/events"
	"github.com/bluelotus98/blue-lotus-backend/internal/recordings"
	"github.com/bluelotus98/blue-lotus-backend/internal/tenants"
	"github.com/bluelotus98/blue-lotus-backend/platform/config"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// callStore is the slice of the calls repository the worker touches.
type callStore interface {
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (calls.CallEvent, error)
	ApplyAnalysis(ctx context.Context, id, tenantID uuid.UUID, fields calls.AnalysisFields) (bool, error)
	MarkAnalysisFailed(ctx context.Context, id, tenantID uuid.UUID) error
	SetRecordingKey(ctx context.Context, id, tenantID uuid.UUID, key string) error
}

// tenantDirectory looks up the tenant that shapes the analysis prompt.
type tenantDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (tenants.Tenant, error)
}

// Worker runs the asynq server for analysis jobs.
type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	repo       callStore
	tenantRepo tenantDirectory
	analyzer   analysis.Analyzer
	recordings *recordings.Service
	bus        events.Bus
	log        *logger.Logger
}

// New creates the analysis worker. recSvc may be nil; recording archival is
// an optional capability. Failure alerting rides on the event bus, not on a
// direct dependency.
func New(cfg config.QueueConfig, pool *pgxpool.Pool, analyzer analysis.Analyzer, recSvc *recordings.Service, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := dispatch.RedisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetWorkerConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	w := &Worker{
		repo:       calls.NewRepository(pool),
		tenantRepo: tenants.NewRepository(pool),
		analyzer:   analyzer,
		recordings: recSvc,
		bus:        bus,
		log:        log,
	}

	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
		RetryDelayFunc: retryDelay,
		ErrorHandler:   asynq.ErrorHandlerFunc(w.handleTaskError),
	})

	w.mux = asynq.NewServeMux()
	w.mux.HandleFunc(dispatch.TaskAnalyzeCall, w.handleAnalyzeCall)

	return w, nil
}

// retryDelay backs off exponentially from a 5 second base: 5s, 10s, 20s.
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	delay := 5 * time.Second
	for i := 0; i < n; i++ {
		delay *= 2
	}
	if delay > 5*time.Minute {
		delay = 5 * time.Minute
	}
	return delay
}

// Run blocks draining the queue until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("analysis worker stopped", "error", err)
	}
}

func (w *Worker) handleAnalyzeCall(ctx context.Context, task *asynq.Task) error {
	payload, err := dispatch.ParseAnalyzeCallPayload(task)
	if err != nil {
		return fmt.Errorf("bad payload: %v: %w", err, asynq.SkipRetry)
	}

	eventID, err := uuid.Parse(payload.CallEventID)
	if err != nil {
		return fmt.Errorf("bad call event id: %v: %w", err, asynq.SkipRetry)
	}
	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		return fmt.Errorf("bad tenant id: %v: %w", err, asynq.SkipRetry)
	}

	event, err := w.repo.GetByID(ctx, eventID, tenantID)
	if err != nil {
		if errors.Is(err, calls.ErrCallEventNotFound) {
			// Row gone or never written; retrying cannot bring it back.
			return fmt.Errorf("call event %s not found: %w", eventID, asynq.SkipRetry)
		}
		return err
	}

	// Redelivered job for an already-analyzed event. The status guard in the
	// repository would make the apply a no-op anyway; skip the model call.
	if event.AnalysisStatus != calls.AnalysisPending {
		w.log.Debug("analysis already settled", "callEventId", eventID, "status", event.AnalysisStatus)
		return nil
	}

	if event.Transcript == "" {
		// Nothing to analyze. Settle the row as failed rather than burning
		// retries on a transcript that will never appear.
		if err := w.repo.MarkAnalysisFailed(ctx, eventID, tenantID); err != nil {
			return err
		}
		w.log.Info("analysis skipped, no transcript", "callEventId", eventID)
		return nil
	}

	// The vertical shapes the prompt; a lookup miss just means the generic
	// prompt.
	var businessType string
	if tenant, err := w.tenantRepo.GetByID(ctx, tenantID); err == nil {
		businessType = tenant.BusinessType
	}

	result, err := w.analyzer.AnalyzeTranscript(ctx, analysis.Request{
		Transcript:   event.Transcript,
		BusinessType: businessType,
		CallerName:   event.CallerName,
		Duration:     event.Duration,
	})
	if err != nil {
		if errors.Is(err, analysis.ErrEmptyTranscript) {
			if markErr := w.repo.MarkAnalysisFailed(ctx, eventID, tenantID); markErr != nil {
				return markErr
			}
			return nil
		}
		return err
	}

	applied, err := w.repo.ApplyAnalysis(ctx, eventID, tenantID, calls.AnalysisFields{
		Sentiment:   result.Sentiment,
		Outcome:     result.Outcome,
		LeadScore:   result.LeadScore,
		Topics:      result.Topics,
		ActionItems: result.ActionItems,
		Summary:     result.Summary,
	})
	if err != nil {
		return err
	}

	if applied && w.bus != nil {
		w.bus.Publish(ctx, events.CallAnalysisCompleted{
			BaseEvent:   events.NewBaseEvent(),
			CallEventID: eventID.String(),
			TenantID:    tenantID,
		})
	}

	w.archiveRecording(ctx, event)

	return nil
}

// archiveRecording copies the provider recording into object storage. Best
// effort: a failure here never fails the job, the provider URL stays on the
// row.
func (w *Worker) archiveRecording(ctx context.Context, event calls.CallEvent) {
	if w.recordings == nil || event.RecordingURL == "" || event.RecordingKey != "" {
		return
	}

	key, err := w.recordings.Archive(ctx, event.TenantID, event.ID, event.RecordingURL)
	if err != nil {
		w.log.Warn("recording archival failed", "callEventId", event.ID, "error", err)
		return
	}
	if err := w.repo.SetRecordingKey(ctx, event.ID, event.TenantID, key); err != nil {
		w.log.Warn("recording key update failed", "callEventId", event.ID, "error", err)
	}
}

// handleTaskError runs on every failed attempt. On the terminal one it flips
// the row to failed and announces the failure; the operator alert rides on
// the published event.
func (w *Worker) handleTaskError(ctx context.Context, task *asynq.Task, err error) {
	if task.Type() != dispatch.TaskAnalyzeCall {
		return
	}

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	terminal := retried >= maxRetry || errors.Is(err, asynq.SkipRetry)
	if !terminal {
		w.log.Warn("analysis attempt failed", "retried", retried, "maxRetry", maxRetry, "error", err)
		return
	}

	payload, parseErr := dispatch.ParseAnalyzeCallPayload(task)
	if parseErr != nil {
		w.log.Error("terminal analysis failure with unreadable payload", "error", err)
		return
	}
	eventID, idErr := uuid.Parse(payload.CallEventID)
	tenantID, tenantErr := uuid.Parse(payload.TenantID)
	if idErr != nil || tenantErr != nil {
		w.log.Error("terminal analysis failure with bad ids", "payload", payload, "error", err)
		return
	}

	if markErr := w.repo.MarkAnalysisFailed(ctx, eventID, tenantID); markErr != nil {
		w.log.Error("failed to mark analysis failed", "callEventId", eventID, "error", markErr)
	}

	w.log.Error("analysis failed terminally", "callEventId", eventID, "tenantId", tenantID, "error", err)

	if w.bus != nil {
		w.bus.Publish(ctx, events.CallAnalysisFailed{
			BaseEvent:   events.NewBaseEvent(),
			CallEventID: eventID.String(),
			TenantID:    tenantID,
			Reason:      err.Error(),
		})
	}
}
