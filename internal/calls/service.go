package calls

import (
	"context"
	"encoding/json"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/internal/calls/transport"
	"github.com/bluelotus98/blue-lotus-backend/internal/events"
	"github.com/bluelotus98/blue-lotus-backend/internal/tenants"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"
	"github.com/bluelotus98/blue-lotus-backend/platform/phone"

	"github.com/google/uuid"
)

// CallStore is the persistence surface the ingestor needs. Satisfied by
// Repository.
type CallStore interface {
	Insert(ctx context.Context, event CallEvent) (bool, error)
}

// AnalysisEnqueuer hands a persisted call event to the job dispatcher.
// Satisfied by dispatch.Client.
type AnalysisEnqueuer interface {
	EnqueueAnalysis(ctx context.Context, callEventID string, tenantID uuid.UUID, assistantID string) (string, error)
}

// IngestResult tells the webhook handler what happened. It carries enough
// for the response body to correlate: event id, tenant, queued flag.
type IngestResult struct {
	CallEventID uuid.UUID
	TenantID    uuid.UUID
	Duration    int
	Persisted   bool // false on the redelivery no-op
	Queued      bool
	Skipped     bool   // event type outside the accepted set
	SkipReason  string // for logs only, never for the response
}

// Service is the event ingestor. It owns the fast path: validate, persist,
// enqueue, acknowledge. No AI or other long-running call belongs here.
type Service struct {
	store    CallStore
	enqueuer AnalysisEnqueuer
	bus      events.Bus
	log      *logger.Logger
}

// NewService creates a new ingestion service.
func NewService(store CallStore, enqueuer AnalysisEnqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
	}
}

// Ingest persists an accepted call event and enqueues its analysis job.
//
// The returned error covers only the durable write; the caller acknowledges
// regardless (the event source must never see a failure), but a write error
// is a data-loss risk that the handler logs loudly. Enqueue failures are
// swallowed here: the row is already durable and the queue can be backfilled.
func (s *Service) Ingest(ctx context.Context, provider string, envelope transport.WebhookEnvelope, tenant tenants.Tenant) (IngestResult, error) {
	if !transport.IsAcceptedEventType(envelope.Type) {
		return IngestResult{Skipped: true, SkipReason: "unsupported event type"}, nil
	}

	event := buildCallEvent(provider, envelope, tenant)
	result := IngestResult{
		CallEventID: event.ID,
		TenantID:    tenant.ID,
		Duration:    event.Duration,
	}

	persisted, err := s.store.Insert(ctx, event)
	if err != nil {
		return result, err
	}
	result.Persisted = persisted

	// Enqueue on the duplicate path too: the original delivery may have
	// lost its enqueue, and the task-id dedupe makes a second enqueue for
	// a live job a no-op.
	jobID, err := s.enqueuer.EnqueueAnalysis(ctx, event.ID.String(), tenant.ID, event.AssistantID)
	if err != nil {
		s.log.QueueError("enqueue_analysis", event.ID.String(), err)
	} else {
		result.Queued = true
		s.log.Debug("analysis job enqueued", "jobId", jobID, "callEventId", event.ID)
	}

	s.bus.Publish(ctx, events.CallEventReceived{
		BaseEvent:   events.NewBaseEvent(),
		CallEventID: event.ID.String(),
		TenantID:    tenant.ID,
		Provider:    provider,
		Queued:      result.Queued,
	})

	return result, nil
}

func buildCallEvent(provider string, envelope transport.WebhookEnvelope, tenant tenants.Tenant) CallEvent {
	call := envelope.Call

	event := CallEvent{
		ID:           DeterministicID(provider, call.ID),
		TenantID:     tenant.ID,
		Provider:     provider,
		SourceCallID: call.ID,
		AssistantID:  call.AssistantID,
		Duration:     call.Duration,
		Transcript:   call.Transcript,
		Summary:      call.Summary,
		Status:       call.Status,
		EndedReason:  call.EndedReason,
	}

	if call.Customer != nil {
		event.CallerNumber = phone.NormalizeE164(call.Customer.Number)
		event.CallerName = call.Customer.Name
	}
	if call.Recording != nil {
		event.RecordingURL = call.Recording.URL
	}
	if startedAt, err := time.Parse(time.RFC3339, call.CreatedAt); err == nil {
		event.StartedAt = &startedAt
	}

	// Raw payload retained verbatim for auditing and reprocessing.
	if raw, err := json.Marshal(envelope); err == nil {
		event.RawPayload = raw
	}

	return event
}
