package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/internal/analysis"
	"github.com/bluelotus98/blue-lotus-backend/internal/calls"
	"github.com/bluelotus98/blue-lotus-backend/internal/dispatch"
	"github.com/bluelotus98/blue-lotus-backend/internal/events"
	"github.com/bluelotus98/blue-lotus-backend/internal/tenants"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeStore struct {
	event        calls.CallEvent
	getErr       error
	applied      []calls.AnalysisFields
	markedFailed []uuid.UUID
}

func (f *fakeStore) GetByID(_ context.Context, _, _ uuid.UUID) (calls.CallEvent, error) {
	if f.getErr != nil {
		return calls.CallEvent{}, f.getErr
	}
	return f.event, nil
}

func (f *fakeStore) ApplyAnalysis(_ context.Context, _, _ uuid.UUID, fields calls.AnalysisFields) (bool, error) {
	f.applied = append(f.applied, fields)
	return true, nil
}

func (f *fakeStore) MarkAnalysisFailed(_ context.Context, id, _ uuid.UUID) error {
	f.markedFailed = append(f.markedFailed, id)
	return nil
}

func (f *fakeStore) SetRecordingKey(_ context.Context, _, _ uuid.UUID, _ string) error {
	return nil
}

type fakeDirectory struct {
	tenant tenants.Tenant
}

func (f *fakeDirectory) GetByID(_ context.Context, _ uuid.UUID) (tenants.Tenant, error) {
	return f.tenant, nil
}

type fakeAnalyzer struct {
	result analysis.Result
	err    error
	calls  int
}

func (f *fakeAnalyzer) AnalyzeTranscript(_ context.Context, _ analysis.Request) (analysis.Result, error) {
	f.calls++
	return f.result, f.err
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestWorker(store *fakeStore, analyzer *fakeAnalyzer, bus *recordingBus) *Worker {
	return &Worker{
		repo:       store,
		tenantRepo: &fakeDirectory{tenant: tenants.Tenant{BusinessType: "dental"}},
		analyzer:   analyzer,
		bus:        bus,
		log:        logger.New("development"),
	}
}

func analyzeTask(t *testing.T, eventID, tenantID uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := dispatch.NewAnalyzeCallTask(dispatch.AnalyzeCallPayload{
		CallEventID: eventID.String(),
		TenantID:    tenantID.String(),
		AssistantID: "asst-1",
	})
	if err != nil {
		t.Fatalf("NewAnalyzeCallTask: %v", err)
	}
	return task
}

func TestHandleAnalyzeCallAppliesInsight(t *testing.T) {
	eventID, tenantID := uuid.New(), uuid.New()
	store := &fakeStore{event: calls.CallEvent{
		ID:             eventID,
		TenantID:       tenantID,
		Transcript:     "caller asked about a cleaning appointment",
		AnalysisStatus: calls.AnalysisPending,
	}}
	analyzer := &fakeAnalyzer{result: analysis.Result{Sentiment: "positive", Outcome: "appointment_booked", LeadScore: 80}}
	bus := &recordingBus{}
	w := newTestWorker(store, analyzer, bus)

	if err := w.handleAnalyzeCall(context.Background(), analyzeTask(t, eventID, tenantID)); err != nil {
		t.Fatalf("handleAnalyzeCall: %v", err)
	}

	if len(store.applied) != 1 {
		t.Fatalf("applied %d times, want 1", len(store.applied))
	}
	if store.applied[0].Sentiment != "positive" || store.applied[0].LeadScore != 80 {
		t.Errorf("applied fields = %+v", store.applied[0])
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	if _, ok := bus.published[0].(events.CallAnalysisCompleted); !ok {
		t.Errorf("published %T, want CallAnalysisCompleted", bus.published[0])
	}
}

func TestHandleAnalyzeCallSkipsSettledEvent(t *testing.T) {
	eventID, tenantID := uuid.New(), uuid.New()
	store := &fakeStore{event: calls.CallEvent{
		ID:             eventID,
		TenantID:       tenantID,
		Transcript:     "already analyzed",
		AnalysisStatus: calls.AnalysisCompleted,
	}}
	analyzer := &fakeAnalyzer{}
	w := newTestWorker(store, analyzer, &recordingBus{})

	if err := w.handleAnalyzeCall(context.Background(), analyzeTask(t, eventID, tenantID)); err != nil {
		t.Fatalf("handleAnalyzeCall: %v", err)
	}
	if analyzer.calls != 0 {
		t.Errorf("analyzer called %d times for a settled event, want 0", analyzer.calls)
	}
	if len(store.applied) != 0 {
		t.Errorf("applied %d times, want 0", len(store.applied))
	}
}

func TestHandleAnalyzeCallMissingTranscriptSettlesFailed(t *testing.T) {
	eventID, tenantID := uuid.New(), uuid.New()
	store := &fakeStore{event: calls.CallEvent{
		ID:             eventID,
		TenantID:       tenantID,
		AnalysisStatus: calls.AnalysisPending,
	}}
	w := newTestWorker(store, &fakeAnalyzer{}, &recordingBus{})

	if err := w.handleAnalyzeCall(context.Background(), analyzeTask(t, eventID, tenantID)); err != nil {
		t.Fatalf("handleAnalyzeCall: %v", err)
	}
	if len(store.markedFailed) != 1 || store.markedFailed[0] != eventID {
		t.Errorf("markedFailed = %v, want [%s]", store.markedFailed, eventID)
	}
}

func TestHandleAnalyzeCallMissingRowSkipsRetry(t *testing.T) {
	store := &fakeStore{getErr: calls.ErrCallEventNotFound}
	w := newTestWorker(store, &fakeAnalyzer{}, &recordingBus{})

	err := w.handleAnalyzeCall(context.Background(), analyzeTask(t, uuid.New(), uuid.New()))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Errorf("err = %v, want SkipRetry for a missing row", err)
	}
}

func TestHandleTaskErrorTerminalFailureMarksRowAndPublishes(t *testing.T) {
	eventID, tenantID := uuid.New(), uuid.New()
	store := &fakeStore{}
	bus := &recordingBus{}
	w := newTestWorker(store, &fakeAnalyzer{}, bus)

	taskErr := errors.Join(errors.New("model unavailable"), asynq.SkipRetry)
	w.handleTaskError(context.Background(), analyzeTask(t, eventID, tenantID), taskErr)

	if len(store.markedFailed) != 1 || store.markedFailed[0] != eventID {
		t.Fatalf("markedFailed = %v, want [%s]", store.markedFailed, eventID)
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	failed, ok := bus.published[0].(events.CallAnalysisFailed)
	if !ok {
		t.Fatalf("published %T, want CallAnalysisFailed", bus.published[0])
	}
	if failed.CallEventID != eventID.String() || failed.TenantID != tenantID {
		t.Errorf("event = %+v", failed)
	}
}

func TestHandleTaskErrorIgnoresOtherTaskTypes(t *testing.T) {
	store := &fakeStore{}
	w := newTestWorker(store, &fakeAnalyzer{}, &recordingBus{})

	w.handleTaskError(context.Background(), asynq.NewTask("email:send", nil), errors.New("boom"))

	if len(store.markedFailed) != 0 {
		t.Errorf("markedFailed = %v, want none for foreign task types", store.markedFailed)
	}
}

func TestRetryDelayBacksOffExponentially(t *testing.T) {
	cases := []struct {
		n    int
		want time.Duration
	}{
		{0, 5 * time.Second},
		{1, 10 * time.Second},
		{2, 20 * time.Second},
	}
	for _, tc := range cases {
		if got := retryDelay(tc.n, nil, nil); got != tc.want {
			t.Errorf("retryDelay(%d) = %v, want %v", tc.n, got, tc.want)
		}
	}

	if got := retryDelay(20, nil, nil); got != 5*time.Minute {
		t.Errorf("retryDelay(20) = %v, want capped 5m", got)
	}
}
