package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/internal/calls"
	"github.com/bluelotus98/blue-lotus-backend/internal/tenants"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type fakeReader struct {
	events map[uuid.UUID]calls.CallEvent
	listed []calls.CallEvent
	counts map[string]int

	gotLimit  int
	gotOffset int
	gotTenant uuid.UUID
}

func (f *fakeReader) GetByID(_ context.Context, id, tenantID uuid.UUID) (calls.CallEvent, error) {
	f.gotTenant = tenantID
	event, ok := f.events[id]
	if !ok || event.TenantID != tenantID {
		return calls.CallEvent{}, calls.ErrCallEventNotFound
	}
	return event, nil
}

func (f *fakeReader) ListByTenant(_ context.Context, tenantID uuid.UUID, limit, offset int) ([]calls.CallEvent, error) {
	f.gotTenant = tenantID
	f.gotLimit = limit
	f.gotOffset = offset
	return f.listed, nil
}

func (f *fakeReader) CountByAnalysisStatus(_ context.Context, tenantID uuid.UUID) (map[string]int, error) {
	f.gotTenant = tenantID
	return f.counts, nil
}

type fakePresigner struct {
	url string
	err error
}

func (f *fakePresigner) PresignDownload(_ context.Context, _ string) (string, time.Time, error) {
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	return f.url, time.Now().Add(15 * time.Minute), nil
}

func newTestRouter(reader CallReader, presigner RecordingPresigner, tenant tenants.Tenant) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(reader, presigner, logger.New("development"))

	engine := gin.New()
	group := engine.Group("/api/v1")
	group.Use(func(c *gin.Context) {
		c.Set(tenantContextKey, tenant)
	})
	group.GET("/calls", h.ListCalls)
	group.GET("/calls/:callId", h.GetCall)
	group.GET("/calls/:callId/recording", h.GetRecording)
	group.GET("/stats/summary", h.GetStatsSummary)
	return engine
}

func get(t *testing.T, engine *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func sampleEvent(tenantID uuid.UUID) calls.CallEvent {
	sentiment := "positive"
	score := 80
	return calls.CallEvent{
		ID:             uuid.New(),
		TenantID:       tenantID,
		Provider:       "vapi",
		SourceCallID:   "call-1",
		CallerNumber:   "+14155552671",
		Duration:       120,
		Transcript:     "hello",
		ReceivedAt:     time.Now(),
		AnalysisStatus: calls.AnalysisCompleted,
		Sentiment:      &sentiment,
		LeadScore:      &score,
		Topics:         []string{"booking"},
	}
}

func TestListCallsClampsPagination(t *testing.T) {
	tenant := tenants.Tenant{ID: uuid.New()}
	reader := &fakeReader{}
	engine := newTestRouter(reader, nil, tenant)

	rec := get(t, engine, "/api/v1/calls?limit=9999&offset=-5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if reader.gotLimit != maxPageSize {
		t.Errorf("limit = %d, want clamped %d", reader.gotLimit, maxPageSize)
	}
	if reader.gotOffset != 0 {
		t.Errorf("offset = %d, want 0", reader.gotOffset)
	}
	if reader.gotTenant != tenant.ID {
		t.Errorf("tenant = %s, want %s", reader.gotTenant, tenant.ID)
	}
}

func TestGetCallNotFound(t *testing.T) {
	tenant := tenants.Tenant{ID: uuid.New()}
	reader := &fakeReader{events: map[uuid.UUID]calls.CallEvent{}}
	engine := newTestRouter(reader, nil, tenant)

	rec := get(t, engine, "/api/v1/calls/"+uuid.NewString())
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = get(t, engine, "/api/v1/calls/not-a-uuid")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed id", rec.Code)
	}
}

func TestGetCallReturnsDetail(t *testing.T) {
	tenant := tenants.Tenant{ID: uuid.New()}
	event := sampleEvent(tenant.ID)
	reader := &fakeReader{events: map[uuid.UUID]calls.CallEvent{event.ID: event}}
	engine := newTestRouter(reader, nil, tenant)

	rec := get(t, engine, "/api/v1/calls/"+event.ID.String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var detail CallDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.ID != event.ID.String() || detail.Transcript != "hello" {
		t.Errorf("detail = %+v", detail)
	}
	if detail.Sentiment == nil || *detail.Sentiment != "positive" {
		t.Error("analysis block missing from detail")
	}
}

func TestGetRecordingPrefersArchivedCopy(t *testing.T) {
	tenant := tenants.Tenant{ID: uuid.New()}
	event := sampleEvent(tenant.ID)
	event.RecordingKey = tenant.ID.String() + "/" + event.ID.String() + ".mp3"
	event.RecordingURL = "https://cdn.example.com/rec.mp3"
	reader := &fakeReader{events: map[uuid.UUID]calls.CallEvent{event.ID: event}}
	engine := newTestRouter(reader, &fakePresigner{url: "https://minio.local/signed"}, tenant)

	rec := get(t, engine, "/api/v1/calls/"+event.ID.String()+"/recording")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var link RecordingLink
	if err := json.Unmarshal(rec.Body.Bytes(), &link); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if link.URL != "https://minio.local/signed" {
		t.Errorf("url = %q, want presigned link", link.URL)
	}
	if link.ExpiresAt == nil {
		t.Error("presigned link should carry an expiry")
	}
}

func TestGetRecordingFallsBackToProviderURL(t *testing.T) {
	tenant := tenants.Tenant{ID: uuid.New()}
	event := sampleEvent(tenant.ID)
	event.RecordingURL = "https://cdn.example.com/rec.mp3"
	reader := &fakeReader{events: map[uuid.UUID]calls.CallEvent{event.ID: event}}
	engine := newTestRouter(reader, nil, tenant)

	rec := get(t, engine, "/api/v1/calls/"+event.ID.String()+"/recording")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var link RecordingLink
	if err := json.Unmarshal(rec.Body.Bytes(), &link); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if link.URL != event.RecordingURL {
		t.Errorf("url = %q, want provider url", link.URL)
	}
}

func TestGetRecordingMissing(t *testing.T) {
	tenant := tenants.Tenant{ID: uuid.New()}
	event := sampleEvent(tenant.ID)
	reader := &fakeReader{events: map[uuid.UUID]calls.CallEvent{event.ID: event}}
	engine := newTestRouter(reader, nil, tenant)

	rec := get(t, engine, "/api/v1/calls/"+event.ID.String()+"/recording")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 when no recording exists", rec.Code)
	}
}

func TestGetStatsSummary(t *testing.T) {
	tenant := tenants.Tenant{ID: uuid.New()}
	reader := &fakeReader{counts: map[string]int{
		calls.AnalysisPending:   2,
		calls.AnalysisCompleted: 5,
		calls.AnalysisFailed:    1,
	}}
	engine := newTestRouter(reader, nil, tenant)

	rec := get(t, engine, "/api/v1/stats/summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var summary StatsSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.TotalCalls != 8 || summary.Pending != 2 || summary.Completed != 5 || summary.Failed != 1 {
		t.Errorf("summary = %+v", summary)
	}
}
