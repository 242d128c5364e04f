package calls

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bluelotus98/blue-lotus-backend/internal/calls/transport"
	"github.com/bluelotus98/blue-lotus-backend/internal/events"
	"github.com/bluelotus98/blue-lotus-backend/internal/tenants"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"
	"github.com/bluelotus98/blue-lotus-backend/platform/validator"

	"github.com/gin-gonic/gin"
)

type fakeResolver struct {
	tenant tenants.Tenant
	err    error
}

func (f *fakeResolver) Resolve(_ context.Context, _, _, _ string) (tenants.Tenant, error) {
	return f.tenant, f.err
}

func newTestEngine(store *fakeStore, enqueuer *fakeEnqueuer, resolver *fakeResolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.New("development")
	svc := NewService(store, enqueuer, events.NewInMemoryBus(log), log)
	h := NewHandler(svc, resolver, validator.New(), log)

	engine := gin.New()
	engine.POST("/webhooks/:provider", h.HandleWebhook)
	return engine
}

func postWebhook(t *testing.T, engine *gin.Engine, body []byte) (int, transport.WebhookResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/vapi", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var resp transport.WebhookResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return rec.Code, resp
}

func TestHandleWebhookSuccess(t *testing.T) {
	tenant := testTenant()
	store := &fakeStore{persisted: true}
	enqueuer := &fakeEnqueuer{}
	engine := newTestEngine(store, enqueuer, &fakeResolver{tenant: tenant})

	body, _ := json.Marshal(testEnvelope())
	code, resp := postWebhook(t, engine, body)

	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if !resp.Received {
		t.Error("received should be true")
	}
	if resp.BusinessID != tenant.ID.String() {
		t.Errorf("businessId = %q, want tenant id", resp.BusinessID)
	}
	if resp.ProcessingQueued == nil || !*resp.ProcessingQueued {
		t.Error("processingQueued should be true")
	}
}

func TestHandleWebhookMalformedPayloadStillAcks(t *testing.T) {
	engine := newTestEngine(&fakeStore{}, &fakeEnqueuer{}, &fakeResolver{tenant: testTenant()})

	code, resp := postWebhook(t, engine, []byte("{not json"))
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even for garbage", code)
	}
	if resp.Received || resp.Error == "" {
		t.Errorf("resp = %+v, want received=false with error", resp)
	}
}

func TestHandleWebhookMissingRequiredFields(t *testing.T) {
	engine := newTestEngine(&fakeStore{}, &fakeEnqueuer{}, &fakeResolver{tenant: testTenant()})

	code, resp := postWebhook(t, engine, []byte(`{"call":{}}`))
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Received {
		t.Error("invalid envelope must not be reported as received")
	}
}

func TestHandleWebhookUnknownTenantStillAcks(t *testing.T) {
	engine := newTestEngine(&fakeStore{}, &fakeEnqueuer{}, &fakeResolver{err: tenants.ErrTenantNotFound})

	body, _ := json.Marshal(testEnvelope())
	code, resp := postWebhook(t, engine, body)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for unknown tenant", code)
	}
	if resp.Received || resp.Error != "unknown tenant" {
		t.Errorf("resp = %+v, want received=false with unknown tenant error", resp)
	}
}

func TestHandleWebhookStorageFailureStillAcks(t *testing.T) {
	store := &fakeStore{err: errors.New("pg down")}
	engine := newTestEngine(store, &fakeEnqueuer{}, &fakeResolver{tenant: testTenant()})

	body, _ := json.Marshal(testEnvelope())
	code, resp := postWebhook(t, engine, body)
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even on storage failure", code)
	}
	if resp.Received || resp.Error != "storage failure" {
		t.Errorf("resp = %+v, want storage failure body", resp)
	}
}

func TestHandleWebhookIgnoredEventTypeAcks(t *testing.T) {
	store := &fakeStore{persisted: true}
	enqueuer := &fakeEnqueuer{}
	engine := newTestEngine(store, enqueuer, &fakeResolver{tenant: testTenant()})

	envelope := testEnvelope()
	envelope.Type = "transcript-update"
	body, _ := json.Marshal(envelope)

	code, resp := postWebhook(t, engine, body)
	if code != http.StatusOK || !resp.Received {
		t.Fatalf("status = %d, received = %v; ignored types still ack", code, resp.Received)
	}
	if len(store.inserted) != 0 {
		t.Error("ignored event must not be persisted")
	}
}
