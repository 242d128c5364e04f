package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bluelotus98/blue-lotus-backend/internal/dispatch"
	apphttp "github.com/bluelotus98/blue-lotus-backend/internal/http"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type stubHTTPConfig struct{}

func (stubHTTPConfig) GetHTTPAddr() string      { return ":0" }
func (stubHTTPConfig) GetCORSAllowAll() bool    { return true }
func (stubHTTPConfig) GetCORSOrigins() []string { return nil }

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

type fakeQueue struct {
	stats *dispatch.Stats
	err   error
}

func (f fakeQueue) Stats(context.Context) (*dispatch.Stats, error) { return f.stats, f.err }

func newApp(health fakeHealth, queue apphttp.QueueStats) *apphttp.App {
	gin.SetMode(gin.TestMode)
	return &apphttp.App{
		Config: stubHTTPConfig{},
		Logger: logger.New("development"),
		Health: health,
		Queue:  queue,
	}
}

func TestHealthHealthy(t *testing.T) {
	engine := New(newApp(fakeHealth{}, fakeQueue{stats: &dispatch.Stats{Waiting: 2, Total: 2}}))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Status string          `json:"status"`
		Queue  json.RawMessage `json:"queue"`
		Checks struct {
			Database string `json:"database"`
		} `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" || body.Checks.Database != "up" {
		t.Errorf("body = %+v", body)
	}
}

func TestHealthDegradedStaysTwoHundred(t *testing.T) {
	engine := New(newApp(
		fakeHealth{err: errors.New("pg down")},
		fakeQueue{err: dispatch.ErrQueueUnavailable},
	))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 even when degraded", rec.Code)
	}

	var body struct {
		Status string `json:"status"`
		Queue  struct {
			Error string `json:"error"`
		} `json:"queue"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" {
		t.Errorf("status = %q, want degraded", body.Status)
	}
	if body.Queue.Error != "unavailable" {
		t.Errorf("queue = %+v, want unavailable marker", body.Queue)
	}
}

func TestQueueStatsNullWhenBrokerUnreachable(t *testing.T) {
	engine := New(newApp(fakeHealth{}, fakeQueue{err: dispatch.ErrQueueUnavailable}))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/queue/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != "null" {
		t.Errorf("body = %q, want null", body)
	}
}

func TestQueueStatsReturnsCounts(t *testing.T) {
	engine := New(newApp(fakeHealth{}, fakeQueue{stats: &dispatch.Stats{Waiting: 1, Completed: 4, Total: 5}}))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/queue/stats", nil))

	var stats dispatch.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Waiting != 1 || stats.Completed != 4 || stats.Total != 5 {
		t.Errorf("stats = %+v", stats)
	}
}
