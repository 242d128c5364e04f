package events

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	"github.com/google/uuid"
)

func TestAuditLogHandlesAllPipelineEvents(t *testing.T) {
	log := logger.New("development")
	bus := NewInMemoryBus(log)
	NewAuditLog(log).RegisterHandlers(bus)

	tenantID := uuid.New()
	pipeline := []Event{
		CallEventReceived{BaseEvent: NewBaseEvent(), CallEventID: "evt-1", TenantID: tenantID, Provider: "vapi", Queued: true},
		CallAnalysisCompleted{BaseEvent: NewBaseEvent(), CallEventID: "evt-1", TenantID: tenantID},
		CallAnalysisFailed{BaseEvent: NewBaseEvent(), CallEventID: "evt-1", TenantID: tenantID, Reason: "model timeout"},
	}

	for _, event := range pipeline {
		if err := bus.PublishSync(context.Background(), event); err != nil {
			t.Fatalf("PublishSync(%s): %v", event.EventName(), err)
		}
	}
}

func TestPublishedEventsReachSubscribers(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))

	var handled atomic.Int32
	bus.Subscribe(EventCallEventReceived, HandlerFunc(func(_ context.Context, event Event) error {
		if _, ok := event.(CallEventReceived); !ok {
			t.Errorf("event = %T, want CallEventReceived", event)
		}
		handled.Add(1)
		return nil
	}))

	err := bus.PublishSync(context.Background(), CallEventReceived{
		BaseEvent:   NewBaseEvent(),
		CallEventID: "evt-2",
		TenantID:    uuid.New(),
		Provider:    "vapi",
		Queued:      true,
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}
	if handled.Load() != 1 {
		t.Errorf("handled = %d, want 1", handled.Load())
	}
}
