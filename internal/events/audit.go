package events

import (
	"context"

	"github.com/bluelotus98/blue-lotus-backend/platform/logger"
)

// AuditLog writes one structured log line per pipeline lifecycle event. Both
// processes register it at startup so every published event leaves an
// operational trail.
type AuditLog struct {
	log *logger.Logger
}

// NewAuditLog creates the audit subscriber.
func NewAuditLog(log *logger.Logger) *AuditLog {
	return &AuditLog{log: log}
}

// RegisterHandlers subscribes the audit log to all pipeline events.
func (a *AuditLog) RegisterHandlers(bus Bus) {
	bus.Subscribe(EventCallEventReceived, a)
	bus.Subscribe(EventCallAnalysisCompleted, a)
	bus.Subscribe(EventCallAnalysisFailed, a)
}

// Handle implements Handler.
func (a *AuditLog) Handle(_ context.Context, event Event) error {
	switch e := event.(type) {
	case CallEventReceived:
		a.log.Info("call event received",
			"callEventId", e.CallEventID,
			"tenantId", e.TenantID,
			"provider", e.Provider,
			"queued", e.Queued,
		)
	case CallAnalysisCompleted:
		a.log.Info("call analysis completed", "callEventId", e.CallEventID, "tenantId", e.TenantID)
	case CallAnalysisFailed:
		a.log.Warn("call analysis failed", "callEventId", e.CallEventID, "tenantId", e.TenantID, "reason", e.Reason)
	}
	return nil
}
