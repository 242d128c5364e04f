package events

import "github.com/google/uuid"

// Event names for cross-module subscriptions.
const (
	EventCallEventReceived     = "call_event.received"
	EventCallAnalysisCompleted = "call_event.analysis_completed"
	EventCallAnalysisFailed    = "call_event.analysis_failed"
)

// CallEventReceived is published after a webhook payload has been durably
// persisted. Queued reports whether the analysis job made it onto the queue.
type CallEventReceived struct {
	BaseEvent
	CallEventID string
	TenantID    uuid.UUID
	Provider    string
	Queued      bool
}

func (CallEventReceived) EventName() string { return EventCallEventReceived }

// CallAnalysisCompleted is published by the worker after the analysis block
// has been applied to the call event.
type CallAnalysisCompleted struct {
	BaseEvent
	CallEventID string
	TenantID    uuid.UUID
}

func (CallAnalysisCompleted) EventName() string { return EventCallAnalysisCompleted }

// CallAnalysisFailed is published when a job exhausts its retries. The call
// event's analysis block is marked failed; operators get alerted.
type CallAnalysisFailed struct {
	BaseEvent
	CallEventID string
	TenantID    uuid.UUID
	Reason      string
}

func (CallAnalysisFailed) EventName() string { return EventCallAnalysisFailed }
