// Package transport defines the wire-level DTOs for the calls module.
package transport

import "strings"

// WebhookEnvelope is the inbound call-event payload. The shape is validated
// at the boundary; nothing downstream trusts an open map.
type WebhookEnvelope struct {
	Type string      `json:"type" validate:"required"`
	Call CallPayload `json:"call"`
}

// CallPayload carries the call data inside an envelope.
type CallPayload struct {
	ID          string            `json:"id" validate:"required"`
	AssistantID string            `json:"assistantId"`
	Transcript  string            `json:"transcript"`
	Duration    int               `json:"duration"`
	Customer    *CustomerPayload  `json:"customer,omitempty"`
	Recording   *RecordingPayload `json:"recording,omitempty"`
	Summary     string            `json:"summary,omitempty"`
	Status      string            `json:"status"`
	CreatedAt   string            `json:"createdAt"`
	EndedReason string            `json:"endedReason,omitempty"`
}

// CustomerPayload identifies the caller.
type CustomerPayload struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

// RecordingPayload points at the provider-hosted call recording.
type RecordingPayload struct {
	URL string `json:"url"`
}

// acceptedEventTypes holds the normalized event types that represent a
// finished call. Everything else is acknowledged and dropped.
var acceptedEventTypes = map[string]bool{
	"call-ended":         true,
	"end-of-call-report": true,
}

// IsAcceptedEventType reports whether the event type names a finished call.
// Providers disagree on separators ("call.ended", "call_ended", "call ended"),
// so the type is normalized before the lookup.
func IsAcceptedEventType(eventType string) bool {
	normalized := strings.ToLower(strings.TrimSpace(eventType))
	for _, sep := range []string{".", "_", " "} {
		normalized = strings.ReplaceAll(normalized, sep, "-")
	}
	return acceptedEventTypes[normalized]
}

// WebhookResponse is always returned with HTTP 200. Business-level rejection
// is expressed in the body only; a non-200 would trigger provider retry
// storms.
type WebhookResponse struct {
	Received         bool   `json:"received"`
	CallID           string `json:"callId,omitempty"`
	BusinessID       string `json:"businessId,omitempty"`
	ProcessingQueued *bool  `json:"processingQueued,omitempty"`
	Duration         int    `json:"duration,omitempty"`
	Error            string `json:"error,omitempty"`
}
