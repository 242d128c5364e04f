// Package calls provides the call-event ingestion bounded context.
// It validates inbound webhook payloads, persists raw call events under
// per-tenant isolation, and hands analysis work to the job dispatcher.
package calls

import (
	"time"

	"github.com/google/uuid"
)

// Analysis status values. The tri-state distinguishes "not analyzed yet"
// from "gave up after retries"; the nullable analysis columns alone cannot.
const (
	AnalysisPending   = "pending"
	AnalysisCompleted = "completed"
	AnalysisFailed    = "failed"
)

// callEventNamespace seeds deterministic event ids: the same provider call id
// always maps to the same row, which is what makes the insert idempotent.
var callEventNamespace = uuid.MustParse("8f3c6f7a-2d44-4f0e-9a1b-5a9d1c2e7b31")

// DeterministicID derives the CallEvent primary key from the upstream call id.
func DeterministicID(provider, sourceCallID string) uuid.UUID {
	return uuid.NewSHA1(callEventNamespace, []byte(provider+":"+sourceCallID))
}

// CallEvent is the durable raw record of one inbound call notification.
// Everything outside the analysis block is immutable after insert; the
// analysis block transitions pending -> populated exactly once.
type CallEvent struct {
	ID           uuid.UUID
	TenantID     uuid.UUID
	Provider     string
	SourceCallID string
	AssistantID  string
	CallerNumber string
	CallerName   string
	Duration     int
	Transcript   string
	Summary      string
	Status       string
	EndedReason  string
	RecordingURL string
	RecordingKey string
	RawPayload   []byte
	StartedAt    *time.Time
	ReceivedAt   time.Time

	AnalysisStatus  string
	Sentiment       *string
	Outcome         *string
	LeadScore       *int
	Topics          []string
	ActionItems     []string
	AnalysisSummary *string
	AnalyzedAt      *time.Time
}
