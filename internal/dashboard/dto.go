package dashboard

import (
	"time"

	"github.com/bluelotus98/blue-lotus-backend/internal/calls"
)

// CallSummary is the listing row. It omits the transcript and raw payload;
// those belong to the detail view.
type CallSummary struct {
	ID             string     `json:"id"`
	Provider       string     `json:"provider"`
	CallerNumber   string     `json:"callerNumber,omitempty"`
	CallerName     string     `json:"callerName,omitempty"`
	Duration       int        `json:"duration"`
	Status         string     `json:"status,omitempty"`
	EndedReason    string     `json:"endedReason,omitempty"`
	HasRecording   bool       `json:"hasRecording"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	ReceivedAt     time.Time  `json:"receivedAt"`
	AnalysisStatus string     `json:"analysisStatus"`
	Sentiment      *string    `json:"sentiment,omitempty"`
	Outcome        *string    `json:"outcome,omitempty"`
	LeadScore      *int       `json:"leadScore,omitempty"`
	Summary        *string    `json:"summary,omitempty"`
}

// CallDetail is the full read model for one call event.
type CallDetail struct {
	CallSummary
	Transcript  string   `json:"transcript,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	ActionItems []string `json:"actionItems,omitempty"`
}

// RecordingLink is the response for the recording endpoint.
type RecordingLink struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// StatsSummary aggregates the tenant's call counts by analysis state.
type StatsSummary struct {
	TotalCalls int `json:"totalCalls"`
	Pending    int `json:"pending"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

func toCallSummary(event calls.CallEvent) CallSummary {
	var summary *string
	if event.AnalysisSummary != nil {
		summary = event.AnalysisSummary
	} else if event.Summary != "" {
		s := event.Summary
		summary = &s
	}

	return CallSummary{
		ID:             event.ID.String(),
		Provider:       event.Provider,
		CallerNumber:   event.CallerNumber,
		CallerName:     event.CallerName,
		Duration:       event.Duration,
		Status:         event.Status,
		EndedReason:    event.EndedReason,
		HasRecording:   event.RecordingKey != "" || event.RecordingURL != "",
		StartedAt:      event.StartedAt,
		ReceivedAt:     event.ReceivedAt,
		AnalysisStatus: event.AnalysisStatus,
		Sentiment:      event.Sentiment,
		Outcome:        event.Outcome,
		LeadScore:      event.LeadScore,
		Summary:        summary,
	}
}

func toCallDetail(event calls.CallEvent) CallDetail {
	return CallDetail{
		CallSummary: toCallSummary(event),
		Transcript:  event.Transcript,
		Topics:      event.Topics,
		ActionItems: event.ActionItems,
	}
}
