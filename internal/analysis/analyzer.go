// Package analysis turns raw call transcripts into structured insight.
// The analyzer runs only inside the worker process; the webhook path never
// waits on it.
package analysis

import (
	"context"
	"errors"
)

// ErrEmptyTranscript is returned when there is nothing to analyze. The worker
// treats it as a non-retryable outcome.
var ErrEmptyTranscript = errors.New("empty transcript")

// Request carries the transcript plus the tenant context that shapes the
// prompt.
type Request struct {
	Transcript   string
	BusinessType string
	CallerName   string
	Duration     int
}

// Result is the structured insight block. Field meanings mirror the
// call_events analysis columns.
type Result struct {
	Sentiment   string
	Outcome     string
	LeadScore   int
	Topics      []string
	ActionItems []string
	Summary     string
}

// Analyzer produces a Result for one call.
type Analyzer interface {
	AnalyzeTranscript(ctx context.Context, req Request) (Result, error)
}
