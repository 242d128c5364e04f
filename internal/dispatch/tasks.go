// Package dispatch provides the durable job queue for deferred call analysis.
// It wraps asynq: enqueueing with event-id dedupe, aggregate stats with an
// availability timeout, and the worker that drains the queue.
package dispatch

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskAnalyzeCall is the task type for transcript analysis jobs.
const TaskAnalyzeCall = "call:analyze"

// AnalyzeCallPayload references the durable call event a job works on.
type AnalyzeCallPayload struct {
	CallEventID string `json:"callEventId"`
	TenantID    string `json:"tenantId"`
	AssistantID string `json:"assistantId"`
}

// TaskIDForCallEvent builds the dedupe key for a call event's analysis job.
// Keyed purely on the event id: asynq rejects a second enqueue while the
// first job is live, giving at-most-one live job per call event.
func TaskIDForCallEvent(callEventID string) string {
	return TaskAnalyzeCall + ":" + callEventID
}

// NewAnalyzeCallTask builds the asynq task for a payload.
func NewAnalyzeCallTask(payload AnalyzeCallPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyzeCall, data), nil
}

// ParseAnalyzeCallPayload decodes a task back into its payload.
func ParseAnalyzeCallPayload(task *asynq.Task) (AnalyzeCallPayload, error) {
	var payload AnalyzeCallPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AnalyzeCallPayload{}, err
	}
	return payload, nil
}
