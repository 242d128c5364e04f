package calls

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrCallEventNotFound is returned when no call event matches id + tenant.
var ErrCallEventNotFound = errors.New("call event not found")

// AnalysisFields is the block populated exactly once by the analysis worker.
type AnalysisFields struct {
	Sentiment   string
	Outcome     string
	LeadScore   int
	Topics      []string
	ActionItems []string
	Summary     string
}

// Repository provides data access for call events. Every query takes an
// explicit tenant id; there is no ambient tenant context.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new call event repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const callEventColumns = `
	id, tenant_id, provider, source_call_id, assistant_id,
	caller_number, caller_name, duration_seconds, transcript, summary,
	status, ended_reason, recording_url, recording_key, raw_payload,
	started_at, received_at,
	analysis_status, sentiment, outcome, lead_score, topics, action_items,
	analysis_summary, analyzed_at`

// Insert persists a call event if its id is not already present. Returns
// true when a row was written, false on the redelivery no-op. Redelivery of
// the same id must never duplicate or error.
func (r *Repository) Insert(ctx context.Context, event CallEvent) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO call_events (
			id, tenant_id, provider, source_call_id, assistant_id,
			caller_number, caller_name, duration_seconds, transcript, summary,
			status, ended_reason, recording_url, raw_payload, started_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING
	`,
		event.ID, event.TenantID, event.Provider, event.SourceCallID, event.AssistantID,
		event.CallerNumber, event.CallerName, event.Duration, event.Transcript, event.Summary,
		event.Status, event.EndedReason, event.RecordingURL, event.RawPayload, event.StartedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// GetByID retrieves a call event scoped to a tenant.
func (r *Repository) GetByID(ctx context.Context, id, tenantID uuid.UUID) (CallEvent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+callEventColumns+`
		FROM call_events
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID)
	return scanCallEvent(row)
}

// ListByTenant returns the tenant's call events, newest first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]CallEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+callEventColumns+`
		FROM call_events
		WHERE tenant_id = $1
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3
	`, tenantID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []CallEvent
	for rows.Next() {
		event, err := scanCallEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// ApplyAnalysis writes the analysis block exactly once. The status guard
// makes a second apply (job redelivery, worker restart) a no-op rather than
// an overwrite. Returns true when the block was written.
func (r *Repository) ApplyAnalysis(ctx context.Context, id, tenantID uuid.UUID, fields AnalysisFields) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE call_events
		SET analysis_status = $3, sentiment = $4, outcome = $5, lead_score = $6,
		    topics = $7, action_items = $8, analysis_summary = $9, analyzed_at = now()
		WHERE id = $1 AND tenant_id = $2 AND analysis_status = $10
	`,
		id, tenantID, AnalysisCompleted,
		fields.Sentiment, fields.Outcome, fields.LeadScore,
		fields.Topics, fields.ActionItems, fields.Summary,
		AnalysisPending,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkAnalysisFailed flips a still-pending analysis block to failed. Called
// after the job's retries are exhausted; a completed block is left alone.
func (r *Repository) MarkAnalysisFailed(ctx context.Context, id, tenantID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE call_events
		SET analysis_status = $3
		WHERE id = $1 AND tenant_id = $2 AND analysis_status = $4
	`, id, tenantID, AnalysisFailed, AnalysisPending)
	return err
}

// SetRecordingKey stores the object-storage key after the recording has been
// archived.
func (r *Repository) SetRecordingKey(ctx context.Context, id, tenantID uuid.UUID, key string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE call_events
		SET recording_key = $3
		WHERE id = $1 AND tenant_id = $2
	`, id, tenantID, key)
	return err
}

// CountByAnalysisStatus returns per-status call counts for a tenant.
func (r *Repository) CountByAnalysisStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT analysis_status, count(*)
		FROM call_events
		WHERE tenant_id = $1
		GROUP BY analysis_status
	`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCallEvent(row rowScanner) (CallEvent, error) {
	var event CallEvent
	var startedAt, analyzedAt *time.Time
	err := row.Scan(
		&event.ID, &event.TenantID, &event.Provider, &event.SourceCallID, &event.AssistantID,
		&event.CallerNumber, &event.CallerName, &event.Duration, &event.Transcript, &event.Summary,
		&event.Status, &event.EndedReason, &event.RecordingURL, &event.RecordingKey, &event.RawPayload,
		&startedAt, &event.ReceivedAt,
		&event.AnalysisStatus, &event.Sentiment, &event.Outcome, &event.LeadScore,
		&event.Topics, &event.ActionItems, &event.AnalysisSummary, &analyzedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return CallEvent{}, ErrCallEventNotFound
	}
	event.StartedAt = startedAt
	event.AnalyzedAt = analyzedAt
	return event, err
}
