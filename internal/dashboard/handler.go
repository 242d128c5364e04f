package dashboard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/internal/calls"
	"github.com/bluelotus98/blue-lotus-backend/platform/httpkit"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// CallReader is the read surface over persisted call events. Satisfied by
// calls.Repository.
type CallReader interface {
	GetByID(ctx context.Context, id, tenantID uuid.UUID) (calls.CallEvent, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]calls.CallEvent, error)
	CountByAnalysisStatus(ctx context.Context, tenantID uuid.UUID) (map[string]int, error)
}

// RecordingPresigner hands out short-lived download links for archived
// recordings. Satisfied by recordings.Service; may be nil.
type RecordingPresigner interface {
	PresignDownload(ctx context.Context, key string) (string, time.Time, error)
}

// Handler serves the tenant-scoped dashboard reads.
type Handler struct {
	reader    CallReader
	presigner RecordingPresigner
	log       *logger.Logger
}

// NewHandler creates a new dashboard handler. presigner may be nil when
// object storage is not configured.
func NewHandler(reader CallReader, presigner RecordingPresigner, log *logger.Logger) *Handler {
	return &Handler{reader: reader, presigner: presigner, log: log}
}

// ListCalls returns the tenant's calls, newest first.
// GET /api/v1/calls
func (h *Handler) ListCalls(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		httpkit.Error(c, http.StatusNotFound, "tenant not found", nil)
		return
	}

	limit := queryInt(c, "limit", defaultPageSize)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	events, err := h.reader.ListByTenant(c.Request.Context(), tenant.ID, limit, offset)
	if err != nil {
		h.log.DatabaseError("list_calls", err)
		httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	items := make([]CallSummary, 0, len(events))
	for _, event := range events {
		items = append(items, toCallSummary(event))
	}

	httpkit.OK(c, gin.H{
		"calls":  items,
		"limit":  limit,
		"offset": offset,
	})
}

// GetCall returns one call with transcript and analysis.
// GET /api/v1/calls/:callId
func (h *Handler) GetCall(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		httpkit.Error(c, http.StatusNotFound, "tenant not found", nil)
		return
	}

	callID, err := uuid.Parse(c.Param("callId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid call id", nil)
		return
	}

	event, err := h.reader.GetByID(c.Request.Context(), callID, tenant.ID)
	if err != nil {
		if errors.Is(err, calls.ErrCallEventNotFound) {
			httpkit.Error(c, http.StatusNotFound, "call not found", nil)
			return
		}
		h.log.DatabaseError("get_call", err)
		httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	httpkit.OK(c, toCallDetail(event))
}

// GetRecording returns a playable URL for the call's recording: a presigned
// link when the audio has been archived, the provider URL otherwise.
// GET /api/v1/calls/:callId/recording
func (h *Handler) GetRecording(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		httpkit.Error(c, http.StatusNotFound, "tenant not found", nil)
		return
	}

	callID, err := uuid.Parse(c.Param("callId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid call id", nil)
		return
	}

	event, err := h.reader.GetByID(c.Request.Context(), callID, tenant.ID)
	if err != nil {
		if errors.Is(err, calls.ErrCallEventNotFound) {
			httpkit.Error(c, http.StatusNotFound, "call not found", nil)
			return
		}
		h.log.DatabaseError("get_recording", err)
		httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	if event.RecordingKey != "" && h.presigner != nil {
		url, expiresAt, err := h.presigner.PresignDownload(c.Request.Context(), event.RecordingKey)
		if err == nil {
			httpkit.OK(c, RecordingLink{URL: url, ExpiresAt: &expiresAt})
			return
		}
		h.log.Warn("recording presign failed, falling back to provider url", "callId", callID, "error", err)
	}

	if event.RecordingURL != "" {
		httpkit.OK(c, RecordingLink{URL: event.RecordingURL})
		return
	}

	httpkit.Error(c, http.StatusNotFound, "no recording for this call", nil)
}

// GetStatsSummary returns the tenant's call counts by analysis state.
// GET /api/v1/stats/summary
func (h *Handler) GetStatsSummary(c *gin.Context) {
	tenant, ok := tenantFrom(c)
	if !ok {
		httpkit.Error(c, http.StatusNotFound, "tenant not found", nil)
		return
	}

	counts, err := h.reader.CountByAnalysisStatus(c.Request.Context(), tenant.ID)
	if err != nil {
		h.log.DatabaseError("stats_summary", err)
		httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
		return
	}

	summary := StatsSummary{
		Pending:   counts[calls.AnalysisPending],
		Completed: counts[calls.AnalysisCompleted],
		Failed:    counts[calls.AnalysisFailed],
	}
	summary.TotalCalls = summary.Pending + summary.Completed + summary.Failed

	httpkit.OK(c, summary)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
