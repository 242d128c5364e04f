package calls

import (
	"context"
	"errors"
	"net/http"

	"github.com/bluelotus98/blue-lotus-backend/internal/calls/transport"
	"github.com/bluelotus98/blue-lotus-backend/internal/tenants"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"
	"github.com/bluelotus98/blue-lotus-backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// TenantResolver maps request context to a tenant. Satisfied by
// tenants.Resolver.
type TenantResolver interface {
	Resolve(ctx context.Context, hostHeader, assistantID, explicitTenantID string) (tenants.Tenant, error)
}

// Handler handles inbound webhook HTTP requests.
//
// Every response on this boundary is HTTP 200. Malformed payloads, unknown
// tenants, even storage failures are acknowledged; a non-200 would only make
// the event source redeliver what we already know we cannot use. The body
// and the server-side logs carry the distinction.
type Handler struct {
	service  *Service
	resolver TenantResolver
	val      *validator.Validator
	log      *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(service *Service, resolver TenantResolver, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{service: service, resolver: resolver, val: val, log: log}
}

// HandleWebhook processes an inbound call-event webhook.
// POST /webhooks/:provider
func (h *Handler) HandleWebhook(c *gin.Context) {
	provider := c.Param("provider")

	var envelope transport.WebhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		h.log.WebhookEvent(provider, "", "", false, "malformed payload: "+err.Error())
		c.JSON(http.StatusOK, transport.WebhookResponse{Received: false, Error: "invalid payload"})
		return
	}
	if err := h.val.Struct(envelope); err != nil {
		h.log.WebhookEvent(provider, envelope.Type, envelope.Call.ID, false, "validation: "+err.Error())
		c.JSON(http.StatusOK, transport.WebhookResponse{Received: false, Error: "invalid payload"})
		return
	}

	tenant, err := h.resolver.Resolve(
		c.Request.Context(),
		c.Request.Host,
		envelope.Call.AssistantID,
		c.GetHeader("X-Tenant-ID"),
	)
	if err != nil {
		if errors.Is(err, tenants.ErrTenantNotFound) {
			// Likely upstream misconfiguration: an assistant sending
			// events nobody claims. Operational anomaly, not a fault.
			h.log.WebhookEvent(provider, envelope.Type, envelope.Call.ID, false, "no tenant for event")
		} else {
			h.log.Error("tenant resolution failed", "provider", provider, "error", err)
		}
		c.JSON(http.StatusOK, transport.WebhookResponse{Received: false, Error: "unknown tenant"})
		return
	}

	result, err := h.service.Ingest(c.Request.Context(), provider, envelope, tenant)
	if err != nil {
		// The row was not written. Acknowledge anyway; retrying from the
		// provider side would just hammer a struggling datastore. This is
		// a data-loss risk, so it logs as an error.
		h.log.Error("call event write failed",
			"provider", provider,
			"callId", envelope.Call.ID,
			"tenantId", tenant.ID,
			"error", err,
		)
		c.JSON(http.StatusOK, transport.WebhookResponse{Received: false, Error: "storage failure"})
		return
	}

	if result.Skipped {
		h.log.WebhookEvent(provider, envelope.Type, envelope.Call.ID, false, result.SkipReason)
		c.JSON(http.StatusOK, transport.WebhookResponse{Received: true})
		return
	}

	h.log.WebhookEvent(provider, envelope.Type, envelope.Call.ID, true, "")

	queued := result.Queued
	c.JSON(http.StatusOK, transport.WebhookResponse{
		Received:         true,
		CallID:           result.CallEventID.String(),
		BusinessID:       result.TenantID.String(),
		ProcessingQueued: &queued,
		Duration:         result.Duration,
	})
}
