package calls

import (
	"github.com/bluelotus98/blue-lotus-backend/internal/events"
	apphttp "github.com/bluelotus98/blue-lotus-backend/internal/http"
	"github.com/bluelotus98/blue-lotus-backend/internal/tenants"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"
	"github.com/bluelotus98/blue-lotus-backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook intake bounded context implementing http.Module.
type Module struct {
	handler *Handler
	service *Service
}

// NewModule creates and initializes the intake module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, enqueuer AnalysisEnqueuer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	resolver := tenants.NewResolver(tenants.NewRepository(pool))
	svc := NewService(repo, enqueuer, bus, log)
	h := NewHandler(svc, resolver, val, log)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calls"
}

// RegisterRoutes mounts the webhook intake on the engine root. Deliberately
// no rate limiter here: every event is revenue data and the source retries
// from a single IP.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.POST("/webhooks/:provider", m.handler.HandleWebhook)
}
