package dashboard

import (
	"github.com/bluelotus98/blue-lotus-backend/internal/calls"
	apphttp "github.com/bluelotus98/blue-lotus-backend/internal/http"
	"github.com/bluelotus98/blue-lotus-backend/internal/tenants"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the dashboard bounded context implementing http.Module.
type Module struct {
	handler  *Handler
	resolver *tenants.Resolver
	log      *logger.Logger
}

// NewModule creates and initializes the dashboard module. presigner may be
// nil when object storage is not configured.
func NewModule(pool *pgxpool.Pool, presigner RecordingPresigner, log *logger.Logger) *Module {
	return &Module{
		handler:  NewHandler(calls.NewRepository(pool), presigner, log),
		resolver: tenants.NewResolver(tenants.NewRepository(pool)),
		log:      log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dashboard"
}

// RegisterRoutes mounts the tenant-scoped read endpoints under /api/v1.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("")
	group.Use(ctx.RateLimiter.RateLimit())
	group.Use(TenantMiddleware(m.resolver, m.log))

	group.GET("/calls", m.handler.ListCalls)
	group.GET("/calls/:callId", m.handler.GetCall)
	group.GET("/calls/:callId/recording", m.handler.GetRecording)
	group.GET("/stats/summary", m.handler.GetStatsSummary)
}
