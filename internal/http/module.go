package http

import (
	"github.com/bluelotus98/blue-lotus-backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module represents a bounded context that can register its HTTP routes.
// Each domain module implements this interface to encapsulate its own
// route setup, keeping the main router decoupled from specific endpoints.
type Module interface {
	// Name returns the module's identifier for logging purposes.
	Name() string
	// RegisterRoutes mounts the module's routes on the provided router group.
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext provides shared dependencies for module route registration.
type RouterContext struct {
	// Engine is the root Gin engine for modules that need engine-level
	// access. The webhook intake mounts here, outside /api/v1.
	Engine *gin.Engine
	// V1 is the /api/v1 route group used by dashboard reads.
	V1 *gin.RouterGroup
	// RateLimiter throttles per client IP. Webhook routes must not use it;
	// the event source is one IP and must never be throttled.
	RateLimiter *httpkit.IPRateLimiter
}
