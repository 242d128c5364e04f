// Package dashboard provides tenant-scoped read endpoints over ingested call
// events: listings, detail, recordings, and summary stats.
package dashboard

import (
	"errors"
	"net/http"

	"github.com/bluelotus98/blue-lotus-backend/internal/tenants"
	"github.com/bluelotus98/blue-lotus-backend/platform/httpkit"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const tenantContextKey = "dashboard.tenant"

// TenantMiddleware resolves the requesting tenant from the Host subdomain or
// the X-Tenant-ID header and aborts with 404 when neither matches. Unlike the
// webhook boundary, dashboard reads surface real status codes.
func TenantMiddleware(resolver *tenants.Resolver, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenant, err := resolver.Resolve(
			c.Request.Context(),
			c.Request.Host,
			"",
			c.GetHeader("X-Tenant-ID"),
		)
		if err != nil {
			if errors.Is(err, tenants.ErrTenantNotFound) {
				httpkit.Error(c, http.StatusNotFound, "tenant not found", nil)
			} else {
				log.Error("tenant resolution failed", "host", c.Request.Host, "error", err)
				httpkit.Error(c, http.StatusInternalServerError, "internal error", nil)
			}
			c.Abort()
			return
		}
		c.Set(tenantContextKey, tenant)
		c.Next()
	}
}

// tenantFrom pulls the resolved tenant out of the request context.
func tenantFrom(c *gin.Context) (tenants.Tenant, bool) {
	value, ok := c.Get(tenantContextKey)
	if !ok {
		return tenants.Tenant{}, false
	}
	tenant, ok := value.(tenants.Tenant)
	return tenant, ok
}
