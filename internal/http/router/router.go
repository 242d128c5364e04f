// Package router assembles the Gin engine from the composed App.
package router

import (
	nethttp "net/http"
	"time"

	apphttp "github.com/bluelotus98/blue-lotus-backend/internal/http"
	"github.com/bluelotus98/blue-lotus-backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// New builds the engine: global middleware, health and queue stats endpoints,
// then each module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(app))

	engine.GET("/health", healthHandler(app))
	engine.GET("/queue/stats", queueStatsHandler(app))

	rateLimiter := httpkit.NewIPRateLimiter(rate.Every(time.Second), 20, app.Logger)

	routerCtx := &apphttp.RouterContext{
		Engine:      engine,
		V1:          engine.Group("/api/v1"),
		RateLimiter: rateLimiter,
	}

	for _, module := range app.Modules {
		module.RegisterRoutes(routerCtx)
		app.Logger.Info("module routes registered", "module", module.Name())
	}

	return engine
}

func corsMiddleware(app *apphttp.App) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Tenant-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if app.Config.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = app.Config.GetCORSOrigins()
	}
	return cors.New(corsCfg)
}

// healthHandler always answers 200. A struggling dependency degrades the
// body, not the status; load balancers keep routing while operators see the
// detail.
func healthHandler(app *apphttp.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		database := "up"
		if err := app.Health.Ping(c.Request.Context()); err != nil {
			status = "degraded"
			database = "down"
		}

		var queue any = gin.H{"error": "not configured"}
		if app.Queue != nil {
			stats, err := app.Queue.Stats(c.Request.Context())
			if err != nil {
				status = "degraded"
				queue = gin.H{"error": "unavailable"}
			} else {
				queue = stats
			}
		}

		c.JSON(nethttp.StatusOK, gin.H{
			"status": status,
			"queue":  queue,
			"checks": gin.H{"database": database},
		})
	}
}

// queueStatsHandler reports job counts, or a null body when the broker is
// unreachable within the stats timeout.
func queueStatsHandler(app *apphttp.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		if app.Queue == nil {
			c.JSON(nethttp.StatusOK, nil)
			return
		}
		stats, err := app.Queue.Stats(c.Request.Context())
		if err != nil {
			c.JSON(nethttp.StatusOK, nil)
			return
		}
		c.JSON(nethttp.StatusOK, stats)
	}
}
