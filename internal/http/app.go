// Package http provides HTTP server infrastructure including module registration.
package http

import (
	"context"

	"github.com/bluelotus98/blue-lotus-backend/internal/dispatch"
	"github.com/bluelotus98/blue-lotus-backend/platform/config"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// QueueStats reports aggregate analysis queue counts. Satisfied by
// dispatch.Monitor; may be nil when no broker is configured.
type QueueStats interface {
	Stats(ctx context.Context) (*dispatch.Stats, error)
}

// App holds the fully initialized application dependencies.
// This is populated by main.go (the composition root) and passed to the router.
type App struct {
	// Config holds the HTTP settings for the router.
	Config config.HTTPConfig
	// Logger is the structured logger.
	Logger *logger.Logger
	// Health is used for readiness/health checks (e.g., DB ping).
	Health HealthChecker
	// Queue reports analysis queue stats for health and dashboard reads.
	Queue QueueStats
	// Modules contains all HTTP-facing domain modules.
	Modules []Module
}
