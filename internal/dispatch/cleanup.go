package dispatch

import (
	"context"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/platform/config"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"
)

const defaultCompletedCleanupInterval = time.Hour

// CompletedCleanup periodically trims the completed task set down to the
// configured count cap. Together with the per-task retention window this
// bounds completed history by both count and age.
type CompletedCleanup struct {
	monitor  *Monitor
	max      int
	interval time.Duration
	log      *logger.Logger
}

// NewCompletedCleanup creates the cleanup loop from config.
func NewCompletedCleanup(monitor *Monitor, cfg config.QueueConfig, log *logger.Logger) *CompletedCleanup {
	return &CompletedCleanup{
		monitor:  monitor,
		max:      cfg.GetCompletedTaskMaxCount(),
		interval: defaultCompletedCleanupInterval,
		log:      log,
	}
}

// Run trims once at startup and then on every tick until the context is
// canceled.
func (c *CompletedCleanup) Run(ctx context.Context) {
	if c == nil || c.monitor == nil {
		return
	}

	c.trim(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.trim(ctx)
		}
	}
}

func (c *CompletedCleanup) trim(ctx context.Context) {
	deleted, err := c.monitor.TrimCompleted(ctx, c.max)
	if err != nil {
		c.log.Warn("completed task cleanup failed", "error", err)
		return
	}
	if deleted > 0 {
		c.log.Info("completed task cleanup trimmed history", "deleted", deleted, "maxCount", c.max)
	}
}
