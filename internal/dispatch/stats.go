package dispatch

import (
	"context"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/platform/apperr"
	"github.com/bluelotus98/blue-lotus-backend/platform/config"

	"github.com/hibiken/asynq"
)

// ErrQueueUnavailable is the sentinel returned when the broker cannot be
// reached within the stats timeout. Health callers degrade on it instead of
// cascading the failure.
var ErrQueueUnavailable = apperr.Unavailable("queue unavailable")

// Stats are the aggregate job counts by state.
//
// Mapping onto asynq: waiting=pending, delayed=scheduled+retry (backoff
// wait), failed=archived (terminal after retry exhaustion).
type Stats struct {
	Waiting   int `json:"waiting"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Delayed   int `json:"delayed"`
	Total     int `json:"total"`
}

// Monitor reports queue stats with a bounded wait.
type Monitor struct {
	inspector *asynq.Inspector
	queue     string
	timeout   time.Duration
}

// NewMonitor creates a stats monitor from config.
func NewMonitor(cfg config.QueueConfig) (*Monitor, error) {
	opt, err := RedisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	timeout := cfg.GetStatsTimeout()
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Monitor{
		inspector: asynq.NewInspector(opt),
		queue:     queue,
		timeout:   timeout,
	}, nil
}

// Close releases the inspector's broker connection.
func (m *Monitor) Close() error {
	if m == nil || m.inspector == nil {
		return nil
	}
	return m.inspector.Close()
}

// Stats returns aggregate counts, or ErrQueueUnavailable if the broker does
// not answer within the timeout. It never blocks past the bound: the lookup
// runs in its own goroutine and is abandoned on expiry.
func (m *Monitor) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type lookup struct {
		info *asynq.QueueInfo
		err  error
	}
	done := make(chan lookup, 1)
	go func() {
		info, err := m.inspector.GetQueueInfo(m.queue)
		done <- lookup{info: info, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ErrQueueUnavailable
	case result := <-done:
		if result.err != nil {
			return nil, ErrQueueUnavailable
		}
		info := result.info
		stats := &Stats{
			Waiting:   info.Pending,
			Active:    info.Active,
			Completed: info.Completed,
			Failed:    info.Archived,
			Delayed:   info.Scheduled + info.Retry,
		}
		stats.Total = stats.Waiting + stats.Active + stats.Completed + stats.Failed + stats.Delayed
		return stats, nil
	}
}

// TrimCompleted deletes the oldest completed tasks until at most max remain.
// asynq's retention already ages tasks out; this bounds the count between age
// expiries. max <= 0 disables the cap.
func (m *Monitor) TrimCompleted(ctx context.Context, max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	info, err := m.inspector.GetQueueInfo(m.queue)
	if err != nil {
		return 0, err
	}
	overflow := info.Completed - max
	if overflow <= 0 {
		return 0, nil
	}

	deleted := 0
	for deleted < overflow {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}

		pageSize := overflow - deleted
		if pageSize > 100 {
			pageSize = 100
		}
		// Completed tasks list oldest first, so the first page is the one to drop.
		tasks, err := m.inspector.ListCompletedTasks(m.queue, asynq.PageSize(pageSize), asynq.Page(0))
		if err != nil {
			return deleted, err
		}
		if len(tasks) == 0 {
			break
		}

		for _, task := range tasks {
			if deleted >= overflow {
				break
			}
			if err := m.inspector.DeleteTask(m.queue, task.ID); err != nil {
				return deleted, err
			}
			deleted++
		}
	}

	return deleted, nil
}
