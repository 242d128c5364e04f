package dispatch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"

	"github.com/bluelotus98/blue-lotus-backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

// MaxAttempts bounds the retry policy: a job that fails this many times is
// archived (terminal-failed) and kept for manual inspection.
const MaxAttempts = 3

// Client enqueues analysis jobs onto the durable queue.
type Client struct {
	client    *asynq.Client
	queue     string
	retention asynq.Option
}

// NewClient creates a queue client from config.
func NewClient(cfg config.QueueConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := RedisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client:    asynq.NewClient(opt),
		queue:     queue,
		retention: asynq.Retention(cfg.GetCompletedTaskRetention()),
	}, nil
}

// Close releases the underlying broker connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueAnalysis puts an analysis job on the queue and returns its id.
//
// The task id is derived from the call event id, so a redelivered webhook
// that re-enqueues while the first job is still live gets a conflict; that
// conflict is reported as success because the at-most-one-live-job property
// is exactly what the caller wants.
func (c *Client) EnqueueAnalysis(ctx context.Context, callEventID string, tenantID uuid.UUID, assistantID string) (string, error) {
	task, err := NewAnalyzeCallTask(AnalyzeCallPayload{
		CallEventID: callEventID,
		TenantID:    tenantID.String(),
		AssistantID: assistantID,
	})
	if err != nil {
		return "", err
	}

	taskID := TaskIDForCallEvent(callEventID)
	info, err := c.client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID),
		asynq.Queue(c.queue),
		asynq.MaxRetry(MaxAttempts),
		c.retention,
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return taskID, nil
		}
		return "", err
	}
	return info.ID, nil
}

// RedisClientOpt parses a redis URL into asynq connection options, honoring
// the TLS-insecure toggle used against self-signed brokers.
func RedisClientOpt(redisURL string, tlsInsecure bool) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		clone := opt.TLSConfig.Clone()
		if tlsInsecure {
			clone.InsecureSkipVerify = true
		}
		tlsConfig = clone
	} else if tlsInsecure {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
