package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues the maintenance tasks on demand.
type Client struct {
	client *asynq.Client
	now    func() time.Time
}

// NewClient opens an asynq client against the queue redis.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts), now: time.Now}
}

// Enqueue submits task name for immediate processing on behalf of requestedBy.
func (c *Client) Enqueue(ctx context.Context, name, requestedBy string) (*asynq.TaskInfo, error) {
	task, err := NewTask(name, RunPayload{ScheduledFor: c.now().UTC(), RequestedBy: requestedBy})
	if err != nil {
		return nil, err
	}
	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("jobs: enqueue %s: %w", name, err)
	}
	return info, nil
}

// Close releases the redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
