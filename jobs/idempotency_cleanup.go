package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/sao-erp/sao-erp/internal/jobs"
)

// KeyCleaner removes idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob purges stale idempotency keys.
type IdempotencyCleanupJob struct {
	cleaner   KeyCleaner
	retention time.Duration
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

// NewIdempotencyCleanupJob builds the handler; retention defaults to 7 days.
func NewIdempotencyCleanupJob(cleaner KeyCleaner, retention time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleanupJob{cleaner: cleaner, retention: retention, logger: logger, metrics: metrics}
}

// Handle runs the purge.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.cleaner == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	if _, err := decodePayload(t); err != nil {
		return err
	}
	tracker := j.metrics.Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	removed, err := j.cleaner.Cleanup(ctx, j.retention)
	if err != nil {
		return err
	}
	j.logger.Info("idempotency keys purged", slog.Int64("removed", removed))
	return nil
}
