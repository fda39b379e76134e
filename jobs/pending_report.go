package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sao-erp/sao-erp/internal/integration"
	jobmetrics "github.com/sao-erp/sao-erp/internal/jobs"
)

// PendingSource counts LEDGER_PENDING documents per tenant.
type PendingSource interface {
	PendingCounts(ctx context.Context) ([]integration.PendingCount, error)
}

// PendingReportJob publishes how many documents still wait for a journal entry.
type PendingReportJob struct {
	source  PendingSource
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewPendingReportJob builds the handler.
func NewPendingReportJob(source PendingSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *PendingReportJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PendingReportJob{source: source, logger: logger, metrics: metrics}
}

// Handle runs the report.
func (j *PendingReportJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.source == nil {
		return errors.New("pending report: handler not configured")
	}
	if _, err := decodePayload(t); err != nil {
		return err
	}
	tracker := j.metrics.Track(TaskLedgerPendingReport)
	defer func() { err = tracker.End(err) }()

	counts, err := j.source.PendingCounts(ctx)
	if err != nil {
		return err
	}
	j.metrics.ResetPending()
	var total int64
	for _, c := range counts {
		j.metrics.SetPending(c.TenantID, c.Count)
		total += c.Count
		j.logger.Warn("documents pending ledger posting",
			slog.Int64("tenant_id", c.TenantID),
			slog.Int64("count", c.Count))
	}
	j.logger.Info("ledger pending report finished", slog.Int("tenants", len(counts)), slog.Int64("pending", total))
	return nil
}
