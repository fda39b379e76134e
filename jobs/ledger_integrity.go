package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	jobmetrics "github.com/sao-erp/sao-erp/internal/jobs"
)

// IntegritySource lists persisted entries that violate the balance invariant.
type IntegritySource interface {
	IntegrityViolations(ctx context.Context) ([]journals.IntegrityViolation, error)
}

// LedgerIntegrityJob re-sums journal lines and reports entries that are
// unbalanced or disagree with their header totals.
type LedgerIntegrityJob struct {
	source  IntegritySource
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewLedgerIntegrityJob builds the handler.
func NewLedgerIntegrityJob(source IntegritySource, logger *slog.Logger, metrics *jobmetrics.Metrics) *LedgerIntegrityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerIntegrityJob{source: source, logger: logger, metrics: metrics}
}

// Handle runs the check. Findings are reported, not treated as failures.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.source == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	if _, err := decodePayload(t); err != nil {
		return err
	}
	tracker := j.metrics.Track(TaskLedgerIntegrity)
	defer func() { err = tracker.End(err) }()

	violations, err := j.source.IntegrityViolations(ctx)
	if err != nil {
		return err
	}
	j.metrics.SetViolations("journal", len(violations))
	for _, v := range violations {
		j.logger.Error("journal entry violates balance invariant",
			slog.Int64("tenant_id", v.TenantID),
			slog.Int64("entry_id", v.EntryID),
			slog.String("entry_number", v.EntryNumber),
			slog.String("header_debit", v.HeaderDebit.String()),
			slog.String("header_credit", v.HeaderCredit.String()),
			slog.String("line_debit", v.LineDebit.String()),
			slog.String("line_credit", v.LineCredit.String()),
			slog.Int("line_count", v.LineCount))
	}
	j.logger.Info("ledger integrity check finished", slog.Int("violations", len(violations)))
	return nil
}
