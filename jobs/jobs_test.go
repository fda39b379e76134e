package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	"github.com/sao-erp/sao-erp/internal/integration"
	"github.com/sao-erp/sao-erp/internal/inventory"
	jobmetrics "github.com/sao-erp/sao-erp/internal/jobs"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type violationSource struct {
	rows []journals.IntegrityViolation
	err  error
}

func (s violationSource) IntegrityViolations(context.Context) ([]journals.IntegrityViolation, error) {
	return s.rows, s.err
}

type driftSource []inventory.Drift

func (s driftSource) StockDrift(context.Context) ([]inventory.Drift, error) { return s, nil }

type pendingSource []integration.PendingCount

func (s pendingSource) PendingCounts(context.Context) ([]integration.PendingCount, error) { return s, nil }

type cleaner struct{ got time.Duration }

func (c *cleaner) Cleanup(_ context.Context, olderThan time.Duration) (int64, error) {
	c.got = olderThan
	return 4, nil
}

func task(t *testing.T, name string) *asynq.Task {
	t.Helper()
	tk, err := NewTask(name, RunPayload{ScheduledFor: time.Now()})
	require.NoError(t, err)
	return tk
}

func TestNewTaskRejectsUnknownNames(t *testing.T) {
	_, err := NewTask("mail:send", RunPayload{})
	require.Error(t, err)
	require.Equal(t, []string{TaskIdempotencyCleanup, TaskLedgerIntegrity, TaskLedgerPendingReport, TaskStockIntegrity}, TaskNames())
}

func TestLedgerIntegrityJob(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)
	job := NewLedgerIntegrityJob(violationSource{rows: []journals.IntegrityViolation{{
		TenantID: 1, EntryID: 9, EntryNumber: "JE-202405-00009",
		HeaderDebit: decimal.NewFromInt(100), HeaderCredit: decimal.NewFromInt(100),
		LineDebit: decimal.NewFromInt(100), LineCredit: decimal.NewFromInt(90), LineCount: 2,
	}}}, quiet, metrics)

	require.NoError(t, job.Handle(t.Context(), task(t, TaskLedgerIntegrity)))
	count, err := testutil.GatherAndCount(registry, "sao_ledger_integrity_violations")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	failing := NewLedgerIntegrityJob(violationSource{err: errors.New("db down")}, quiet, metrics)
	require.Error(t, failing.Handle(t.Context(), task(t, TaskLedgerIntegrity)))
}

func TestBadPayloadSkipsRetry(t *testing.T) {
	job := NewLedgerIntegrityJob(violationSource{}, quiet, nil)
	err := job.Handle(t.Context(), asynq.NewTask(TaskLedgerIntegrity, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestStockIntegrityAndPendingJobs(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(registry)

	stock := NewStockIntegrityJob(driftSource{{TenantID: 1, ProductID: 2, WarehouseID: 3,
		BalanceQuantity: decimal.NewFromInt(5), BatchQuantity: decimal.NewFromInt(4)}}, quiet, metrics)
	require.NoError(t, stock.Handle(t.Context(), task(t, TaskStockIntegrity)))

	pending := NewPendingReportJob(pendingSource{{TenantID: 1, Count: 3}, {TenantID: 2, Count: 1}}, quiet, metrics)
	require.NoError(t, pending.Handle(t.Context(), task(t, TaskLedgerPendingReport)))
	count, err := testutil.GatherAndCount(registry, "sao_ledger_pending")
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestIdempotencyCleanupJob(t *testing.T) {
	c := &cleaner{}
	job := NewIdempotencyCleanupJob(c, 0, quiet, nil)
	require.NoError(t, job.Handle(t.Context(), task(t, TaskIdempotencyCleanup)))
	require.Equal(t, 7*24*time.Hour, c.got)
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 2, Scheduled: 1}}, quiet).
		health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","paused":false,"pending":2,"active":0,"scheduled":1,"retry":0,"archived":0,"processedToday":0,"failedToday":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHandler(fakeInspector{err: errors.New("redis down")}, quiet).
		health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealthHandlerWithoutInspector(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(nil, nil).health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"queue":"default"`)
}

func TestNewWorkerValidatesRegistrations(t *testing.T) {
	redis := asynq.RedisClientOpt{Addr: "127.0.0.1:0"}
	noop := func(context.Context, *asynq.Task) error { return nil }

	_, err := NewWorker(WorkerConfig{RedisOpts: redis, Logger: quiet, Handlers: []TaskHandler{
		{Type: TaskLedgerIntegrity, Handler: noop},
		{Type: TaskLedgerIntegrity, Handler: noop},
	}})
	require.ErrorContains(t, err, "duplicate handler")

	_, err = NewWorker(WorkerConfig{RedisOpts: redis, Logger: quiet, Handlers: []TaskHandler{{Type: TaskStockIntegrity}}})
	require.Error(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: redis, Logger: quiet,
		Handlers:  []TaskHandler{{Type: TaskLedgerIntegrity, Handler: noop}},
		Cron:      []CronRegistration{{Spec: "0 1 * * *", Task: task(t, TaskStockIntegrity)}},
	})
	require.ErrorContains(t, err, "has no handler")

	worker, err := NewWorker(WorkerConfig{RedisOpts: redis, Logger: quiet,
		Handlers: []TaskHandler{{Type: TaskLedgerIntegrity, Handler: noop}}})
	require.NoError(t, err)
	require.Nil(t, worker.scheduler)
}
