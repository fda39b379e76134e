package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
	"github.com/sao-erp/sao-erp/internal/accounting/autopost"
	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	"github.com/sao-erp/sao-erp/internal/accounting/journals/journalstest"
	acctshared "github.com/sao-erp/sao-erp/internal/accounting/shared"
	"github.com/sao-erp/sao-erp/internal/inventory"
	"github.com/sao-erp/sao-erp/internal/shared"
)

const tenant int64 = 4

type memorySync struct {
	mu      sync.Mutex
	records map[string]SyncRecord
	failErr error
}

func newMemorySync() *memorySync {
	return &memorySync{records: make(map[string]SyncRecord)}
}

func (m *memorySync) Save(_ context.Context, rec SyncRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	key := rec.ReferenceType + ":" + rec.ReferenceCode
	prev, ok := m.records[key]
	rec.Attempts = 1
	if ok {
		rec.Attempts = prev.Attempts + 1
		if rec.EntryID == nil {
			rec.EntryID = prev.EntryID
		}
	}
	m.records[key] = rec
	return nil
}

func (m *memorySync) ListPending(_ context.Context, tenantID int64) ([]SyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SyncRecord
	for _, rec := range m.records {
		if rec.TenantID == tenantID && rec.Status == LedgerPending {
			out = append(out, rec)
		}
	}
	return out, nil
}

type fixture struct {
	store   *journalstest.Store
	sync    *memorySync
	metrics *Metrics
	hooks   *Hooks
}

func newFixture(t *testing.T, skip ...string) *fixture {
	t.Helper()
	store := journalstest.New()
	for _, code := range []string{"131", "511", "3331", "632", "156", "1331", "331", "3381", "1381"} {
		missing := false
		for _, s := range skip {
			missing = missing || s == code
		}
		if !missing {
			store.AddAccount(tenant, code, code, accounts.AccountTypeAsset)
		}
	}
	gen := autopost.NewService(journals.NewService(store, nil, nil, nil), nil)
	syncStore := newMemorySync()
	metrics := NewMetrics(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{store: store, sync: syncStore, metrics: metrics, hooks: NewHooks(gen, syncStore, metrics, logger)}
}

func sale(code string) autopost.SalesOrderSnapshot {
	return autopost.SalesOrderSnapshot{
		Code:       code,
		Date:       time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		CustomerID: 11,
		Total:      decimal.NewFromInt(1_100),
		Subtotal:   decimal.NewFromInt(1_000),
		TaxAmount:  decimal.NewFromInt(100),
	}
}

func (f *fixture) count(kind string, status LedgerStatus) float64 {
	return testutil.ToFloat64(f.metrics.outcomes.WithLabelValues(kind, string(status)))
}

func TestSalesOrderCompletedPosts(t *testing.T) {
	f := newFixture(t)

	outcome := f.hooks.SalesOrderCompleted(t.Context(), tenant, sale("SO-1"))
	require.Equal(t, LedgerPosted, outcome.Status)
	require.NotNil(t, outcome.EntryID)
	require.Empty(t, outcome.Error)

	rec := f.sync.records[autopost.ReferenceSalesOrder+":SO-1"]
	require.Equal(t, LedgerPosted, rec.Status)
	require.Equal(t, *outcome.EntryID, *rec.EntryID)
	require.Equal(t, float64(1), f.count(kindSales, LedgerPosted))
}

func TestFailureBecomesPendingAndRecovers(t *testing.T) {
	f := newFixture(t, "3331")

	outcome := f.hooks.SalesOrderCompleted(t.Context(), tenant, sale("SO-2"))
	require.Equal(t, LedgerPending, outcome.Status)
	require.Nil(t, outcome.EntryID)
	require.Contains(t, outcome.Error, "3331")
	require.Zero(t, f.store.EntryCount(tenant))

	pending, err := f.hooks.ListPending(t.Context(), tenant)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "SO-2", pending[0].ReferenceCode)
	require.Equal(t, float64(1), f.count(kindSales, LedgerPending))

	f.store.AddAccount(tenant, "3331", "3331", accounts.AccountTypeLiability)
	outcome = f.hooks.SalesOrderCompleted(t.Context(), tenant, sale("SO-2"))
	require.Equal(t, LedgerPosted, outcome.Status)

	pending, err = f.hooks.ListPending(t.Context(), tenant)
	require.NoError(t, err)
	require.Empty(t, pending)
	require.Equal(t, 2, f.sync.records[autopost.ReferenceSalesOrder+":SO-2"].Attempts)
}

func TestRepeatedCompletionReportsExistingEntry(t *testing.T) {
	f := newFixture(t)

	first := f.hooks.SalesOrderCompleted(t.Context(), tenant, sale("SO-3"))
	second := f.hooks.SalesOrderCompleted(t.Context(), tenant, sale("SO-3"))
	require.Equal(t, LedgerPosted, second.Status)
	require.Equal(t, *first.EntryID, *second.EntryID)
	require.Equal(t, 1, f.store.EntryCount(tenant))
}

func TestSyncStoreFailureDoesNotLeak(t *testing.T) {
	f := newFixture(t)
	f.sync.failErr = errors.New("db down")

	outcome := f.hooks.PurchaseOrderReceived(t.Context(), tenant, autopost.PurchaseOrderSnapshot{
		Code: "PO-1", Date: time.Now(), SupplierID: 2,
		Total: decimal.NewFromInt(500), Subtotal: decimal.NewFromInt(500),
	})
	require.Equal(t, LedgerPosted, outcome.Status)
	require.Equal(t, float64(1), f.count(kindPurchase, LedgerPosted))
}

func TestStockAdjustmentEvent(t *testing.T) {
	f := newFixture(t)
	evt := inventory.TransactionConfirmedEvent{
		TenantID:    tenant,
		Code:        "ADJ-7",
		Type:        inventory.TransactionTypeAdjust,
		ConfirmedBy: 2,
		ConfirmedAt: time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
		Lines: []inventory.ConfirmedLine{
			{Quantity: decimal.NewFromInt(2), Value: decimal.NewFromInt(260)},
			{Quantity: decimal.NewFromInt(-4), Value: decimal.NewFromInt(400)},
		},
	}
	require.NoError(t, f.hooks.HandleStockConfirmed(t.Context(), evt))
	require.Equal(t, 1, f.store.EntryCount(tenant))
	entry := f.store.Entries()[0]
	require.Equal(t, journals.EntryTypeAutoInventory, entry.Type)
	require.Len(t, entry.Lines, 4)

	evt.Type = inventory.TransactionTypeOut
	evt.Code = "OUT-1"
	require.NoError(t, f.hooks.HandleStockConfirmed(t.Context(), evt))
	require.Equal(t, 1, f.store.EntryCount(tenant))
}

func TestHandlerOutcomes(t *testing.T) {
	f := newFixture(t, "511")
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.hooks)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithTenant(req.Context(), tenant)))
		})
	})
	r.Route("/api/integration", h.MountRoutes)

	body := `{"code":"SO-9","date":"2024-07-01T00:00:00Z","customerId":3,"total":"110","subtotal":"100","taxAmount":"10"}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/integration/sales-orders/completed", strings.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"status":"LEDGER_PENDING"`)

	body = `{"code":"PO-9","date":"2024-07-01T00:00:00Z","supplierId":3,"total":"100","subtotal":"100"}`
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/integration/purchase-orders/received", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/integration/ledger-sync/pending", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"referenceCode":"SO-9"`)
}

func TestOutcomeOfDuplicateWithoutEntryID(t *testing.T) {
	raced := outcomeOf(journals.JournalEntry{}, &acctshared.DuplicateSourceError{ReferenceType: "SALES_ORDER", ReferenceID: "SO-9"})
	require.Equal(t, LedgerPosted, raced.Status)
	require.Nil(t, raced.EntryID)

	known := outcomeOf(journals.JournalEntry{}, &acctshared.DuplicateSourceError{ReferenceType: "SALES_ORDER", ReferenceID: "SO-9", EntryID: 12})
	require.NotNil(t, known.EntryID)
	require.Equal(t, int64(12), *known.EntryID)
}
