package integration

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sao-erp/sao-erp/internal/accounting/autopost"
	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	"github.com/sao-erp/sao-erp/internal/inventory"
)

// Generator derives journal entries from commercial documents.
type Generator interface {
	FromSalesOrder(ctx context.Context, tenantID int64, order autopost.SalesOrderSnapshot) (journals.JournalEntry, error)
	FromPurchaseOrder(ctx context.Context, tenantID int64, order autopost.PurchaseOrderSnapshot) (journals.JournalEntry, error)
	FromStockAdjustment(ctx context.Context, tenantID int64, code string, date time.Time, actorID int64, surplus, shortage decimal.Decimal) (journals.JournalEntry, error)
}

// SyncStore persists posting outcomes for reconciliation.
type SyncStore interface {
	Save(ctx context.Context, rec SyncRecord) error
	ListPending(ctx context.Context, tenantID int64) ([]SyncRecord, error)
}

const (
	kindSales      = "sales_order"
	kindPurchase   = "purchase_order"
	kindAdjustment = "stock_adjustment"
)

// Hooks connects order workflows and stock confirmations to the general ledger.
// Bookkeeping failures never fail the calling workflow; they are recorded as
// LEDGER_PENDING instead.
type Hooks struct {
	generator Generator
	store     SyncStore
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewHooks constructs integration hooks. metrics may be nil.
func NewHooks(generator Generator, store SyncStore, metrics *Metrics, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{generator: generator, store: store, metrics: metrics, logger: logger, now: time.Now}
}

// SalesOrderCompleted posts the sales entry for a completed order.
func (h *Hooks) SalesOrderCompleted(ctx context.Context, tenantID int64, order autopost.SalesOrderSnapshot) LedgerOutcome {
	entry, err := h.generator.FromSalesOrder(ctx, tenantID, order)
	return h.settle(ctx, tenantID, kindSales, autopost.ReferenceSalesOrder, order.Code, entry, err)
}

// PurchaseOrderReceived posts the purchase entry for received goods.
func (h *Hooks) PurchaseOrderReceived(ctx context.Context, tenantID int64, order autopost.PurchaseOrderSnapshot) LedgerOutcome {
	entry, err := h.generator.FromPurchaseOrder(ctx, tenantID, order)
	return h.settle(ctx, tenantID, kindPurchase, autopost.ReferencePurchaseOrder, order.Code, entry, err)
}

// HandleStockConfirmed posts stock adjustments; other movements are carried by
// their commercial documents and are ignored.
func (h *Hooks) HandleStockConfirmed(ctx context.Context, evt inventory.TransactionConfirmedEvent) error {
	if evt.Type != inventory.TransactionTypeAdjust {
		return nil
	}
	surplus, shortage := adjustmentValues(evt.Lines)
	if surplus.IsZero() && shortage.IsZero() {
		return nil
	}
	entry, err := h.generator.FromStockAdjustment(ctx, evt.TenantID, evt.Code, evt.ConfirmedAt, evt.ConfirmedBy, surplus, shortage)
	h.settle(ctx, evt.TenantID, kindAdjustment, autopost.ReferenceStockAdjustment, evt.Code, entry, err)
	return nil
}

// ListPending returns documents still waiting for a journal entry.
func (h *Hooks) ListPending(ctx context.Context, tenantID int64) ([]SyncRecord, error) {
	return h.store.ListPending(ctx, tenantID)
}

func (h *Hooks) settle(ctx context.Context, tenantID int64, kind, refType, refCode string, entry journals.JournalEntry, err error) LedgerOutcome {
	outcome := outcomeOf(entry, err)
	h.metrics.observe(kind, outcome.Status)
	if outcome.Status == LedgerPending {
		h.logger.Error("auto-posting failed",
			slog.Int64("tenant_id", tenantID),
			slog.String("kind", kind),
			slog.String("reference", refCode),
			slog.Any("error", err))
	}
	rec := SyncRecord{
		TenantID:      tenantID,
		ReferenceType: refType,
		ReferenceCode: refCode,
		Status:        outcome.Status,
		EntryID:       outcome.EntryID,
		LastError:     outcome.Error,
		UpdatedAt:     h.now().UTC(),
	}
	if saveErr := h.store.Save(ctx, rec); saveErr != nil {
		h.logger.Error("persist ledger sync",
			slog.Int64("tenant_id", tenantID),
			slog.String("reference", refCode),
			slog.Any("error", saveErr))
	}
	return outcome
}

var _ inventory.EventHandler = (*Hooks)(nil)
