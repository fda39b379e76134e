package integration

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sao-erp/sao-erp/internal/accounting/autopost"
	"github.com/sao-erp/sao-erp/internal/platform/httpx"
	"github.com/sao-erp/sao-erp/internal/shared"
)

// Handler exposes order completion hooks and reconciliation over JSON.
type Handler struct {
	logger *slog.Logger
	hooks  *Hooks
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, hooks *Hooks) *Handler {
	return &Handler{logger: logger, hooks: hooks}
}

// MountRoutes registers integration endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/sales-orders/completed", h.salesOrderCompleted)
	r.Post("/purchase-orders/received", h.purchaseOrderReceived)
	r.Get("/ledger-sync/pending", h.pending)
}

func (h *Handler) salesOrderCompleted(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var order autopost.SalesOrderSnapshot
	if err := httpx.DecodeJSON(r, &order); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order.CreatedBy = shared.ActorFromContext(r.Context())
	writeOutcome(w, h.hooks.SalesOrderCompleted(r.Context(), tenantID, order))
}

func (h *Handler) purchaseOrderReceived(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var order autopost.PurchaseOrderSnapshot
	if err := httpx.DecodeJSON(r, &order); err != nil {
		httpx.RespondError(w, err)
		return
	}
	order.CreatedBy = shared.ActorFromContext(r.Context())
	writeOutcome(w, h.hooks.PurchaseOrderReceived(r.Context(), tenantID, order))
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	records, err := h.hooks.ListPending(r.Context(), tenantID)
	if err != nil {
		h.logger.Warn("list pending ledger sync", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if records == nil {
		records = []SyncRecord{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

// writeOutcome answers 200 for posted documents and 202 for pending ones;
// the order itself is complete either way.
func writeOutcome(w http.ResponseWriter, outcome LedgerOutcome) {
	status := http.StatusOK
	if outcome.Status == LedgerPending {
		status = http.StatusAccepted
	}
	httpx.JSON(w, status, outcome)
}
