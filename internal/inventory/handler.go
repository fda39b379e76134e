package inventory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sao-erp/sao-erp/internal/platform/httpx"
	"github.com/sao-erp/sao-erp/internal/shared"
)

// Handler exposes the stock ledger over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transactions", h.createTransaction)
	r.Get("/transactions/{id}", h.getTransaction)
	r.Post("/transactions/{id}/confirm", h.confirmTransaction)
	r.Get("/balances/{product}/{warehouse}", h.getBalance)
	r.Get("/balances/{product}/{warehouse}/batches", h.listBatches)
	r.Post("/reservations", h.reserve)
	r.Post("/reservations/release", h.release)
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input CreateTransactionInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.CreatedBy = shared.ActorFromContext(r.Context())
	tx, err := h.service.CreateTransaction(r.Context(), tenantID, input)
	if err != nil {
		h.fail(w, "create stock transaction", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tx, err := h.service.GetTransaction(r.Context(), tenantID, id)
	if err != nil {
		h.fail(w, "get stock transaction", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

func (h *Handler) confirmTransaction(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	tx, err := h.service.ConfirmTransaction(r.Context(), tenantID, id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "confirm stock transaction", err)
		return
	}
	httpx.JSON(w, http.StatusOK, tx)
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	tenantID, productID, warehouseID, ok := h.balanceTarget(w, r)
	if !ok {
		return
	}
	bal, err := h.service.GetBalance(r.Context(), tenantID, productID, warehouseID)
	if err != nil {
		h.fail(w, "get balance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bal)
}

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	tenantID, productID, warehouseID, ok := h.balanceTarget(w, r)
	if !ok {
		return
	}
	all := r.URL.Query().Get("all") == "true"
	batches, err := h.service.ListBatches(r.Context(), tenantID, productID, warehouseID, all)
	if err != nil {
		h.fail(w, "list batches", err)
		return
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	h.reservation(w, r, h.service.ReserveStock)
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	h.reservation(w, r, h.service.ReleaseReservation)
}

func (h *Handler) reservation(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, tenantID int64, in ReservationInput) (Balance, error)) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input ReservationInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	bal, err := apply(r.Context(), tenantID, input)
	if err != nil {
		h.fail(w, "stock reservation", err)
		return
	}
	httpx.JSON(w, http.StatusOK, bal)
}

func (h *Handler) balanceTarget(w http.ResponseWriter, r *http.Request) (int64, int64, int64, bool) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, 0, false
	}
	productID, err := httpx.IDParam(r, "product")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, 0, false
	}
	warehouseID, err := httpx.IDParam(r, "warehouse")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, 0, false
	}
	return tenantID, productID, warehouseID, true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	switch {
	case errors.Is(err, ErrTransactionNotFound), errors.Is(err, ErrWarehouseNotFound):
		httpx.RespondError(w, httpx.Classify(err, httpx.ErrNotFound))
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.RespondError(w, httpx.Classify(err, httpx.ErrConflict))
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrInsufficientBatch),
		errors.Is(err, ErrReservationExceeded):
		httpx.RespondError(w, httpx.Classify(err, httpx.ErrUnprocessable))
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidUnitCost),
		errors.Is(err, ErrInvalidTransfer), errors.Is(err, shared.ErrTenantRequired):
		httpx.RespondError(w, httpx.Classify(err, httpx.ErrValidation))
	default:
		httpx.RespondError(w, err)
	}
}
