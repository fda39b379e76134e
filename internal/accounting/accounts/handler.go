package accounts

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	acctshared "github.com/sao-erp/sao-erp/internal/accounting/shared"
	"github.com/sao-erp/sao-erp/internal/platform/httpx"
)

// Handler exposes the chart of accounts over JSON.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers account endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export.xlsx", h.Export)
	r.Post("/import", h.Import)
	r.Get("/{code}", h.Get)
	r.Patch("/{code}", h.Update)
	r.Delete("/{code}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		h.fail(w, "list accounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.FindByCode(r.Context(), tenantID, chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, "get account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input CreateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.Create(r.Context(), tenantID, input)
	if err != nil {
		h.fail(w, "create account", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, acc)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input UpdateInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	acc, err := h.service.Update(r.Context(), tenantID, chi.URLParam(r, "code"), input)
	if err != nil {
		h.fail(w, "update account", err)
		return
	}
	httpx.JSON(w, http.StatusOK, acc)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), tenantID, chi.URLParam(r, "code")); err != nil {
		h.fail(w, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	n, err := h.service.ImportXLSX(r.Context(), tenantID, r.Body)
	if err != nil {
		h.fail(w, "import accounts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"imported": n})
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.service.ExportXLSX(r.Context(), tenantID, &buf); err != nil {
		h.fail(w, "export accounts", err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="chart-of-accounts.xlsx"`)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	acctshared.WriteError(w, err)
}
