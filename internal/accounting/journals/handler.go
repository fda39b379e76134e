package journals

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	acctshared "github.com/sao-erp/sao-erp/internal/accounting/shared"
	"github.com/sao-erp/sao-erp/internal/platform/httpx"
	"github.com/sao-erp/sao-erp/internal/shared"
)

// Handler exposes the journal engine over JSON.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type reverseRequest struct {
	Memo string `json:"memo"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	entries, err := h.service.ListJournalEntries(r.Context(), tenantID, filter)
	if err != nil {
		h.fail(w, "list journals", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	entry, err := h.service.GetJournalEntry(r.Context(), tenantID, id)
	if err != nil {
		h.fail(w, "get journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
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
	if input.Type == "" {
		input.Type = EntryTypeManual
	}
	input.CreatedBy = shared.ActorFromContext(r.Context())
	entry, err := h.service.CreateJournalEntry(r.Context(), tenantID, input)
	if err != nil {
		h.fail(w, "create journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	entry, err := h.service.PostJournalEntry(r.Context(), tenantID, id, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.fail(w, "post journal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, entry)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteJournalEntry(r.Context(), tenantID, id); err != nil {
		h.fail(w, "delete journal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Reverse(w http.ResponseWriter, r *http.Request) {
	tenantID, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req reverseRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	entry, err := h.service.ReverseJournalEntry(r.Context(), tenantID, id, shared.ActorFromContext(r.Context()), req.Memo)
	if err != nil {
		h.fail(w, "reverse journal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	asOf := time.Now()
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		asOf, err = time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.RespondError(w, httpx.Classify(err, httpx.ErrValidation))
			return
		}
	}
	balances, err := h.service.AccountBalances(r.Context(), tenantID, asOf)
	if err != nil {
		h.fail(w, "account balances", err)
		return
	}
	httpx.JSON(w, http.StatusOK, balances)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	tenantID, err := httpx.TenantID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, 0, false
	}
	return tenantID, id, true
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	acctshared.WriteError(w, err)
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	filter := ListFilter{
		Status:        Status(q.Get("status")),
		Type:          EntryType(q.Get("type")),
		ReferenceType: q.Get("referenceType"),
		ReferenceID:   q.Get("referenceId"),
	}
	for name, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return ListFilter{}, httpx.Classify(err, httpx.ErrValidation)
		}
		*dst = &t
	}
	filter.Limit = atoiDefault(q.Get("limit"))
	filter.Offset = atoiDefault(q.Get("offset"))
	return filter, nil
}

func atoiDefault(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
