package inventory

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sao-erp/sao-erp/internal/shared"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithActor(shared.ContextWithTenant(r.Context(), tenant), 9)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/api/inventory", h.MountRoutes)
	return r
}

func call(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestHandlerTransactionLifecycle(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f.svc)

	rec := call(t, router, http.MethodPost, "/api/inventory/transactions",
		fmt.Sprintf(`{"type":"IN","warehouseId":%d,"items":[{"productId":%d,"quantity":"4","unitCost":"25"}]}`, mainWH, product))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.EqualValues(t, 9, created.CreatedBy)

	rec = call(t, router, http.MethodPost, fmt.Sprintf("/api/inventory/transactions/%d/confirm", created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, router, http.MethodGet, fmt.Sprintf("/api/inventory/balances/%d/%d", product, mainWH), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bal Balance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bal))
	requireDec(t, "4", bal.Quantity, "quantity")

	rec = call(t, router, http.MethodGet, fmt.Sprintf("/api/inventory/balances/%d/%d/batches", product, mainWH), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var batches []Batch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batches))
	require.Len(t, batches, 1)
}

func TestHandlerErrorMapping(t *testing.T) {
	f := newFixture()
	router := newTestRouter(f.svc)

	rec := call(t, router, http.MethodGet, "/api/inventory/transactions/404", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/inventory/transactions",
		fmt.Sprintf(`{"type":"IN","warehouseId":%d,"items":[{"productId":%d,"quantity":"1"}]}`, unknownWH, product))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/inventory/transactions",
		fmt.Sprintf(`{"type":"OUT","warehouseId":%d,"items":[{"productId":%d,"quantity":"2"}]}`, mainWH, product))
	require.Equal(t, http.StatusCreated, rec.Code)
	var created Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = call(t, router, http.MethodPost, fmt.Sprintf("/api/inventory/transactions/%d/confirm", created.ID), "")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	rec = call(t, router, http.MethodPost, "/api/inventory/reservations/release",
		fmt.Sprintf(`{"productId":%d,"warehouseId":%d,"quantity":"1"}`, product, mainWH))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = call(t, router, http.MethodPost, "/api/inventory/transactions", `{"type":"BOGUS"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
