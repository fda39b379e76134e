package journals_test

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

	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	"github.com/sao-erp/sao-erp/internal/shared"
)

func newRouter(svc *journals.Service) http.Handler {
	h := journals.NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithActor(shared.ContextWithTenant(r.Context(), tenant), 5)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/journals", h.MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func TestHandlerCreatePostAndConflict(t *testing.T) {
	router := newRouter(newService(seededStore()))

	body := `{"entryDate":"2024-05-20T00:00:00Z","description":"Thu tiền","lines":[
		{"accountCode":"111","debit":"250000"},
		{"accountCode":"131","credit":"250000"}]}`
	rec := do(t, router, http.MethodPost, "/journals/", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var entry journals.JournalEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.Equal(t, journals.EntryTypeManual, entry.Type)
	require.EqualValues(t, 5, entry.CreatedBy)

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/journals/%d/post", entry.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, fmt.Sprintf("/journals/%d/post", entry.ID), "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodDelete, fmt.Sprintf("/journals/%d", entry.ID), "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, router, http.MethodGet, "/journals/balances?asOf=2024-05-31", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerUnbalancedIsUnprocessable(t *testing.T) {
	router := newRouter(newService(seededStore()))
	body := `{"entryDate":"2024-05-20T00:00:00Z","lines":[
		{"accountCode":"111","debit":"250000"},
		{"accountCode":"131","credit":"200000"}]}`
	rec := do(t, router, http.MethodPost, "/journals/", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Contains(t, rec.Body.String(), "must equal Credit")

	rec = do(t, router, http.MethodGet, "/journals/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	rec = do(t, router, http.MethodGet, "/journals/77", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
