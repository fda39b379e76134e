package shared

import (
	"errors"
	"net/http"

	"github.com/sao-erp/sao-erp/internal/platform/httpx"
)

// WriteError maps accounting errors onto problem responses.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrJournalNotFound), errors.Is(err, ErrAccountNotFound):
		httpx.RespondError(w, httpx.Classify(err, httpx.ErrNotFound))
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrSourceAlreadyLinked),
		errors.Is(err, ErrHasChildren), errors.Is(err, ErrAccountInUse):
		httpx.RespondError(w, httpx.Classify(err, httpx.ErrConflict))
	case errors.Is(err, ErrDuplicateCode):
		httpx.RespondError(w, httpx.Classify(err, httpx.ErrDuplicate))
	case errors.Is(err, ErrUnbalanced), errors.Is(err, ErrTooFewLines), errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrAccountInactive), errors.Is(err, ErrAccountNotDetail),
		errors.Is(err, ErrParentIsDetail), errors.Is(err, ErrParentCycle):
		httpx.RespondError(w, httpx.Classify(err, httpx.ErrUnprocessable))
	default:
		httpx.RespondError(w, err)
	}
}
