package shared

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBalanceErrorCarriesTotals(t *testing.T) {
	err := error(&BalanceError{Debit: decimal.NewFromInt(100), Credit: decimal.NewFromInt(90)})
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Contains(t, err.Error(), "Debit (")
	require.Contains(t, err.Error(), ") must equal Credit (")

	var be *BalanceError
	require.True(t, errors.As(err, &be))
	require.True(t, be.Debit.Equal(decimal.NewFromInt(100)))
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Action: "posted", Required: "DRAFT", Actual: "POSTED"}
	require.ErrorIs(t, err, ErrInvalidStatus)
	require.Equal(t, "only draft entries can be posted (entry is POSTED)", err.Error())
}

func TestWriteErrorStatusCodes(t *testing.T) {
	cases := map[error]int{
		ErrJournalNotFound: http.StatusNotFound,
		&StatusError{Action: "posted", Required: "DRAFT", Actual: "POSTED"}: http.StatusConflict,
		&BalanceError{Debit: decimal.NewFromInt(1), Credit: decimal.Zero}:   http.StatusUnprocessableEntity,
		ErrDuplicateCode:                        http.StatusConflict,
		ErrAccountNotDetail:                     http.StatusUnprocessableEntity,
		&DuplicateSourceError{EntryID: 1}:       http.StatusConflict,
		errors.New("database is down"):          http.StatusInternalServerError,
	}
	for err, want := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, err)
		require.Equal(t, want, rec.Code, err.Error())
	}
}

func TestDuplicateSourceErrorWithoutEntryID(t *testing.T) {
	err := &DuplicateSourceError{ReferenceType: "SALES_ORDER", ReferenceID: "SO-1"}
	require.Equal(t, "SALES_ORDER SO-1 already posted", err.Error())
	require.ErrorIs(t, err, ErrSourceAlreadyLinked)
}
