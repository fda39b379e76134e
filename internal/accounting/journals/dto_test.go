package journals

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sao-erp/sao-erp/internal/accounting/shared"
)

func mustDate(raw string) time.Time {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		panic(err)
	}
	return t
}

func TestValidateLines(t *testing.T) {
	hundred := decimal.NewFromInt(100)
	require.ErrorIs(t, ValidateLines(nil), shared.ErrTooFewLines)
	require.NoError(t, ValidateLines([]LineInput{
		{AccountCode: "111", Debit: hundred},
		{AccountCode: "511", Credit: hundred},
	}))
	require.ErrorIs(t, ValidateLines([]LineInput{
		{AccountCode: "111", Debit: hundred},
		{AccountCode: "511", Credit: decimal.NewFromInt(99)},
	}), shared.ErrUnbalanced)

	debit, credit := Totals([]LineInput{
		{Debit: decimal.RequireFromString("0.10")},
		{Debit: decimal.RequireFromString("0.20")},
		{Credit: decimal.RequireFromString("0.30")},
	})
	require.True(t, debit.Equal(credit))
}
