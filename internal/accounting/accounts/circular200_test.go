package accounts_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
	"github.com/sao-erp/sao-erp/internal/accounting/autopost"
)

func TestCircular200CoversAutoPostingAccounts(t *testing.T) {
	codes := make(map[string]accounts.CreateInput)
	for _, in := range accounts.Circular200() {
		_, dup := codes[in.Code]
		require.False(t, dup, "duplicate code %s", in.Code)
		if in.ParentCode != nil {
			parent, ok := codes[*in.ParentCode]
			require.True(t, ok, "parent of %s must come first", in.Code)
			require.False(t, parent.IsDetail)
		}
		codes[in.Code] = in
	}

	required := append(append([]string{}, autopost.SalesAccounts...), autopost.PurchaseAccounts...)
	required = append(required, autopost.AccountStockSurplus, autopost.AccountStockShortage)
	for _, code := range required {
		in, ok := codes[code]
		require.True(t, ok, "missing %s", code)
		require.True(t, in.IsDetail, "%s must accept postings", code)
	}
}
