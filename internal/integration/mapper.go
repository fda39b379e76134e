package integration

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	acctshared "github.com/sao-erp/sao-erp/internal/accounting/shared"
	"github.com/sao-erp/sao-erp/internal/inventory"
)

// outcomeOf maps a generator result to a ledger outcome. A document that was
// already posted counts as posted and points at the existing entry when its id
// is known; a lost insert race leaves EntryID nil so the stored id is kept.
func outcomeOf(entry journals.JournalEntry, err error) LedgerOutcome {
	if err == nil {
		id := entry.ID
		return LedgerOutcome{Status: LedgerPosted, EntryID: &id}
	}
	var dup *acctshared.DuplicateSourceError
	if errors.As(err, &dup) {
		out := LedgerOutcome{Status: LedgerPosted}
		if dup.EntryID > 0 {
			id := dup.EntryID
			out.EntryID = &id
		}
		return out
	}
	return LedgerOutcome{Status: LedgerPending, Error: err.Error()}
}

// adjustmentValues splits confirmed adjustment lines into surplus and shortage value at cost.
func adjustmentValues(lines []inventory.ConfirmedLine) (surplus, shortage decimal.Decimal) {
	for _, l := range lines {
		if l.Quantity.IsNegative() {
			shortage = shortage.Add(l.Value.Abs())
		} else {
			surplus = surplus.Add(l.Value.Abs())
		}
	}
	return surplus.Round(2), shortage.Round(2)
}
