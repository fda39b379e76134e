package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrNegativeAmount indicates a line carries a negative debit or credit.
	ErrNegativeAmount = errors.New("accounting: line amounts must not be negative")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("accounting: source already linked")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrInvalidStatus indicates action can't proceed.
	ErrInvalidStatus = errors.New("accounting: invalid status transition")
	// ErrAccountNotFound indicates a code missing from the chart of accounts.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrAccountInactive indicates a posting to a disabled account.
	ErrAccountInactive = errors.New("accounting: account inactive")
	// ErrAccountNotDetail indicates a posting to a summary account.
	ErrAccountNotDetail = errors.New("accounting: only detail accounts accept postings")
	// ErrDuplicateCode indicates the account code already exists for the tenant.
	ErrDuplicateCode = errors.New("accounting: account code already exists")
	// ErrParentIsDetail indicates a detail account was used as a parent.
	ErrParentIsDetail = errors.New("accounting: parent account must be a summary account")
	// ErrParentCycle indicates a re-parent that would make an account its own ancestor.
	ErrParentCycle = errors.New("accounting: parent account would create a cycle")
	// ErrHasChildren indicates the account still has sub-accounts.
	ErrHasChildren = errors.New("accounting: account has child accounts")
	// ErrAccountInUse indicates journal lines reference the account.
	ErrAccountInUse = errors.New("accounting: account referenced by journal lines")
)

var amountPrinter = message.NewPrinter(language.Vietnamese)

// FormatAmount renders a money amount with locale grouping.
func FormatAmount(d decimal.Decimal) string {
	return amountPrinter.Sprintf("%.2f", d.InexactFloat64())
}

// BalanceError carries the totals of an entry whose sides differ.
type BalanceError struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("Debit (%s) must equal Credit (%s)", FormatAmount(e.Debit), FormatAmount(e.Credit))
}

func (e *BalanceError) Unwrap() error { return ErrUnbalanced }

// DuplicateSourceError reports the entry already derived from a source document.
type DuplicateSourceError struct {
	ReferenceType string
	ReferenceID   string
	EntryID       int64
}

func (e *DuplicateSourceError) Error() string {
	if e.EntryID <= 0 {
		return fmt.Sprintf("%s %s already posted", e.ReferenceType, e.ReferenceID)
	}
	return fmt.Sprintf("%s %s already posted as journal entry %d", e.ReferenceType, e.ReferenceID, e.EntryID)
}

func (e *DuplicateSourceError) Unwrap() error { return ErrSourceAlreadyLinked }

// StatusError names the state an action requires.
type StatusError struct {
	Action   string
	Required string
	Actual   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("only %s entries can be %s (entry is %s)", strings.ToLower(e.Required), e.Action, e.Actual)
}

func (e *StatusError) Unwrap() error { return ErrInvalidStatus }
