package journals

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sao-erp/sao-erp/internal/accounting/shared"
)

var validate = validator.New()

// BalanceTolerance is the largest debit/credit difference accepted.
var BalanceTolerance = decimal.New(1, -2)

// LineInput describes one line of a new entry.
type LineInput struct {
	AccountCode string          `json:"accountCode" validate:"required,max=20"`
	Description string          `json:"description" validate:"max=500"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	PartnerType *PartnerType    `json:"partnerType" validate:"omitempty,oneof=CUSTOMER SUPPLIER"`
	PartnerID   *int64          `json:"partnerId" validate:"omitempty,gt=0"`
}

// CreateInput groups fields required to create a journal entry.
type CreateInput struct {
	EntryDate     time.Time   `json:"entryDate" validate:"required"`
	Type          EntryType   `json:"type" validate:"required,oneof=MANUAL AUTO_SALES AUTO_PURCHASE AUTO_INVENTORY AUTO_PAYMENT OPENING CLOSING"`
	ReferenceType *string     `json:"referenceType" validate:"omitempty,max=50"`
	ReferenceID   *string     `json:"referenceId" validate:"omitempty,max=100"`
	Description   string      `json:"description" validate:"max=1000"`
	CreatedBy     int64       `json:"-"`
	Lines         []LineInput `json:"lines" validate:"dive"`
}

// ListFilter narrows journal listings.
type ListFilter struct {
	Status        Status
	Type          EntryType
	From          *time.Time
	To            *time.Time
	ReferenceType string
	ReferenceID   string
	Limit         int
	Offset        int
}

// Totals sums both sides of the given lines.
func Totals(lines []LineInput) (debit, credit decimal.Decimal) {
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// CheckBalance fails with *shared.BalanceError when the sides differ by more
// than BalanceTolerance.
func CheckBalance(debit, credit decimal.Decimal) error {
	if debit.Sub(credit).Abs().GreaterThan(BalanceTolerance) {
		return &shared.BalanceError{Debit: debit, Credit: credit}
	}
	return nil
}

// ValidateLines applies the structural and balance rules every persisted entry obeys.
func ValidateLines(lines []LineInput) error {
	if len(lines) < 2 {
		return shared.ErrTooFewLines
	}
	for idx, line := range lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d", shared.ErrNegativeAmount, idx+1)
		}
	}
	return CheckBalance(Totals(lines))
}
