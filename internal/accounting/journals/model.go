package journals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EntryType classifies the origin of a journal entry.
type EntryType string

const (
	EntryTypeManual        EntryType = "MANUAL"
	EntryTypeAutoSales     EntryType = "AUTO_SALES"
	EntryTypeAutoPurchase  EntryType = "AUTO_PURCHASE"
	EntryTypeAutoInventory EntryType = "AUTO_INVENTORY"
	EntryTypeAutoPayment   EntryType = "AUTO_PAYMENT"
	EntryTypeOpening       EntryType = "OPENING"
	EntryTypeClosing       EntryType = "CLOSING"
)

// PartnerType names the subsidiary ledger a line belongs to.
type PartnerType string

const (
	PartnerCustomer PartnerType = "CUSTOMER"
	PartnerSupplier PartnerType = "SUPPLIER"
)

// ReferenceJournalEntry marks reversing entries that point back at the entry they cancel.
const ReferenceJournalEntry = "JOURNAL_ENTRY"

// JournalEntry is the aggregate root; Lines are immutable once the entry leaves DRAFT.
type JournalEntry struct {
	ID            int64           `db:"id" json:"id"`
	TenantID      int64           `db:"tenant_id" json:"tenantId"`
	EntryNumber   string          `db:"entry_number" json:"entryNumber"`
	EntryDate     time.Time       `db:"entry_date" json:"entryDate"`
	Type          EntryType       `db:"type" json:"type"`
	Status        Status          `db:"status" json:"status"`
	TotalDebit    decimal.Decimal `db:"total_debit" json:"totalDebit"`
	TotalCredit   decimal.Decimal `db:"total_credit" json:"totalCredit"`
	ReferenceType *string         `db:"reference_type" json:"referenceType,omitempty"`
	ReferenceID   *string         `db:"reference_id" json:"referenceId,omitempty"`
	Description   string          `db:"description" json:"description"`
	CreatedBy     int64           `db:"created_by" json:"createdBy"`
	PostedBy      *int64          `db:"posted_by" json:"postedBy,omitempty"`
	PostedAt      *time.Time      `db:"posted_at" json:"postedAt,omitempty"`
	ReversedBy    *int64          `db:"reversed_by" json:"reversedBy,omitempty"`
	ReversedAt    *time.Time      `db:"reversed_at" json:"reversedAt,omitempty"`
	ReversalOfID  *int64          `db:"reversal_of_id" json:"reversalOfId,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
	DeletedAt     *time.Time      `db:"deleted_at" json:"-"`
	Lines         []JournalLine   `db:"-" json:"lines"`
}

// JournalLine stores debit or credit amount for an account.
type JournalLine struct {
	ID           int64           `db:"id" json:"id"`
	EntryID      int64           `db:"entry_id" json:"entryId"`
	LineNumber   int             `db:"line_number" json:"lineNumber"`
	AccountID    int64           `db:"account_id" json:"accountId"`
	AccountCode  string          `db:"account_code" json:"accountCode"`
	Description  string          `db:"description" json:"description"`
	DebitAmount  decimal.Decimal `db:"debit_amount" json:"debitAmount"`
	CreditAmount decimal.Decimal `db:"credit_amount" json:"creditAmount"`
	PartnerType  *PartnerType    `db:"partner_type" json:"partnerType,omitempty"`
	PartnerID    *int64          `db:"partner_id" json:"partnerId,omitempty"`
}

// AccountBalance aggregates posted movements of one account.
type AccountBalance struct {
	AccountCode string          `db:"account_code" json:"accountCode"`
	AccountName string          `db:"account_name" json:"accountName"`
	Debit       decimal.Decimal `db:"debit" json:"debit"`
	Credit      decimal.Decimal `db:"credit" json:"credit"`
}

// Net returns debit minus credit.
func (b AccountBalance) Net() decimal.Decimal {
	return b.Debit.Sub(b.Credit)
}

// IntegrityViolation reports a persisted entry whose figures disagree.
type IntegrityViolation struct {
	TenantID     int64           `db:"tenant_id"`
	EntryID      int64           `db:"entry_id"`
	EntryNumber  string          `db:"entry_number"`
	HeaderDebit  decimal.Decimal `db:"header_debit"`
	HeaderCredit decimal.Decimal `db:"header_credit"`
	LineDebit    decimal.Decimal `db:"line_debit"`
	LineCredit   decimal.Decimal `db:"line_credit"`
	LineCount    int             `db:"line_count"`
}

// FormatEntryNumber renders JE-YYYYMM-NNNNN.
func FormatEntryNumber(date time.Time, seq int64) string {
	return fmt.Sprintf("JE-%s-%05d", date.Format("200601"), seq)
}
