package integration

import "time"

// LedgerStatus records whether a document reached the general ledger.
type LedgerStatus string

const (
	LedgerPosted  LedgerStatus = "LEDGER_POSTED"
	LedgerPending LedgerStatus = "LEDGER_PENDING"
)

// LedgerOutcome is returned to order workflows in place of an error.
type LedgerOutcome struct {
	Status  LedgerStatus `json:"status"`
	EntryID *int64       `json:"entryId,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// SyncRecord is the persisted outcome of the last posting attempt for a document.
type SyncRecord struct {
	TenantID      int64        `db:"tenant_id" json:"tenantId"`
	ReferenceType string       `db:"reference_type" json:"referenceType"`
	ReferenceCode string       `db:"reference_code" json:"referenceCode"`
	Status        LedgerStatus `db:"status" json:"status"`
	EntryID       *int64       `db:"entry_id" json:"entryId,omitempty"`
	LastError     string       `db:"last_error" json:"lastError,omitempty"`
	Attempts      int          `db:"attempts" json:"attempts"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updatedAt"`
}

// PendingCount is the number of pending documents of one tenant.
type PendingCount struct {
	TenantID int64 `db:"tenant_id" json:"tenantId"`
	Count    int64 `db:"count" json:"count"`
}
