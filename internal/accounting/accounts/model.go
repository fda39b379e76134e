package accounts

import "time"

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the type is one of the five CoA categories.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// Account models a chart of accounts node. Summary accounts (IsDetail false)
// may have children; detail accounts may not.
type Account struct {
	ID         int64       `db:"id" json:"id"`
	TenantID   int64       `db:"tenant_id" json:"tenantId"`
	Code       string      `db:"code" json:"code"`
	Name       string      `db:"name" json:"name"`
	Type       AccountType `db:"type" json:"type"`
	ParentCode *string     `db:"parent_code" json:"parentCode,omitempty"`
	IsDetail   bool        `db:"is_detail" json:"isDetail"`
	IsActive   bool        `db:"is_active" json:"isActive"`
	CreatedAt  time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time   `db:"updated_at" json:"updatedAt"`
	DeletedAt  *time.Time  `db:"deleted_at" json:"-"`
}
