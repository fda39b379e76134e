package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ConfirmedLine is one applied movement; Quantity is signed (negative for issues).
type ConfirmedLine struct {
	ProductID   int64
	WarehouseID int64
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	Value       decimal.Decimal
}

// TransactionConfirmedEvent represents a confirmed stock transaction ready for ledger posting.
type TransactionConfirmedEvent struct {
	TenantID      int64
	TransactionID int64
	Code          string
	Type          TransactionType
	ConfirmedBy   int64
	ConfirmedAt   time.Time
	Lines         []ConfirmedLine
}

// EventHandler receives inventory events for financial integration.
type EventHandler interface {
	HandleStockConfirmed(ctx context.Context, evt TransactionConfirmedEvent) error
}
