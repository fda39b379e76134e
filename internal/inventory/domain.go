package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sao-erp/sao-erp/internal/shared"
)

// TransactionType enumerates supported inventory movements.
type TransactionType string

const (
	// TransactionTypeIn represents an inbound receipt.
	TransactionTypeIn TransactionType = "IN"
	// TransactionTypeOut represents an outbound issue.
	TransactionTypeOut TransactionType = "OUT"
	// TransactionTypeAdjust carries signed per-line corrections.
	TransactionTypeAdjust TransactionType = "ADJUSTMENT"
	// TransactionTypeTransfer moves stock between two warehouses.
	TransactionTypeTransfer TransactionType = "TRANSFER"
	// TransactionTypeReturn is a customer return received back into stock.
	TransactionTypeReturn TransactionType = "RETURN"
)

// TransactionStatus enumerates stock transaction lifecycle values.
type TransactionStatus string

const (
	TransactionStatusDraft     TransactionStatus = "draft"
	TransactionStatusConfirmed TransactionStatus = "confirmed"
)

// BatchStatus flags whether a batch still holds quantity.
type BatchStatus string

const (
	BatchStatusAvailable BatchStatus = "available"
	BatchStatusDepleted  BatchStatus = "depleted"
)

// Balance summarises stock per tenant, product and warehouse.
type Balance struct {
	TenantID          int64           `db:"tenant_id" json:"tenantId"`
	ProductID         int64           `db:"product_id" json:"productId"`
	WarehouseID       int64           `db:"warehouse_id" json:"warehouseId"`
	Quantity          decimal.Decimal `db:"quantity" json:"quantity"`
	ReservedQuantity  decimal.Decimal `db:"reserved_quantity" json:"reservedQuantity"`
	AvailableQuantity decimal.Decimal `db:"available_quantity" json:"availableQuantity"`
	AverageCost       decimal.Decimal `db:"average_cost" json:"averageCost"`
	TotalValue        decimal.Decimal `db:"total_value" json:"totalValue"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updatedAt"`
}

// Batch is one inbound lot, consumed oldest first.
type Batch struct {
	ID          int64           `db:"id" json:"id"`
	TenantID    int64           `db:"tenant_id" json:"tenantId"`
	ProductID   int64           `db:"product_id" json:"productId"`
	WarehouseID int64           `db:"warehouse_id" json:"warehouseId"`
	BatchNumber string          `db:"batch_number" json:"batchNumber"`
	Quantity    decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost    decimal.Decimal `db:"unit_cost" json:"unitCost"`
	TotalCost   decimal.Decimal `db:"total_cost" json:"totalCost"`
	Status      BatchStatus     `db:"status" json:"status"`
	CreatedAt   time.Time       `db:"created_at" json:"createdAt"`
}

// Transaction models the header of a stock transaction.
type Transaction struct {
	ID              int64             `db:"id" json:"id"`
	TenantID        int64             `db:"tenant_id" json:"tenantId"`
	Code            string            `db:"code" json:"code"`
	Type            TransactionType   `db:"type" json:"type"`
	Status          TransactionStatus `db:"status" json:"status"`
	WarehouseID     int64             `db:"warehouse_id" json:"warehouseId"`
	DestWarehouseID *int64            `db:"dest_warehouse_id" json:"destWarehouseId,omitempty"`
	Note            string            `db:"note" json:"note"`
	CreatedBy       int64             `db:"created_by" json:"createdBy"`
	ConfirmedBy     *int64            `db:"confirmed_by" json:"confirmedBy,omitempty"`
	ConfirmedAt     *time.Time        `db:"confirmed_at" json:"confirmedAt,omitempty"`
	CreatedAt       time.Time         `db:"created_at" json:"createdAt"`
	Items           []TransactionItem `db:"-" json:"items"`
}

// TransactionItem models each product movement line.
type TransactionItem struct {
	ID            int64           `db:"id" json:"id"`
	TransactionID int64           `db:"transaction_id" json:"transactionId"`
	LineNumber    int             `db:"line_number" json:"lineNumber"`
	ProductID     int64           `db:"product_id" json:"productId"`
	Quantity      decimal.Decimal `db:"quantity" json:"quantity"`
	UnitCost      decimal.Decimal `db:"unit_cost" json:"unitCost"`
	TotalCost     decimal.Decimal `db:"total_cost" json:"totalCost"`
}

// ItemInput is one requested line of a new transaction.
type ItemInput struct {
	ProductID int64           `json:"productId" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
}

// CreateTransactionInput describes a draft stock transaction.
type CreateTransactionInput struct {
	Code            string          `json:"code" validate:"omitempty,max=50"`
	Type            TransactionType `json:"type" validate:"required,oneof=IN OUT ADJUSTMENT TRANSFER RETURN"`
	WarehouseID     int64           `json:"warehouseId" validate:"required,gt=0"`
	DestWarehouseID *int64          `json:"destWarehouseId" validate:"omitempty,gt=0"`
	Note            string          `json:"note" validate:"max=500"`
	CreatedBy       int64           `json:"-"`
	Items           []ItemInput     `json:"items" validate:"required,min=1,dive"`
}

var (
	// ErrInsufficientStock triggered when movement would result negative qty.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInsufficientBatch indicates available batches cannot cover an issue.
	ErrInsufficientBatch = errors.New("inventory: insufficient batch quantity")
	// ErrInvalidQuantity indicates invalid qty.
	ErrInvalidQuantity = errors.New("inventory: invalid quantity")
	// ErrInvalidUnitCost indicates invalid cost value.
	ErrInvalidUnitCost = errors.New("inventory: unit cost must be >= 0")
	// ErrTransactionNotFound indicates a missing stock transaction.
	ErrTransactionNotFound = errors.New("inventory: transaction not found")
	// ErrWarehouseNotFound indicates an unknown warehouse for the tenant.
	ErrWarehouseNotFound = errors.New("inventory: warehouse not found")
	// ErrInvalidStatus indicates the transaction is not in the required state.
	ErrInvalidStatus = errors.New("inventory: invalid status transition")
	// ErrInvalidTransfer indicates missing or identical transfer warehouses.
	ErrInvalidTransfer = errors.New("inventory: transfer needs a distinct destination warehouse")
	// ErrBalanceNotFound indicates missing balance row.
	ErrBalanceNotFound = errors.New("inventory: balance not found")
	// ErrReservationExceeded indicates a release larger than the reserved quantity.
	ErrReservationExceeded = errors.New("inventory: release exceeds reserved quantity")
)

// InsufficientStockError carries the figures of a rejected movement.
type InsufficientStockError struct {
	ProductID   int64
	WarehouseID int64
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for product %d in warehouse %d: requested %s, available %s",
		e.ProductID, e.WarehouseID, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InsufficientBatchError reports the quantity no available batch could cover.
type InsufficientBatchError struct {
	ProductID   int64
	WarehouseID int64
	Requested   decimal.Decimal
	Shortfall   decimal.Decimal
}

func (e *InsufficientBatchError) Error() string {
	return fmt.Sprintf("inventory: batches for product %d in warehouse %d cannot cover %s (short by %s)",
		e.ProductID, e.WarehouseID, e.Requested.String(), e.Shortfall.String())
}

func (e *InsufficientBatchError) Unwrap() error { return ErrInsufficientBatch }

// StatusError rejects an action on a transaction that is not in the required state.
type StatusError struct {
	Code     string
	Action   string
	Required TransactionStatus
	Actual   TransactionStatus
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("only %s transactions can be %s (transaction %s is %s)", e.Required, e.Action, e.Code, e.Actual)
}

func (e *StatusError) Unwrap() error { return ErrInvalidStatus }

// Drift is a balance whose quantity disagrees with its available batches.
type Drift struct {
	TenantID        int64           `db:"tenant_id" json:"tenantId"`
	ProductID       int64           `db:"product_id" json:"productId"`
	WarehouseID     int64           `db:"warehouse_id" json:"warehouseId"`
	BalanceQuantity decimal.Decimal `db:"balance_quantity" json:"balanceQuantity"`
	BatchQuantity   decimal.Decimal `db:"batch_quantity" json:"batchQuantity"`
}

// ReservationInput reserves or releases quantity on one balance.
type ReservationInput struct {
	ProductID   int64           `json:"productId" validate:"required,gt=0"`
	WarehouseID int64           `json:"warehouseId" validate:"required,gt=0"`
	Quantity    decimal.Decimal `json:"quantity"`
}

var transitions = shared.Transitions[TransactionStatus]{
	TransactionStatusDraft: {TransactionStatusConfirmed},
}
