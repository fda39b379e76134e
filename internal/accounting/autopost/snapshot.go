package autopost

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reference types written on auto-posted entries.
const (
	ReferenceSalesOrder    = "SALES_ORDER"
	ReferencePurchaseOrder = "PURCHASE_ORDER"
)

// OrderItem is one line of a commercial document. UnitCost is the inventory
// cost of the goods, not the selling price.
type OrderItem struct {
	ProductID   int64           `json:"productId"`
	WarehouseID int64           `json:"warehouseId"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unitCost"`
}

// SalesOrderSnapshot is the state of a sales order at completion.
// Total must equal Subtotal - DiscountAmount + TaxAmount; it is not re-checked here.
type SalesOrderSnapshot struct {
	Code           string          `json:"code" validate:"required,max=100"`
	Date           time.Time       `json:"date" validate:"required"`
	CustomerID     int64           `json:"customerId" validate:"required,gt=0"`
	Total          decimal.Decimal `json:"total"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Items          []OrderItem     `json:"items"`
	CreatedBy      int64           `json:"-"`
}

// PurchaseOrderSnapshot is the state of a purchase order when goods are received.
type PurchaseOrderSnapshot struct {
	Code           string          `json:"code" validate:"required,max=100"`
	Date           time.Time       `json:"date" validate:"required"`
	SupplierID     int64           `json:"supplierId" validate:"required,gt=0"`
	Total          decimal.Decimal `json:"total"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	CreatedBy      int64           `json:"-"`
}
