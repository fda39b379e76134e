package autopost

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sao-erp/sao-erp/internal/accounting/journals"
)

// Account codes from the Vietnamese chart of accounts (Circular 200).
const (
	AccountReceivable    = "131"
	AccountSalesRevenue  = "511"
	AccountOutputVAT     = "3331"
	AccountCOGS          = "632"
	AccountInventory     = "156"
	AccountInputVAT      = "1331"
	AccountPayable       = "331"
	AccountStockSurplus  = "3381"
	AccountStockShortage = "1381"
)

// SalesAccounts lists the codes a sales entry needs, in line order.
var SalesAccounts = []string{AccountReceivable, AccountSalesRevenue, AccountOutputVAT, AccountCOGS, AccountInventory}

// PurchaseAccounts lists the codes a purchase entry needs, in line order.
var PurchaseAccounts = []string{AccountInventory, AccountInputVAT, AccountPayable}

// amountPlaces matches the scale of journal line amounts in storage.
const amountPlaces = 2

func money(d decimal.Decimal) decimal.Decimal { return d.Round(amountPlaces) }

// COGS sums quantity times unit cost over the items.
func COGS(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Quantity.Mul(it.UnitCost))
	}
	return total
}

// SalesLines derives the entry lines for a completed sales order.
// Amounts are rounded to the stored scale first, so a sub-cent tax or cost
// counts as zero. Zero tax and zero cost lines are omitted; 632 and 156 always
// come as a pair.
func SalesLines(order SalesOrderSnapshot) ([]journals.LineInput, decimal.Decimal) {
	cogs := money(COGS(order.Items))
	tax := money(order.TaxAmount)
	customer := journals.PartnerCustomer
	customerID := order.CustomerID
	lines := []journals.LineInput{
		{
			AccountCode: AccountReceivable,
			Description: fmt.Sprintf("Phải thu khách hàng - %s", order.Code),
			Debit:       money(order.Total),
			PartnerType: &customer,
			PartnerID:   &customerID,
		},
		{
			AccountCode: AccountSalesRevenue,
			Description: fmt.Sprintf("Doanh thu bán hàng - %s", order.Code),
			Credit:      money(order.Subtotal.Sub(order.DiscountAmount)),
		},
	}
	if tax.IsPositive() {
		lines = append(lines, journals.LineInput{
			AccountCode: AccountOutputVAT,
			Description: fmt.Sprintf("Thuế GTGT đầu ra - %s", order.Code),
			Credit:      tax,
		})
	}
	if cogs.IsPositive() {
		lines = append(lines,
			journals.LineInput{
				AccountCode: AccountCOGS,
				Description: fmt.Sprintf("Giá vốn hàng bán - %s", order.Code),
				Debit:       cogs,
			},
			journals.LineInput{
				AccountCode: AccountInventory,
				Description: fmt.Sprintf("Xuất kho hàng bán - %s", order.Code),
				Credit:      cogs,
			},
		)
	}
	return lines, cogs
}

// PurchaseLines derives the entry lines for a received purchase order.
func PurchaseLines(order PurchaseOrderSnapshot) []journals.LineInput {
	supplier := journals.PartnerSupplier
	supplierID := order.SupplierID
	tax := money(order.TaxAmount)
	lines := []journals.LineInput{{
		AccountCode: AccountInventory,
		Description: fmt.Sprintf("Nhập kho hàng mua - %s", order.Code),
		Debit:       money(order.Subtotal.Sub(order.DiscountAmount)),
	}}
	if tax.IsPositive() {
		lines = append(lines, journals.LineInput{
			AccountCode: AccountInputVAT,
			Description: fmt.Sprintf("Thuế GTGT đầu vào - %s", order.Code),
			Debit:       tax,
		})
	}
	lines = append(lines, journals.LineInput{
		AccountCode: AccountPayable,
		Description: fmt.Sprintf("Phải trả nhà cung cấp - %s", order.Code),
		Credit:      money(order.Total),
		PartnerType: &supplier,
		PartnerID:   &supplierID,
	})
	return lines
}

// AdjustmentLines derives the entry for a confirmed stock adjustment. Surplus
// value is parked on 3381 and shortage value on 1381 until investigated.
func AdjustmentLines(code string, surplus, shortage decimal.Decimal) []journals.LineInput {
	var lines []journals.LineInput
	if surplus.IsPositive() {
		lines = append(lines,
			journals.LineInput{AccountCode: AccountInventory, Description: fmt.Sprintf("Thừa kho kiểm kê - %s", code), Debit: surplus},
			journals.LineInput{AccountCode: AccountStockSurplus, Description: fmt.Sprintf("Tài sản thừa chờ xử lý - %s", code), Credit: surplus},
		)
	}
	if shortage.IsPositive() {
		lines = append(lines,
			journals.LineInput{AccountCode: AccountStockShortage, Description: fmt.Sprintf("Tài sản thiếu chờ xử lý - %s", code), Debit: shortage},
			journals.LineInput{AccountCode: AccountInventory, Description: fmt.Sprintf("Thiếu kho kiểm kê - %s", code), Credit: shortage},
		)
	}
	return lines
}
