package inventory

import "github.com/shopspring/decimal"

// ApplyMovement returns the balance after a signed quantity change.
//
// Inbound movements with a positive unit cost re-weight the average cost.
// Every other movement keeps the average and revalues the remaining quantity
// at it. A movement that would leave a negative quantity is rejected.
func ApplyMovement(b Balance, signedQty, unitCost decimal.Decimal) (Balance, error) {
	newQty := b.Quantity.Add(signedQty)
	if newQty.IsNegative() {
		return b, &InsufficientStockError{
			ProductID:   b.ProductID,
			WarehouseID: b.WarehouseID,
			Requested:   signedQty.Neg(),
			Available:   b.Quantity,
		}
	}
	out := b
	out.Quantity = newQty
	if signedQty.IsPositive() && unitCost.IsPositive() {
		newValue := b.TotalValue.Add(signedQty.Mul(unitCost))
		if newQty.IsZero() {
			out.AverageCost = decimal.Zero
		} else {
			out.AverageCost = newValue.Div(newQty)
		}
		out.TotalValue = newValue
	} else {
		out.TotalValue = newQty.Mul(b.AverageCost)
	}
	out.AvailableQuantity = newQty.Sub(b.ReservedQuantity)
	return out, nil
}
