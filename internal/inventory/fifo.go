package inventory

import "github.com/shopspring/decimal"

// FIFOResult lists the batches changed by a consumption and the cost drawn.
type FIFOResult struct {
	Updated []Batch
	Cost    decimal.Decimal
}

// ConsumeFIFO deducts qty from batches, which must already be ordered oldest
// first. Batches reaching zero are marked depleted.
func ConsumeFIFO(batches []Batch, qty decimal.Decimal) (FIFOResult, error) {
	remaining := qty
	res := FIFOResult{Cost: decimal.Zero}
	for _, batch := range batches {
		if !remaining.IsPositive() {
			break
		}
		if batch.Status != BatchStatusAvailable || !batch.Quantity.IsPositive() {
			continue
		}
		deduct := decimal.Min(batch.Quantity, remaining)
		batch.Quantity = batch.Quantity.Sub(deduct)
		batch.TotalCost = batch.Quantity.Mul(batch.UnitCost)
		if batch.Quantity.IsZero() {
			batch.Status = BatchStatusDepleted
		}
		res.Cost = res.Cost.Add(deduct.Mul(batch.UnitCost))
		res.Updated = append(res.Updated, batch)
		remaining = remaining.Sub(deduct)
	}
	if remaining.IsPositive() {
		shortErr := &InsufficientBatchError{Requested: qty, Shortfall: remaining}
		if len(batches) > 0 {
			shortErr.ProductID, shortErr.WarehouseID = batches[0].ProductID, batches[0].WarehouseID
		}
		return FIFOResult{}, shortErr
	}
	return res, nil
}
