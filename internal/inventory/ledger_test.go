package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyMovement(t *testing.T) {
	start := Balance{ProductID: 1, WarehouseID: 2, Quantity: dec("10"), AverageCost: dec("100"), TotalValue: dec("1000"), ReservedQuantity: dec("3")}

	in, err := ApplyMovement(start, dec("10"), dec("130"))
	require.NoError(t, err)
	requireDec(t, "20", in.Quantity, "qty")
	requireDec(t, "115", in.AverageCost, "avg")
	requireDec(t, "2300", in.TotalValue, "value")
	requireDec(t, "17", in.AvailableQuantity, "available")

	free, err := ApplyMovement(start, dec("10"), dec("0"))
	require.NoError(t, err)
	requireDec(t, "100", free.AverageCost, "zero cost keeps avg")
	requireDec(t, "2000", free.TotalValue, "zero cost revalues")

	out, err := ApplyMovement(start, dec("-10"), dec("0"))
	require.NoError(t, err)
	requireDec(t, "0", out.Quantity, "drained")
	requireDec(t, "100", out.AverageCost, "avg kept at zero stock")
	requireDec(t, "0", out.TotalValue, "no value left")

	_, err = ApplyMovement(start, dec("-10.5"), dec("0"))
	require.ErrorIs(t, err, ErrInsufficientStock)
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	requireDec(t, "10.5", stockErr.Requested, "requested")
	requireDec(t, "10", stockErr.Available, "available")
}

func TestConsumeFIFO(t *testing.T) {
	batches := []Batch{
		{ID: 1, Quantity: dec("3"), UnitCost: dec("10"), Status: BatchStatusAvailable},
		{ID: 2, Quantity: dec("0"), UnitCost: dec("99"), Status: BatchStatusDepleted},
		{ID: 3, Quantity: dec("5"), UnitCost: dec("12"), Status: BatchStatusAvailable},
	}
	res, err := ConsumeFIFO(batches, dec("4"))
	require.NoError(t, err)
	require.Len(t, res.Updated, 2)
	require.Equal(t, int64(1), res.Updated[0].ID)
	require.Equal(t, BatchStatusDepleted, res.Updated[0].Status)
	requireDec(t, "4", res.Updated[1].Quantity, "second batch left")
	requireDec(t, "48", res.Updated[1].TotalCost, "second batch cost")
	requireDec(t, "42", res.Cost, "cost drawn")
	requireDec(t, "3", batches[0].Quantity, "input untouched")

	_, err = ConsumeFIFO(batches, dec("9"))
	var short *InsufficientBatchError
	require.ErrorAs(t, err, &short)
	requireDec(t, "1", short.Shortfall, "shortfall")

	_, err = ConsumeFIFO(nil, dec("1"))
	require.ErrorIs(t, err, ErrInsufficientBatch)
}
