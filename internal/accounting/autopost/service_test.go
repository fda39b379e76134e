package autopost_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
	"github.com/sao-erp/sao-erp/internal/accounting/autopost"
	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	"github.com/sao-erp/sao-erp/internal/accounting/journals/journalstest"
	acctshared "github.com/sao-erp/sao-erp/internal/accounting/shared"
)

const tenant int64 = 3

var orderDate = time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func seeded(skip ...string) *journalstest.Store {
	store := journalstest.New()
	chart := map[string]accounts.AccountType{
		"131": accounts.AccountTypeAsset, "511": accounts.AccountTypeRevenue, "3331": accounts.AccountTypeLiability,
		"632": accounts.AccountTypeExpense, "156": accounts.AccountTypeAsset, "1331": accounts.AccountTypeAsset,
		"331": accounts.AccountTypeLiability, "3381": accounts.AccountTypeLiability, "1381": accounts.AccountTypeAsset,
	}
	for code, typ := range chart {
		omit := false
		for _, s := range skip {
			omit = omit || s == code
		}
		if !omit {
			store.AddAccount(tenant, code, code, typ)
		}
	}
	return store
}

func newService(store *journalstest.Store, costs autopost.CostSource) *autopost.Service {
	return autopost.NewService(journals.NewService(store, nil, nil, nil), costs)
}

func salesOrder() autopost.SalesOrderSnapshot {
	return autopost.SalesOrderSnapshot{
		Code:       "SO-0001",
		Date:       orderDate,
		CustomerID: 42,
		Total:      d(11_000_000),
		Subtotal:   d(10_000_000),
		TaxAmount:  d(1_000_000),
		Items: []autopost.OrderItem{
			{ProductID: 1, WarehouseID: 1, Quantity: d(10), UnitCost: d(500_000)},
			{ProductID: 2, WarehouseID: 1, Quantity: d(5), UnitCost: d(300_000)},
		},
	}
}

type lineView struct {
	code   string
	debit  string
	credit string
}

func view(entry journals.JournalEntry) []lineView {
	out := make([]lineView, 0, len(entry.Lines))
	for _, l := range entry.Lines {
		out = append(out, lineView{l.AccountCode, l.DebitAmount.String(), l.CreditAmount.String()})
	}
	return out
}

func TestSalesOrderEntry(t *testing.T) {
	store := seeded()
	svc := newService(store, nil)

	entry, err := svc.FromSalesOrder(context.Background(), tenant, salesOrder())
	require.NoError(t, err)
	require.Equal(t, journals.EntryTypeAutoSales, entry.Type)
	require.Equal(t, journals.StatusDraft, entry.Status)
	require.Equal(t, autopost.ReferenceSalesOrder, *entry.ReferenceType)
	require.Equal(t, "SO-0001", *entry.ReferenceID)
	require.Equal(t, []lineView{
		{"131", "11000000", "0"},
		{"511", "0", "10000000"},
		{"3331", "0", "1000000"},
		{"632", "6500000", "0"},
		{"156", "0", "6500000"},
	}, view(entry))
	require.True(t, d(17_500_000).Equal(entry.TotalDebit))
	require.True(t, d(17_500_000).Equal(entry.TotalCredit))

	require.NotNil(t, entry.Lines[0].PartnerType)
	require.Equal(t, journals.PartnerCustomer, *entry.Lines[0].PartnerType)
	require.EqualValues(t, 42, *entry.Lines[0].PartnerID)
	for i, l := range entry.Lines {
		require.Equal(t, i+1, l.LineNumber)
	}
}

func TestSalesOrderWithoutTaxOrCost(t *testing.T) {
	store := seeded()
	svc := newService(store, nil)
	order := salesOrder()
	order.Total = d(9_000_000)
	order.DiscountAmount = d(1_000_000)
	order.TaxAmount = decimal.Zero
	order.Items = nil

	entry, err := svc.FromSalesOrder(context.Background(), tenant, order)
	require.NoError(t, err)
	require.Equal(t, []lineView{
		{"131", "9000000", "0"},
		{"511", "0", "9000000"},
	}, view(entry))
}

func TestSubCentAmountsAreOmitted(t *testing.T) {
	order := salesOrder()
	order.Total = d(100)
	order.Subtotal = d(100)
	order.DiscountAmount = decimal.Zero
	order.TaxAmount = decimal.RequireFromString("0.004")
	order.Items = []autopost.OrderItem{{ProductID: 1, WarehouseID: 1, Quantity: d(1), UnitCost: decimal.RequireFromString("0.0040")}}

	lines, cogs := autopost.SalesLines(order)
	require.True(t, cogs.IsZero())
	require.Len(t, lines, 2)
	for _, l := range lines {
		require.True(t, l.Debit.Add(l.Credit).GreaterThanOrEqual(decimal.RequireFromString("0.01")), l.AccountCode)
	}

	purchase := autopost.PurchaseLines(autopost.PurchaseOrderSnapshot{
		Code: "PO-1", Date: orderDate, SupplierID: 2,
		Total: d(50), Subtotal: d(50), TaxAmount: decimal.RequireFromString("0.003"),
	})
	require.Len(t, purchase, 2)
	require.Equal(t, autopost.AccountPayable, purchase[1].AccountCode)
}

type fixedCosts map[int64]decimal.Decimal

func (f fixedCosts) AverageCost(_ context.Context, _ int64, productID, _ int64) (decimal.Decimal, error) {
	cost, ok := f[productID]
	if !ok {
		return decimal.Zero, errors.New("no stock")
	}
	return cost, nil
}

func TestSalesOrderPricesMissingCostsFromStock(t *testing.T) {
	store := seeded()
	svc := newService(store, fixedCosts{2: d(300_000)})
	order := salesOrder()
	order.Items[1].UnitCost = decimal.Zero

	entry, err := svc.FromSalesOrder(context.Background(), tenant, order)
	require.NoError(t, err)
	require.Equal(t, "6500000", entry.Lines[3].DebitAmount.String())

	order.Code = "SO-0002"
	order.Items[0].UnitCost = decimal.Zero
	_, err = svc.FromSalesOrder(context.Background(), tenant, order)
	require.ErrorContains(t, err, "no stock")
	require.Equal(t, 1, store.EntryCount(tenant))
}

func TestPurchaseOrderZeroTax(t *testing.T) {
	store := seeded()
	svc := newService(store, nil)

	entry, err := svc.FromPurchaseOrder(context.Background(), tenant, autopost.PurchaseOrderSnapshot{
		Code:       "PO-0001",
		Date:       orderDate,
		SupplierID: 8,
		Total:      d(10_000_000),
		Subtotal:   d(10_000_000),
	})
	require.NoError(t, err)
	require.Equal(t, journals.EntryTypeAutoPurchase, entry.Type)
	require.Equal(t, []lineView{
		{"156", "10000000", "0"},
		{"331", "0", "10000000"},
	}, view(entry))
	require.Equal(t, journals.PartnerSupplier, *entry.Lines[1].PartnerType)
	require.EqualValues(t, 8, *entry.Lines[1].PartnerID)
}

func TestPurchaseOrderWithTax(t *testing.T) {
	store := seeded()
	svc := newService(store, nil)

	entry, err := svc.FromPurchaseOrder(context.Background(), tenant, autopost.PurchaseOrderSnapshot{
		Code: "PO-0002", Date: orderDate, SupplierID: 8,
		Total: d(10_450_000), Subtotal: d(10_000_000), DiscountAmount: d(500_000), TaxAmount: d(950_000),
	})
	require.NoError(t, err)
	require.Equal(t, []lineView{
		{"156", "9500000", "0"},
		{"1331", "950000", "0"},
		{"331", "0", "10450000"},
	}, view(entry))
}

func TestMissingAccountWritesNothing(t *testing.T) {
	store := seeded("632")
	svc := newService(store, nil)

	_, err := svc.FromSalesOrder(context.Background(), tenant, salesOrder())
	require.ErrorIs(t, err, acctshared.ErrAccountNotFound)
	require.ErrorContains(t, err, "632")
	require.Zero(t, store.EntryCount(tenant))
	require.Zero(t, store.LineCount(tenant))
}

func TestInsertFailureWritesNothing(t *testing.T) {
	store := seeded()
	store.FailOnInsert = errors.New("disk full")
	svc := newService(store, nil)

	_, err := svc.FromSalesOrder(context.Background(), tenant, salesOrder())
	require.ErrorContains(t, err, "disk full")
	require.Zero(t, store.EntryCount(tenant))
	require.Zero(t, store.LineCount(tenant))
}

func TestInconsistentOrderRollsBack(t *testing.T) {
	store := seeded()
	svc := newService(store, nil)
	order := salesOrder()
	order.Total = d(10_999_000)

	_, err := svc.FromSalesOrder(context.Background(), tenant, order)
	require.ErrorIs(t, err, acctshared.ErrUnbalanced)
	require.Zero(t, store.EntryCount(tenant))
}

func TestRepeatedCompletionIsRejected(t *testing.T) {
	store := seeded()
	svc := newService(store, nil)

	first, err := svc.FromSalesOrder(context.Background(), tenant, salesOrder())
	require.NoError(t, err)
	_, err = svc.FromSalesOrder(context.Background(), tenant, salesOrder())
	require.ErrorIs(t, err, autopost.ErrAlreadyPosted)
	var dup *acctshared.DuplicateSourceError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, first.ID, dup.EntryID)
	require.Equal(t, 1, store.EntryCount(tenant))
}

func TestStockAdjustmentEntry(t *testing.T) {
	store := seeded()
	svc := newService(store, nil)

	entry, err := svc.FromStockAdjustment(context.Background(), tenant, "ADJ-1", orderDate, 4, d(260), d(400))
	require.NoError(t, err)
	require.Equal(t, journals.EntryTypeAutoInventory, entry.Type)
	require.Equal(t, []lineView{
		{"156", "260", "0"},
		{"3381", "0", "260"},
		{"1381", "400", "0"},
		{"156", "0", "400"},
	}, view(entry))

	_, err = svc.FromStockAdjustment(context.Background(), tenant, "ADJ-2", orderDate, 4, decimal.Zero, decimal.Zero)
	require.ErrorIs(t, err, acctshared.ErrTooFewLines)
}

func TestSnapshotValidation(t *testing.T) {
	svc := newService(seeded(), nil)
	order := salesOrder()
	order.Code = ""
	_, err := svc.FromSalesOrder(context.Background(), tenant, order)
	require.Error(t, err)
}
