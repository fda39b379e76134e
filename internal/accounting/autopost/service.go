package autopost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	acctshared "github.com/sao-erp/sao-erp/internal/accounting/shared"
)

// ErrAlreadyPosted is returned when the source document already has an auto entry.
var ErrAlreadyPosted = acctshared.ErrSourceAlreadyLinked

// ReferenceStockAdjustment marks entries derived from stock adjustments.
const ReferenceStockAdjustment = "STOCK_ADJUSTMENT"

var validate = validator.New()

// EntryCreator persists derived entries; implemented by journals.Service.
type EntryCreator interface {
	CreateDerivedEntry(ctx context.Context, tenantID int64, build journals.BuildFunc) (journals.JournalEntry, error)
}

// CostSource supplies the current average unit cost of a product in a warehouse.
type CostSource interface {
	AverageCost(ctx context.Context, tenantID, productID, warehouseID int64) (decimal.Decimal, error)
}

// Service turns commercial documents into draft journal entries.
type Service struct {
	entries EntryCreator
	costs   CostSource
}

// NewService builds Service. costs may be nil, in which case item costs are used as given.
func NewService(entries EntryCreator, costs CostSource) *Service {
	return &Service{entries: entries, costs: costs}
}

// FromSalesOrder creates the AUTO_SALES entry for a completed sales order.
func (s *Service) FromSalesOrder(ctx context.Context, tenantID int64, order SalesOrderSnapshot) (journals.JournalEntry, error) {
	if err := validate.Struct(order); err != nil {
		return journals.JournalEntry{}, err
	}
	return s.entries.CreateDerivedEntry(ctx, tenantID, func(ctx context.Context, lookup journals.AccountLookup) (journals.CreateInput, error) {
		if err := requireAccounts(ctx, lookup, tenantID, SalesAccounts); err != nil {
			return journals.CreateInput{}, err
		}
		priced, err := s.priceItems(ctx, tenantID, order.Items)
		if err != nil {
			return journals.CreateInput{}, err
		}
		order.Items = priced
		lines, _ := SalesLines(order)
		return derivedInput(journals.EntryTypeAutoSales, ReferenceSalesOrder, order.Code, order.Date, order.CreatedBy,
			fmt.Sprintf("Ghi nhận doanh thu đơn bán hàng %s", order.Code), lines), nil
	})
}

// FromPurchaseOrder creates the AUTO_PURCHASE entry for a received purchase order.
func (s *Service) FromPurchaseOrder(ctx context.Context, tenantID int64, order PurchaseOrderSnapshot) (journals.JournalEntry, error) {
	if err := validate.Struct(order); err != nil {
		return journals.JournalEntry{}, err
	}
	return s.entries.CreateDerivedEntry(ctx, tenantID, func(ctx context.Context, lookup journals.AccountLookup) (journals.CreateInput, error) {
		if err := requireAccounts(ctx, lookup, tenantID, PurchaseAccounts); err != nil {
			return journals.CreateInput{}, err
		}
		return derivedInput(journals.EntryTypeAutoPurchase, ReferencePurchaseOrder, order.Code, order.Date, order.CreatedBy,
			fmt.Sprintf("Ghi nhận mua hàng đơn %s", order.Code), PurchaseLines(order)), nil
	})
}

// FromStockAdjustment creates the AUTO_INVENTORY entry for a confirmed adjustment.
// Both amounts are non-negative values at cost.
func (s *Service) FromStockAdjustment(ctx context.Context, tenantID int64, code string, date time.Time, actorID int64, surplus, shortage decimal.Decimal) (journals.JournalEntry, error) {
	lines := AdjustmentLines(code, surplus, shortage)
	if len(lines) == 0 {
		return journals.JournalEntry{}, fmt.Errorf("autopost: adjustment %s has no value to post: %w", code, acctshared.ErrTooFewLines)
	}
	return s.entries.CreateDerivedEntry(ctx, tenantID, func(ctx context.Context, lookup journals.AccountLookup) (journals.CreateInput, error) {
		for _, l := range lines {
			if _, err := lookup.FindAccountByCode(ctx, tenantID, l.AccountCode); err != nil {
				return journals.CreateInput{}, err
			}
		}
		return derivedInput(journals.EntryTypeAutoInventory, ReferenceStockAdjustment, code, date, actorID,
			fmt.Sprintf("Điều chỉnh tồn kho %s", code), lines), nil
	})
}

// priceItems fills zero unit costs from the stock ledger's moving average.
func (s *Service) priceItems(ctx context.Context, tenantID int64, items []OrderItem) ([]OrderItem, error) {
	out := make([]OrderItem, len(items))
	copy(out, items)
	if s.costs == nil {
		return out, nil
	}
	for i, it := range out {
		if !it.UnitCost.IsZero() || it.ProductID == 0 || it.WarehouseID == 0 {
			continue
		}
		cost, err := s.costs.AverageCost(ctx, tenantID, it.ProductID, it.WarehouseID)
		if err != nil {
			return nil, fmt.Errorf("autopost: cost of product %d: %w", it.ProductID, err)
		}
		out[i].UnitCost = cost
	}
	return out, nil
}

func requireAccounts(ctx context.Context, lookup journals.AccountLookup, tenantID int64, codes []string) error {
	var errs []error
	for _, code := range codes {
		if _, err := lookup.FindAccountByCode(ctx, tenantID, code); err != nil {
			if !errors.Is(err, acctshared.ErrAccountNotFound) {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func derivedInput(typ journals.EntryType, refType, refID string, date time.Time, actorID int64, desc string, lines []journals.LineInput) journals.CreateInput {
	return journals.CreateInput{
		EntryDate:     date,
		Type:          typ,
		ReferenceType: &refType,
		ReferenceID:   &refID,
		Description:   desc,
		CreatedBy:     actorID,
		Lines:         lines,
	}
}
