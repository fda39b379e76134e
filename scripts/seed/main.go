package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
	"github.com/sao-erp/sao-erp/internal/accounting/autopost"
	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	"github.com/sao-erp/sao-erp/internal/app"
	"github.com/sao-erp/sao-erp/internal/integration"
	"github.com/sao-erp/sao-erp/internal/inventory"
	"github.com/sao-erp/sao-erp/internal/platform/db"
	"github.com/sao-erp/sao-erp/internal/shared"
)

func main() {
	tenantID := flag.Int64("tenant", 1, "tenant to seed")
	flag.Parse()

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN, cfg.DB("sao-seed"))
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Applying schema...")
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	audit := shared.NewAuditLogger(pool)
	logger := app.NewLogger(cfg)

	fmt.Println("→ Seeding chart of accounts...")
	chart := accounts.NewService(accounts.NewRepository(pool), audit)
	if _, err := chart.Upsert(ctx, *tenantID, accounts.Circular200()); err != nil {
		log.Fatalf("seed chart: %v", err)
	}

	fmt.Println("→ Seeding warehouses...")
	warehouses, err := seedWarehouses(ctx, pool, *tenantID)
	if err != nil {
		log.Fatalf("seed warehouses: %v", err)
	}

	journalsService := journals.NewService(journals.NewRepository(pool), audit, nil, logger)
	inventoryRepo := inventory.NewRepository(pool)
	hooks := integration.NewHooks(
		autopost.NewService(journalsService, inventory.NewService(inventoryRepo, nil, nil, nil, logger)),
		integration.NewRepository(pool),
		nil,
		logger,
	)
	stock := inventory.NewService(inventoryRepo, audit, shared.NewIdempotencyStore(pool), hooks, logger)

	fmt.Println("→ Seeding opening stock...")
	if err := seedOpeningStock(ctx, stock, *tenantID, warehouses["WH-HCM"]); err != nil {
		log.Fatalf("seed opening stock: %v", err)
	}

	fmt.Println("→ Posting demo orders...")
	if err := seedOrders(ctx, hooks, *tenantID, warehouses["WH-HCM"]); err != nil {
		log.Fatalf("seed orders: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedWarehouses(ctx context.Context, pool *pgxpool.Pool, tenantID int64) (map[string]int64, error) {
	rows := []struct{ code, name string }{
		{"WH-HCM", "Kho Hồ Chí Minh"},
		{"WH-HN", "Kho Hà Nội"},
	}
	ids := make(map[string]int64, len(rows))
	for _, w := range rows {
		var id int64
		err := pool.QueryRow(ctx, `
			INSERT INTO warehouses (tenant_id, code, name)
			VALUES ($1, $2, $3)
			ON CONFLICT (tenant_id, code) DO UPDATE SET name = EXCLUDED.name
			RETURNING id`, tenantID, w.code, w.name).Scan(&id)
		if err != nil {
			return nil, err
		}
		ids[w.code] = id
	}
	return ids, nil
}

func seedOpeningStock(ctx context.Context, stock *inventory.Service, tenantID, warehouseID int64) error {
	tx, err := stock.CreateTransaction(ctx, tenantID, inventory.CreateTransactionInput{
		Code:        "OPENING-0001",
		Type:        inventory.TransactionTypeIn,
		WarehouseID: warehouseID,
		Note:        "Tồn kho đầu kỳ",
		Items: []inventory.ItemInput{
			{ProductID: 1001, Quantity: decimal.NewFromInt(100), UnitCost: decimal.NewFromInt(100000)},
			{ProductID: 1002, Quantity: decimal.NewFromInt(40), UnitCost: decimal.NewFromInt(250000)},
		},
	})
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		fmt.Println("  opening stock already recorded")
		return nil
	}
	if err != nil {
		return err
	}
	_, err = stock.ConfirmTransaction(ctx, tenantID, tx.ID, 0)
	return err
}

func seedOrders(ctx context.Context, hooks *integration.Hooks, tenantID, warehouseID int64) error {
	date := time.Now().UTC().Truncate(24 * time.Hour)
	purchase := hooks.PurchaseOrderReceived(ctx, tenantID, autopost.PurchaseOrderSnapshot{
		Code:       "PO-DEMO-0001",
		Date:       date,
		SupplierID: 501,
		Subtotal:   decimal.NewFromInt(10_000_000),
		TaxAmount:  decimal.NewFromInt(1_000_000),
		Total:      decimal.NewFromInt(11_000_000),
	})
	sale := hooks.SalesOrderCompleted(ctx, tenantID, autopost.SalesOrderSnapshot{
		Code:       "SO-DEMO-0001",
		Date:       date,
		CustomerID: 301,
		Subtotal:   decimal.NewFromInt(15_000_000),
		TaxAmount:  decimal.NewFromInt(1_500_000),
		Total:      decimal.NewFromInt(16_500_000),
		Items: []autopost.OrderItem{
			{ProductID: 1001, WarehouseID: warehouseID, Quantity: decimal.NewFromInt(10)},
		},
	})
	for code, outcome := range map[string]integration.LedgerOutcome{"PO-DEMO-0001": purchase, "SO-DEMO-0001": sale} {
		if outcome.Status != integration.LedgerPosted {
			return fmt.Errorf("%s: %s", code, outcome.Error)
		}
		fmt.Printf("  %s → entry %d\n", code, *outcome.EntryID)
	}
	return nil
}
