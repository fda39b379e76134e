package inventory

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sao-erp/sao-erp/internal/platform/db"
	"github.com/sao-erp/sao-erp/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	WarehouseExists(ctx context.Context, tenantID, warehouseID int64) (bool, error)
	EnsureBalanceForUpdate(ctx context.Context, tenantID, productID, warehouseID int64) (Balance, error)
	UpdateBalance(ctx context.Context, balance Balance) error
	InsertBatch(ctx context.Context, batch Batch) (Batch, error)
	AvailableBatchesForUpdate(ctx context.Context, tenantID, productID, warehouseID int64) ([]Batch, error)
	UpdateBatch(ctx context.Context, batch Batch) error
	InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	GetTransactionForUpdate(ctx context.Context, tenantID, id int64) (Transaction, error)
	MarkConfirmed(ctx context.Context, tx Transaction) error
}

var balanceColumns = []string{
	"tenant_id", "product_id", "warehouse_id", "quantity", "reserved_quantity",
	"available_quantity", "average_cost", "total_value", "updated_at",
}

var batchColumns = []string{
	"id", "tenant_id", "product_id", "warehouse_id", "batch_number",
	"quantity", "unit_cost", "total_cost", "status", "created_at",
}

var transactionColumns = []string{
	"id", "tenant_id", "code", "type", "status", "warehouse_id", "dest_warehouse_id",
	"note", "created_by", "confirmed_by", "confirmed_at", "created_at",
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

// GetBalance reads a balance row without creating it.
func (r *Repository) GetBalance(ctx context.Context, tenantID, productID, warehouseID int64) (Balance, error) {
	var b Balance
	err := db.Get(ctx, r.pool, &b, db.SQL.Select(balanceColumns...).
		From("stock_balances").
		Where(sq.Eq{"tenant_id": tenantID, "product_id": productID, "warehouse_id": warehouseID}))
	if errors.Is(err, pgx.ErrNoRows) {
		return Balance{}, ErrBalanceNotFound
	}
	return b, err
}

// ListBatches returns batches oldest first, optionally including depleted ones.
func (r *Repository) ListBatches(ctx context.Context, tenantID, productID, warehouseID int64, includeDepleted bool) ([]Batch, error) {
	q := db.SQL.Select(batchColumns...).
		From("product_batches").
		Where(sq.Eq{"tenant_id": tenantID, "product_id": productID, "warehouse_id": warehouseID}).
		OrderBy("created_at", "id")
	if !includeDepleted {
		q = q.Where(sq.Eq{"status": BatchStatusAvailable})
	}
	var out []Batch
	if err := db.Select(ctx, r.pool, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTransaction loads a transaction with its items.
func (r *Repository) GetTransaction(ctx context.Context, tenantID, id int64) (Transaction, error) {
	return loadTransaction(ctx, r.pool, tenantID, id, false)
}

// StockDrift lists balances whose quantity differs from the sum of their available batches.
func (r *Repository) StockDrift(ctx context.Context) ([]Drift, error) {
	const query = `
SELECT b.tenant_id, b.product_id, b.warehouse_id, b.quantity AS balance_quantity,
       COALESCE(SUM(p.quantity) FILTER (WHERE p.status = 'available'), 0) AS batch_quantity
FROM stock_balances b
LEFT JOIN product_batches p
       ON p.tenant_id = b.tenant_id AND p.product_id = b.product_id AND p.warehouse_id = b.warehouse_id
GROUP BY b.tenant_id, b.product_id, b.warehouse_id, b.quantity
HAVING b.quantity <> COALESCE(SUM(p.quantity) FILTER (WHERE p.status = 'available'), 0)
ORDER BY b.tenant_id, b.product_id, b.warehouse_id`
	var out []Drift
	if err := db.Select(ctx, r.pool, &out, sq.Expr(query)); err != nil {
		return nil, err
	}
	return out, nil
}

type txRepo struct {
	q db.Querier
}

func warehouseExistsQuery(tenantID, warehouseID int64) sq.SelectBuilder {
	return db.SQL.Select().Column(sq.Expr(
		"EXISTS (SELECT 1 FROM warehouses WHERE tenant_id = ? AND id = ? AND deleted_at IS NULL)",
		tenantID, warehouseID))
}

func availableBatchesQuery(tenantID, productID, warehouseID int64) sq.SelectBuilder {
	return db.SQL.Select(batchColumns...).
		From("product_batches").
		Where(sq.Eq{"tenant_id": tenantID, "product_id": productID, "warehouse_id": warehouseID, "status": BatchStatusAvailable}).
		OrderBy("created_at", "id").
		Suffix("FOR UPDATE")
}

func (r *txRepo) WarehouseExists(ctx context.Context, tenantID, warehouseID int64) (bool, error) {
	var exists bool
	err := db.Get(ctx, r.q, &exists, warehouseExistsQuery(tenantID, warehouseID))
	return exists, err
}

func (r *txRepo) EnsureBalanceForUpdate(ctx context.Context, tenantID, productID, warehouseID int64) (Balance, error) {
	_, err := db.Exec(ctx, r.q, db.SQL.Insert("stock_balances").
		Columns("tenant_id", "product_id", "warehouse_id").
		Values(tenantID, productID, warehouseID).
		Suffix("ON CONFLICT (tenant_id, product_id, warehouse_id) DO NOTHING"))
	if err != nil {
		return Balance{}, fmt.Errorf("inventory: ensure balance: %w", err)
	}
	var b Balance
	err = db.Get(ctx, r.q, &b, db.SQL.Select(balanceColumns...).
		From("stock_balances").
		Where(sq.Eq{"tenant_id": tenantID, "product_id": productID, "warehouse_id": warehouseID}).
		Suffix("FOR UPDATE"))
	return b, err
}

func (r *txRepo) UpdateBalance(ctx context.Context, b Balance) error {
	_, err := db.Exec(ctx, r.q, db.SQL.Update("stock_balances").
		Set("quantity", b.Quantity).
		Set("reserved_quantity", b.ReservedQuantity).
		Set("available_quantity", b.AvailableQuantity).
		Set("average_cost", b.AverageCost).
		Set("total_value", b.TotalValue).
		Set("updated_at", b.UpdatedAt).
		Where(sq.Eq{"tenant_id": b.TenantID, "product_id": b.ProductID, "warehouse_id": b.WarehouseID}))
	return err
}

func (r *txRepo) InsertBatch(ctx context.Context, b Batch) (Batch, error) {
	query, args, err := db.SQL.Insert("product_batches").
		Columns("tenant_id", "product_id", "warehouse_id", "batch_number", "quantity", "unit_cost", "total_cost", "status", "created_at").
		Values(b.TenantID, b.ProductID, b.WarehouseID, b.BatchNumber, b.Quantity, b.UnitCost, b.TotalCost, b.Status, b.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Batch{}, err
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&b.ID); err != nil {
		return Batch{}, err
	}
	return b, nil
}

func (r *txRepo) AvailableBatchesForUpdate(ctx context.Context, tenantID, productID, warehouseID int64) ([]Batch, error) {
	var out []Batch
	err := db.Select(ctx, r.q, &out, availableBatchesQuery(tenantID, productID, warehouseID))
	return out, err
}

func (r *txRepo) UpdateBatch(ctx context.Context, b Batch) error {
	_, err := db.Exec(ctx, r.q, db.SQL.Update("product_batches").
		Set("quantity", b.Quantity).
		Set("total_cost", b.TotalCost).
		Set("status", b.Status).
		Where(sq.Eq{"tenant_id": b.TenantID, "id": b.ID}))
	return err
}

func (r *txRepo) InsertTransaction(ctx context.Context, t Transaction) (Transaction, error) {
	query, args, err := db.SQL.Insert("stock_transactions").
		Columns("tenant_id", "code", "type", "status", "warehouse_id", "dest_warehouse_id", "note", "created_by", "created_at").
		Values(t.TenantID, t.Code, t.Type, t.Status, t.WarehouseID, t.DestWarehouseID, t.Note, t.CreatedBy, t.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Transaction{}, err
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&t.ID); err != nil {
		if shared.IsUniqueViolation(err) {
			return Transaction{}, fmt.Errorf("inventory: transaction code %s already used: %w", t.Code, shared.ErrIdempotencyConflict)
		}
		return Transaction{}, err
	}
	ins := db.SQL.Insert("stock_transaction_items").
		Columns("transaction_id", "line_number", "product_id", "quantity", "unit_cost", "total_cost")
	for i := range t.Items {
		t.Items[i].TransactionID = t.ID
		it := t.Items[i]
		ins = ins.Values(t.ID, it.LineNumber, it.ProductID, it.Quantity, it.UnitCost, it.TotalCost)
	}
	query, args, err = ins.Suffix("RETURNING id").ToSql()
	if err != nil {
		return Transaction{}, err
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return Transaction{}, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return Transaction{}, err
	}
	for i := range ids {
		if i < len(t.Items) {
			t.Items[i].ID = ids[i]
		}
	}
	return t, nil
}

func (r *txRepo) GetTransactionForUpdate(ctx context.Context, tenantID, id int64) (Transaction, error) {
	return loadTransaction(ctx, r.q, tenantID, id, true)
}

func (r *txRepo) MarkConfirmed(ctx context.Context, t Transaction) error {
	_, err := db.Exec(ctx, r.q, db.SQL.Update("stock_transactions").
		Set("status", t.Status).
		Set("confirmed_by", t.ConfirmedBy).
		Set("confirmed_at", t.ConfirmedAt).
		Where(sq.Eq{"tenant_id": t.TenantID, "id": t.ID}))
	return err
}

func loadTransaction(ctx context.Context, q db.Querier, tenantID, id int64, lock bool) (Transaction, error) {
	sel := db.SQL.Select(transactionColumns...).
		From("stock_transactions").
		Where(sq.Eq{"tenant_id": tenantID, "id": id, "deleted_at": nil})
	if lock {
		sel = sel.Suffix("FOR UPDATE")
	}
	var t Transaction
	if err := db.Get(ctx, q, &t, sel); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
		}
		return Transaction{}, err
	}
	err := db.Select(ctx, q, &t.Items, db.SQL.Select("id", "transaction_id", "line_number", "product_id", "quantity", "unit_cost", "total_cost").
		From("stock_transaction_items").
		Where(sq.Eq{"transaction_id": t.ID}).
		OrderBy("line_number"))
	if err != nil {
		return Transaction{}, err
	}
	return t, nil
}
