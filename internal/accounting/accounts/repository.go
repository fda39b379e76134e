package accounts

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	acctshared "github.com/sao-erp/sao-erp/internal/accounting/shared"
	"github.com/sao-erp/sao-erp/internal/platform/db"
	"github.com/sao-erp/sao-erp/internal/shared"
)

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	FindByCode(ctx context.Context, tenantID int64, code string) (Account, error)
	Insert(ctx context.Context, account Account) (Account, error)
	Update(ctx context.Context, account Account) error
	SoftDelete(ctx context.Context, tenantID, id int64) error
	CountChildren(ctx context.Context, tenantID int64, code string) (int, error)
	CountJournalLines(ctx context.Context, tenantID, accountID int64) (int, error)
}

// Repository persists chart of accounts rows in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var accountColumns = []string{
	"id", "tenant_id", "code", "name", "type", "parent_code",
	"is_detail", "is_active", "created_at", "updated_at", "deleted_at",
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{q: tx})
	})
}

// List returns the live accounts of a tenant ordered by code.
func (r *Repository) List(ctx context.Context, tenantID int64) ([]Account, error) {
	var out []Account
	err := db.Select(ctx, r.pool, &out, db.SQL.Select(accountColumns...).
		From("chart_of_accounts").
		Where(sq.Eq{"tenant_id": tenantID, "deleted_at": nil}).
		OrderBy("code"))
	return out, err
}

// FindByCode performs a non-locking lookup.
func (r *Repository) FindByCode(ctx context.Context, tenantID int64, code string) (Account, error) {
	return QueryByCode(ctx, r.pool, tenantID, code)
}

// QueryByCode resolves an account code within the tenant using the given
// querier, which may be a transaction owned by another package.
func QueryByCode(ctx context.Context, q db.Querier, tenantID int64, code string) (Account, error) {
	var acc Account
	err := db.Get(ctx, q, &acc, db.SQL.Select(accountColumns...).
		From("chart_of_accounts").
		Where(sq.Eq{"tenant_id": tenantID, "code": code, "deleted_at": nil}))
	if err != nil {
		if pgxscan.NotFound(err) || errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("%w: %s", acctshared.ErrAccountNotFound, code)
		}
		return Account{}, err
	}
	return acc, nil
}

type txRepo struct {
	q db.Querier
}

func (r *txRepo) FindByCode(ctx context.Context, tenantID int64, code string) (Account, error) {
	return QueryByCode(ctx, r.q, tenantID, code)
}

func (r *txRepo) Insert(ctx context.Context, a Account) (Account, error) {
	query, args, err := db.SQL.Insert("chart_of_accounts").
		Columns("tenant_id", "code", "name", "type", "parent_code", "is_detail", "is_active", "created_at", "updated_at").
		Values(a.TenantID, a.Code, a.Name, a.Type, a.ParentCode, a.IsDetail, a.IsActive, a.CreatedAt, a.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return Account{}, err
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&a.ID); err != nil {
		if shared.IsUniqueViolation(err) {
			return Account{}, fmt.Errorf("%w: %s", acctshared.ErrDuplicateCode, a.Code)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *txRepo) Update(ctx context.Context, a Account) error {
	_, err := db.Exec(ctx, r.q, db.SQL.Update("chart_of_accounts").
		Set("name", a.Name).
		Set("parent_code", a.ParentCode).
		Set("type", a.Type).
		Set("is_detail", a.IsDetail).
		Set("is_active", a.IsActive).
		Set("updated_at", a.UpdatedAt).
		Where(sq.Eq{"tenant_id": a.TenantID, "id": a.ID}))
	return err
}

func (r *txRepo) SoftDelete(ctx context.Context, tenantID, id int64) error {
	_, err := db.Exec(ctx, r.q, db.SQL.Update("chart_of_accounts").
		Set("deleted_at", sq.Expr("NOW()")).
		Where(sq.Eq{"tenant_id": tenantID, "id": id, "deleted_at": nil}))
	return err
}

func (r *txRepo) CountChildren(ctx context.Context, tenantID int64, code string) (int, error) {
	var n int
	err := db.Get(ctx, r.q, &n, db.SQL.Select("COUNT(*)").
		From("chart_of_accounts").
		Where(sq.Eq{"tenant_id": tenantID, "parent_code": code, "deleted_at": nil}))
	return n, err
}

func (r *txRepo) CountJournalLines(ctx context.Context, tenantID, accountID int64) (int, error) {
	var n int
	err := db.Get(ctx, r.q, &n, db.SQL.Select("COUNT(*)").
		From("journal_entry_lines l").
		Join("journal_entries e ON e.id = l.entry_id").
		Where(sq.Eq{"l.tenant_id": tenantID, "l.account_id": accountID, "e.deleted_at": nil}))
	return n, err
}
