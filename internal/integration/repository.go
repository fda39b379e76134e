package integration

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sao-erp/sao-erp/internal/platform/db"
)

// Repository stores ledger_sync rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts the outcome of a posting attempt, counting attempts per document.
func (r *Repository) Save(ctx context.Context, rec SyncRecord) error {
	_, err := db.Exec(ctx, r.pool, db.SQL.Insert("ledger_sync").
		Columns("tenant_id", "reference_type", "reference_code", "status", "entry_id", "last_error", "attempts", "updated_at").
		Values(rec.TenantID, rec.ReferenceType, rec.ReferenceCode, rec.Status, rec.EntryID, rec.LastError, 1, rec.UpdatedAt).
		Suffix(`ON CONFLICT (tenant_id, reference_type, reference_code) DO UPDATE SET
    status = EXCLUDED.status,
    entry_id = COALESCE(EXCLUDED.entry_id, ledger_sync.entry_id),
    last_error = EXCLUDED.last_error,
    attempts = ledger_sync.attempts + 1,
    updated_at = EXCLUDED.updated_at`))
	return err
}

// ListPending returns pending documents of a tenant, oldest first.
func (r *Repository) ListPending(ctx context.Context, tenantID int64) ([]SyncRecord, error) {
	var out []SyncRecord
	err := db.Select(ctx, r.pool, &out, db.SQL.
		Select("tenant_id", "reference_type", "reference_code", "status", "entry_id", "last_error", "attempts", "updated_at").
		From("ledger_sync").
		Where(sq.Eq{"tenant_id": tenantID, "status": LedgerPending}).
		OrderBy("updated_at", "reference_code"))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PendingCounts groups pending documents by tenant.
func (r *Repository) PendingCounts(ctx context.Context) ([]PendingCount, error) {
	var out []PendingCount
	err := db.Select(ctx, r.pool, &out, db.SQL.
		Select("tenant_id", "COUNT(*) AS count").
		From("ledger_sync").
		Where(sq.Eq{"status": LedgerPending}).
		GroupBy("tenant_id").
		OrderBy("tenant_id"))
	if err != nil {
		return nil, err
	}
	return out, nil
}
