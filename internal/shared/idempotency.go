package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sao-erp/sao-erp/internal/platform/db"
)

const pgUniqueViolation = "23505"

// ErrIdempotencyConflict is returned when a key was already claimed.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IsUniqueViolation reports whether err carries a postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation
}

// IdempotencyStore claims request keys per module in idempotency_keys.
type IdempotencyStore struct {
	q   db.Querier
	now func() time.Time
}

// NewIdempotencyStore binds the store to a pool or transaction.
func NewIdempotencyStore(q db.Querier) *IdempotencyStore {
	return &IdempotencyStore{q: q, now: time.Now}
}

func (s *IdempotencyStore) ready() error {
	if s == nil || s.q == nil {
		return errors.New("idempotency: store not configured")
	}
	return nil
}

// CheckAndInsert claims key for module, failing with ErrIdempotencyConflict on reuse.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if err := s.ready(); err != nil {
		return err
	}
	if key == "" || module == "" {
		return errors.New("idempotency: key and module required")
	}
	stmt := db.SQL.Insert("idempotency_keys").
		Columns("key", "module", "created_at").
		Values(key, module, s.now())
	if _, err := db.Exec(ctx, s.q, stmt); err != nil {
		if IsUniqueViolation(err) {
			return ErrIdempotencyConflict
		}
		return fmt.Errorf("idempotency: claim %s/%s: %w", module, key, err)
	}
	return nil
}

// Delete releases a key so a failed request can be retried.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.q == nil || key == "" {
		return nil
	}
	_, err := db.Exec(ctx, s.q, db.SQL.Delete("idempotency_keys").Where(sq.Eq{"key": key}))
	return err
}

// Cleanup drops keys claimed before now-olderThan and reports how many went.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.q == nil {
		return 0, nil
	}
	cutoff := s.now().Add(-olderThan)
	return db.Exec(ctx, s.q, db.SQL.Delete("idempotency_keys").Where(sq.Lt{"created_at": cutoff}))
}
