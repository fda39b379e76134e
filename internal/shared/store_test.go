package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQuerier struct {
	sql  []string
	args [][]any
	tag  string
	err  error
}

func (q *recordingQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return pgconn.NewCommandTag(q.tag), q.err
}

func (q *recordingQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (q *recordingQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestAuditLoggerRecord(t *testing.T) {
	q := &recordingQuerier{tag: "INSERT 0 1"}
	logger := NewAuditLogger(q)

	err := logger.Record(context.Background(), AuditLog{
		TenantID: 7, ActorID: 3, Action: "post", Entity: "journal_entry", EntityID: "42",
		Meta: map[string]any{"lines": 2},
	})
	require.NoError(t, err)
	require.Len(t, q.sql, 1)
	assert.Contains(t, q.sql[0], "INSERT INTO audit_logs")
	assert.Contains(t, q.sql[0], "NOW()")
	assert.Equal(t, int64(7), q.args[0][0])
	assert.JSONEq(t, `{"lines":2}`, string(q.args[0][5].([]byte)))
}

func TestAuditLoggerKeepsExplicitTimestamp(t *testing.T) {
	q := &recordingQuerier{tag: "INSERT 0 1"}
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, NewAuditLogger(q).Record(context.Background(), AuditLog{
		TenantID: 1, Action: "create", Entity: "account", EntityID: "111", At: at,
	}))
	assert.NotContains(t, q.sql[0], "NOW()")
	assert.Equal(t, at, q.args[0][6])
}

func TestAuditLoggerRejectsIncompleteEntries(t *testing.T) {
	q := &recordingQuerier{}
	logger := NewAuditLogger(q)
	for _, entry := range []AuditLog{
		{Entity: "account", EntityID: "1"},
		{Action: "create", EntityID: "1"},
		{Action: "create", Entity: "account"},
	} {
		assert.Error(t, logger.Record(context.Background(), entry))
	}
	assert.Empty(t, q.sql)

	var nilLogger *AuditLogger
	assert.Error(t, nilLogger.Record(context.Background(), AuditLog{Action: "a", Entity: "b", EntityID: "c"}))
}

func TestIdempotencyCheckAndInsertMapsUniqueViolation(t *testing.T) {
	q := &recordingQuerier{err: fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: "23505"})}
	store := NewIdempotencyStore(q)

	err := store.CheckAndInsert(context.Background(), "stock-in-1", "inventory")
	assert.ErrorIs(t, err, ErrIdempotencyConflict)

	q.err = errors.New("connection reset")
	err = store.CheckAndInsert(context.Background(), "stock-in-2", "inventory")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrIdempotencyConflict)

	assert.Error(t, store.CheckAndInsert(context.Background(), "", "inventory"))
	assert.Error(t, store.CheckAndInsert(context.Background(), "k", ""))
}

func TestIdempotencyCleanupUsesRetentionCutoff(t *testing.T) {
	q := &recordingQuerier{tag: "DELETE 3"}
	store := NewIdempotencyStore(q)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	removed, err := store.Cleanup(context.Background(), 48*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.Contains(t, q.sql[0], "DELETE FROM idempotency_keys WHERE created_at < $1")
	assert.Equal(t, now.Add(-48*time.Hour), q.args[0][0])
}

func TestIdempotencyNilStore(t *testing.T) {
	var store *IdempotencyStore
	removed, err := store.Cleanup(context.Background(), time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, removed)
	assert.NoError(t, store.Delete(context.Background(), "k"))
	assert.Error(t, store.CheckAndInsert(context.Background(), "k", "m"))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
