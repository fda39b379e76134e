package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/sao-erp/sao-erp/internal/platform/db"
)

// AuditLog is one row of audit_logs. A zero At is stamped by the database.
type AuditLog struct {
	TenantID int64
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

func (l AuditLog) validate() error {
	switch {
	case l.Action == "":
		return errors.New("audit: action required")
	case l.Entity == "":
		return errors.New("audit: entity required")
	case l.EntityID == "":
		return errors.New("audit: entity id required")
	}
	return nil
}

// AuditLogger appends ledger, chart and stock actions to audit_logs.
type AuditLogger struct {
	q db.Querier
}

// NewAuditLogger binds the logger to a pool or transaction.
func NewAuditLogger(q db.Querier) *AuditLogger {
	return &AuditLogger{q: q}
}

// Record inserts a single audit row.
func (l *AuditLogger) Record(ctx context.Context, entry AuditLog) error {
	if l == nil || l.q == nil {
		return errors.New("audit: logger not configured")
	}
	if err := entry.validate(); err != nil {
		return err
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return fmt.Errorf("audit: encode meta: %w", err)
	}
	occurredAt := sq.Expr("NOW()")
	if !entry.At.IsZero() {
		occurredAt = sq.Expr("?", entry.At)
	}
	stmt := db.SQL.Insert("audit_logs").
		Columns("tenant_id", "actor_id", "action", "entity", "entity_id", "meta", "occurred_at").
		Values(entry.TenantID, entry.ActorID, entry.Action, entry.Entity, entry.EntityID, meta, occurredAt)
	if _, err := db.Exec(ctx, l.q, stmt); err != nil {
		return fmt.Errorf("audit: insert %s %s: %w", entry.Entity, entry.Action, err)
	}
	return nil
}
