package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
)

// SQL is the statement builder shared by repositories.
var SQL = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Select runs a built query and scans every row into dst.
func Select(ctx context.Context, q Querier, dst any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("platform/db: build query: %w", err)
	}
	return pgxscan.Select(ctx, q, dst, query, args...)
}

// Get runs a built query and scans exactly one row into dst.
func Get(ctx context.Context, q Querier, dst any, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("platform/db: build query: %w", err)
	}
	return pgxscan.Get(ctx, q, dst, query, args...)
}

// Exec runs a built statement.
func Exec(ctx context.Context, q Querier, b sq.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("platform/db: build query: %w", err)
	}
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
