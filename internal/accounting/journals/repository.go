package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
	"github.com/sao-erp/sao-erp/internal/accounting/shared"
	"github.com/sao-erp/sao-erp/internal/platform/db"
	internalShared "github.com/sao-erp/sao-erp/internal/shared"
)

// AccountLookup resolves chart of accounts codes for a tenant.
type AccountLookup interface {
	FindAccountByCode(ctx context.Context, tenantID int64, code string) (accounts.Account, error)
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	AccountLookup
	FindByReference(ctx context.Context, tenantID int64, refType, refID string) (JournalEntry, error)
	NextEntryNumber(ctx context.Context, tenantID int64, date time.Time) (string, error)
	InsertEntry(ctx context.Context, entry JournalEntry) (JournalEntry, error)
	GetForUpdate(ctx context.Context, tenantID, id int64) (JournalEntry, error)
	UpdateStatus(ctx context.Context, entry JournalEntry) error
	SoftDelete(ctx context.Context, tenantID, id int64, at time.Time) error
}

// Repository encapsulates DB operations for journals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var entryColumns = []string{
	"id", "tenant_id", "entry_number", "entry_date", "type", "status",
	"total_debit", "total_credit", "reference_type", "reference_id", "description",
	"created_by", "posted_by", "posted_at", "reversed_by", "reversed_at", "reversal_of_id",
	"created_at", "updated_at", "deleted_at",
}

var lineColumns = []string{
	"id", "entry_id", "line_number", "account_id", "account_code", "description",
	"debit_amount", "credit_amount", "partner_type", "partner_id",
}

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{q: tx})
	})
}

// FindAccountByCode performs a non-transactional account lookup.
func (r *Repository) FindAccountByCode(ctx context.Context, tenantID int64, code string) (accounts.Account, error) {
	return accounts.QueryByCode(ctx, r.pool, tenantID, code)
}

// Get loads a live entry with its lines.
func (r *Repository) Get(ctx context.Context, tenantID, id int64) (JournalEntry, error) {
	return loadEntry(ctx, r.pool, tenantID, id, false)
}

// List returns entry headers matching the filter, newest first.
func (r *Repository) List(ctx context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, error) {
	page := internalShared.NewPage(filter.Limit, filter.Offset)
	q := db.SQL.Select(entryColumns...).
		From("journal_entries").
		Where(sq.Eq{"tenant_id": tenantID, "deleted_at": nil}).
		OrderBy("entry_date DESC", "id DESC").
		Limit(page.Limit).
		Offset(page.Offset)
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Type != "" {
		q = q.Where(sq.Eq{"type": filter.Type})
	}
	if filter.From != nil {
		q = q.Where(sq.GtOrEq{"entry_date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(sq.LtOrEq{"entry_date": *filter.To})
	}
	if filter.ReferenceType != "" {
		q = q.Where(sq.Eq{"reference_type": filter.ReferenceType})
	}
	if filter.ReferenceID != "" {
		q = q.Where(sq.Eq{"reference_id": filter.ReferenceID})
	}
	var out []JournalEntry
	if err := db.Select(ctx, r.pool, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// AccountBalances sums posted movements per account up to asOf inclusive.
// Reversed entries are kept because their reversing entry offsets them.
func (r *Repository) AccountBalances(ctx context.Context, tenantID int64, asOf time.Time) ([]AccountBalance, error) {
	q := db.SQL.Select(
		"l.account_code",
		"a.name AS account_name",
		"COALESCE(SUM(l.debit_amount), 0) AS debit",
		"COALESCE(SUM(l.credit_amount), 0) AS credit",
	).
		From("journal_entry_lines l").
		Join("journal_entries e ON e.id = l.entry_id").
		Join("chart_of_accounts a ON a.id = l.account_id").
		Where(sq.Eq{
			"e.tenant_id":  tenantID,
			"e.status":     []Status{StatusPosted, StatusReversed},
			"e.deleted_at": nil,
		}).
		Where(sq.LtOrEq{"e.entry_date": asOf}).
		GroupBy("l.account_code", "a.name").
		OrderBy("l.account_code")
	var out []AccountBalance
	if err := db.Select(ctx, r.pool, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// IntegrityViolations re-sums every live entry's lines and reports entries
// that are unbalanced, have fewer than two lines, or disagree with their header.
func (r *Repository) IntegrityViolations(ctx context.Context) ([]IntegrityViolation, error) {
	const query = `
SELECT e.tenant_id, e.id AS entry_id, e.entry_number,
       e.total_debit AS header_debit, e.total_credit AS header_credit,
       COALESCE(SUM(l.debit_amount), 0) AS line_debit,
       COALESCE(SUM(l.credit_amount), 0) AS line_credit,
       COUNT(l.id) AS line_count
FROM journal_entries e
LEFT JOIN journal_entry_lines l ON l.entry_id = e.id
WHERE e.deleted_at IS NULL
GROUP BY e.id
HAVING ABS(COALESCE(SUM(l.debit_amount), 0) - COALESCE(SUM(l.credit_amount), 0)) > 0.01
    OR COALESCE(SUM(l.debit_amount), 0) <> e.total_debit
    OR COALESCE(SUM(l.credit_amount), 0) <> e.total_credit
    OR COUNT(l.id) < 2
ORDER BY e.tenant_id, e.id`
	var out []IntegrityViolation
	if err := pgxscan.Select(ctx, r.pool, &out, query); err != nil {
		return nil, err
	}
	return out, nil
}

type txRepository struct {
	q db.Querier
}

func (r *txRepository) FindAccountByCode(ctx context.Context, tenantID int64, code string) (accounts.Account, error) {
	return accounts.QueryByCode(ctx, r.q, tenantID, code)
}

func (r *txRepository) FindByReference(ctx context.Context, tenantID int64, refType, refID string) (JournalEntry, error) {
	var entry JournalEntry
	err := db.Get(ctx, r.q, &entry, db.SQL.Select(entryColumns...).
		From("journal_entries").
		Where(sq.Eq{
			"tenant_id":      tenantID,
			"reference_type": refType,
			"reference_id":   refID,
			"deleted_at":     nil,
			"reversal_of_id": nil,
		}).
		Limit(1))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) NextEntryNumber(ctx context.Context, tenantID int64, date time.Time) (string, error) {
	var seq int64
	err := r.q.QueryRow(ctx, `
INSERT INTO journal_sequences (tenant_id, period, last_value) VALUES ($1, $2, 1)
ON CONFLICT (tenant_id, period) DO UPDATE SET last_value = journal_sequences.last_value + 1
RETURNING last_value`, tenantID, date.Format("200601")).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("journals: allocate number: %w", err)
	}
	return FormatEntryNumber(date, seq), nil
}

func (r *txRepository) InsertEntry(ctx context.Context, e JournalEntry) (JournalEntry, error) {
	query, args, err := db.SQL.Insert("journal_entries").
		Columns("tenant_id", "entry_number", "entry_date", "type", "status", "total_debit", "total_credit",
			"reference_type", "reference_id", "description", "created_by", "posted_by", "posted_at",
			"reversal_of_id", "created_at", "updated_at").
		Values(e.TenantID, e.EntryNumber, e.EntryDate, e.Type, e.Status, e.TotalDebit, e.TotalCredit,
			e.ReferenceType, e.ReferenceID, e.Description, e.CreatedBy, e.PostedBy, e.PostedAt,
			e.ReversalOfID, e.CreatedAt, e.UpdatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return JournalEntry{}, err
	}
	if err := r.q.QueryRow(ctx, query, args...).Scan(&e.ID); err != nil {
		if internalShared.IsUniqueViolation(err) && e.ReferenceType != nil && e.ReferenceID != nil {
			return JournalEntry{}, &shared.DuplicateSourceError{ReferenceType: *e.ReferenceType, ReferenceID: *e.ReferenceID}
		}
		return JournalEntry{}, err
	}

	ins := db.SQL.Insert("journal_entry_lines").
		Columns("tenant_id", "entry_id", "line_number", "account_id", "account_code", "description",
			"debit_amount", "credit_amount", "partner_type", "partner_id")
	for i := range e.Lines {
		e.Lines[i].EntryID = e.ID
		l := e.Lines[i]
		ins = ins.Values(e.TenantID, e.ID, l.LineNumber, l.AccountID, l.AccountCode, l.Description,
			l.DebitAmount, l.CreditAmount, l.PartnerType, l.PartnerID)
	}
	query, args, err = ins.Suffix("RETURNING id").ToSql()
	if err != nil {
		return JournalEntry{}, err
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return JournalEntry{}, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return JournalEntry{}, err
	}
	for i := range ids {
		if i < len(e.Lines) {
			e.Lines[i].ID = ids[i]
		}
	}
	return e, nil
}

func (r *txRepository) GetForUpdate(ctx context.Context, tenantID, id int64) (JournalEntry, error) {
	return loadEntry(ctx, r.q, tenantID, id, true)
}

func (r *txRepository) UpdateStatus(ctx context.Context, e JournalEntry) error {
	_, err := db.Exec(ctx, r.q, db.SQL.Update("journal_entries").
		Set("status", e.Status).
		Set("posted_by", e.PostedBy).
		Set("posted_at", e.PostedAt).
		Set("reversed_by", e.ReversedBy).
		Set("reversed_at", e.ReversedAt).
		Set("updated_at", e.UpdatedAt).
		Where(sq.Eq{"tenant_id": e.TenantID, "id": e.ID}))
	return err
}

func (r *txRepository) SoftDelete(ctx context.Context, tenantID, id int64, at time.Time) error {
	_, err := db.Exec(ctx, r.q, db.SQL.Update("journal_entries").
		Set("deleted_at", at).
		Set("updated_at", at).
		Where(sq.Eq{"tenant_id": tenantID, "id": id, "deleted_at": nil}))
	return err
}

func loadEntry(ctx context.Context, q db.Querier, tenantID, id int64, lock bool) (JournalEntry, error) {
	sel := db.SQL.Select(entryColumns...).
		From("journal_entries").
		Where(sq.Eq{"tenant_id": tenantID, "id": id, "deleted_at": nil})
	if lock {
		sel = sel.Suffix("FOR UPDATE")
	}
	var entry JournalEntry
	if err := db.Get(ctx, q, &entry, sel); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, fmt.Errorf("%w: %d", shared.ErrJournalNotFound, id)
		}
		return JournalEntry{}, err
	}
	err := db.Select(ctx, q, &entry.Lines, db.SQL.Select(lineColumns...).
		From("journal_entry_lines").
		Where(sq.Eq{"entry_id": entry.ID}).
		OrderBy("line_number"))
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}
