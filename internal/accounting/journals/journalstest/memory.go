// Package journalstest provides an in-memory journal repository for tests.
package journalstest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	"github.com/sao-erp/sao-erp/internal/accounting/shared"
)

// Store implements journals.RepositoryPort. Transactions are serialized and
// every write made by a failing callback is discarded.
type Store struct {
	mu       sync.Mutex
	accounts map[string]accounts.Account
	entries  map[int64]journals.JournalEntry
	seq      map[string]int64
	nextID   int64
	lineID   int64
	acctID   int64

	// FailOnInsert, when set, is returned by InsertEntry.
	FailOnInsert error
}

var _ journals.RepositoryPort = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[string]accounts.Account),
		entries:  make(map[int64]journals.JournalEntry),
		seq:      make(map[string]int64),
	}
}

func accountKey(tenantID int64, code string) string {
	return fmt.Sprintf("%d:%s", tenantID, code)
}

// AddAccount seeds an active detail account.
func (s *Store) AddAccount(tenantID int64, code, name string, typ accounts.AccountType) accounts.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acctID++
	acc := accounts.Account{ID: s.acctID, TenantID: tenantID, Code: code, Name: name, Type: typ, IsDetail: true, IsActive: true}
	s.accounts[accountKey(tenantID, code)] = acc
	return acc
}

// AddSummaryAccount registers a non-postable parent account.
func (s *Store) AddSummaryAccount(tenantID int64, code, name string, typ accounts.AccountType) accounts.Account {
	acc := s.AddAccount(tenantID, code, name, typ)
	s.mu.Lock()
	defer s.mu.Unlock()
	acc.IsDetail = false
	s.accounts[accountKey(tenantID, code)] = acc
	return acc
}

// SetActive toggles an account's active flag.
func (s *Store) SetActive(tenantID int64, code string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.accounts[accountKey(tenantID, code)]
	acc.IsActive = active
	s.accounts[accountKey(tenantID, code)] = acc
}

// EntryCount returns the number of live entries for a tenant.
func (s *Store) EntryCount(tenantID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.DeletedAt == nil {
			n++
		}
	}
	return n
}

// LineCount returns the number of lines across all stored entries of a tenant.
func (s *Store) LineCount(tenantID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.TenantID == tenantID {
			n += len(e.Lines)
		}
	}
	return n
}

// Entries returns every stored entry, including soft-deleted ones, ordered by id.
func (s *Store) Entries() []journals.JournalEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]journals.JournalEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) WithTx(ctx context.Context, fn func(context.Context, journals.TxRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := make(map[int64]journals.JournalEntry, len(s.entries))
	for id, e := range s.entries {
		entries[id] = cloneEntry(e)
	}
	seq := make(map[string]int64, len(s.seq))
	for k, v := range s.seq {
		seq[k] = v
	}
	nextID, lineID := s.nextID, s.lineID
	if err := fn(ctx, &tx{s: s}); err != nil {
		s.entries, s.seq, s.nextID, s.lineID = entries, seq, nextID, lineID
		return err
	}
	return nil
}

func (s *Store) FindAccountByCode(ctx context.Context, tenantID int64, code string) (accounts.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findAccount(tenantID, code)
}

func (s *Store) findAccount(tenantID int64, code string) (accounts.Account, error) {
	acc, ok := s.accounts[accountKey(tenantID, code)]
	if !ok {
		return accounts.Account{}, fmt.Errorf("%w: %s", shared.ErrAccountNotFound, code)
	}
	return acc, nil
}

func (s *Store) Get(ctx context.Context, tenantID, id int64) (journals.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(tenantID, id)
}

func (s *Store) get(tenantID, id int64) (journals.JournalEntry, error) {
	e, ok := s.entries[id]
	if !ok || e.TenantID != tenantID || e.DeletedAt != nil {
		return journals.JournalEntry{}, fmt.Errorf("%w: %d", shared.ErrJournalNotFound, id)
	}
	return cloneEntry(e), nil
}

func (s *Store) List(ctx context.Context, tenantID int64, filter journals.ListFilter) ([]journals.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []journals.JournalEntry
	for _, e := range s.entries {
		if e.TenantID != tenantID || e.DeletedAt != nil {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		e.Lines = nil
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) AccountBalances(ctx context.Context, tenantID int64, asOf time.Time) ([]journals.AccountBalance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := map[string]*journals.AccountBalance{}
	for _, e := range s.entries {
		if e.TenantID != tenantID || e.DeletedAt != nil || e.EntryDate.After(asOf) {
			continue
		}
		if e.Status != journals.StatusPosted && e.Status != journals.StatusReversed {
			continue
		}
		for _, l := range e.Lines {
			b, ok := totals[l.AccountCode]
			if !ok {
				b = &journals.AccountBalance{AccountCode: l.AccountCode, Debit: decimal.Zero, Credit: decimal.Zero}
				if acc, err := s.findAccount(tenantID, l.AccountCode); err == nil {
					b.AccountName = acc.Name
				}
				totals[l.AccountCode] = b
			}
			b.Debit = b.Debit.Add(l.DebitAmount)
			b.Credit = b.Credit.Add(l.CreditAmount)
		}
	}
	out := make([]journals.AccountBalance, 0, len(totals))
	for _, b := range totals {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountCode < out[j].AccountCode })
	return out, nil
}

type tx struct {
	s *Store
}

func (t *tx) FindAccountByCode(ctx context.Context, tenantID int64, code string) (accounts.Account, error) {
	return t.s.findAccount(tenantID, code)
}

func (t *tx) FindByReference(ctx context.Context, tenantID int64, refType, refID string) (journals.JournalEntry, error) {
	for _, e := range t.s.entries {
		if e.TenantID != tenantID || e.DeletedAt != nil || e.ReversalOfID != nil {
			continue
		}
		if e.ReferenceType != nil && e.ReferenceID != nil && *e.ReferenceType == refType && *e.ReferenceID == refID {
			return cloneEntry(e), nil
		}
	}
	return journals.JournalEntry{}, shared.ErrJournalNotFound
}

func (t *tx) NextEntryNumber(ctx context.Context, tenantID int64, date time.Time) (string, error) {
	key := fmt.Sprintf("%d:%s", tenantID, date.Format("200601"))
	t.s.seq[key]++
	return journals.FormatEntryNumber(date, t.s.seq[key]), nil
}

func (t *tx) InsertEntry(ctx context.Context, e journals.JournalEntry) (journals.JournalEntry, error) {
	if t.s.FailOnInsert != nil {
		return journals.JournalEntry{}, t.s.FailOnInsert
	}
	t.s.nextID++
	e.ID = t.s.nextID
	e.Lines = append([]journals.JournalLine(nil), e.Lines...)
	for i := range e.Lines {
		t.s.lineID++
		e.Lines[i].ID = t.s.lineID
		e.Lines[i].EntryID = e.ID
	}
	t.s.entries[e.ID] = cloneEntry(e)
	return e, nil
}

func (t *tx) GetForUpdate(ctx context.Context, tenantID, id int64) (journals.JournalEntry, error) {
	return t.s.get(tenantID, id)
}

func (t *tx) UpdateStatus(ctx context.Context, e journals.JournalEntry) error {
	current, ok := t.s.entries[e.ID]
	if !ok {
		return shared.ErrJournalNotFound
	}
	current.Status = e.Status
	current.PostedBy, current.PostedAt = e.PostedBy, e.PostedAt
	current.ReversedBy, current.ReversedAt = e.ReversedBy, e.ReversedAt
	current.UpdatedAt = e.UpdatedAt
	t.s.entries[e.ID] = current
	return nil
}

func (t *tx) SoftDelete(ctx context.Context, tenantID, id int64, at time.Time) error {
	current, ok := t.s.entries[id]
	if !ok || current.TenantID != tenantID {
		return shared.ErrJournalNotFound
	}
	current.DeletedAt = &at
	t.s.entries[id] = current
	return nil
}

func cloneEntry(e journals.JournalEntry) journals.JournalEntry {
	e.Lines = append([]journals.JournalLine(nil), e.Lines...)
	return e
}
