package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
	"github.com/sao-erp/sao-erp/internal/accounting/shared"
	internalShared "github.com/sao-erp/sao-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	AccountLookup
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, tenantID, id int64) (JournalEntry, error)
	List(ctx context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, error)
	AccountBalances(ctx context.Context, tenantID int64, asOf time.Time) ([]AccountBalance, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log internalShared.AuditLog) error
}

// BalanceCache stores account balance snapshots per tenant namespace.
type BalanceCache interface {
	BuildKey(ctx context.Context, namespace string, parts ...string) (string, error)
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Bump(ctx context.Context, namespace string) error
}

// BuildFunc derives the lines of an entry from account lookups made inside
// the creating transaction.
type BuildFunc func(ctx context.Context, lookup AccountLookup) (CreateInput, error)

// Service is the journal entry engine.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	cache  BalanceCache
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service. audit and cache may be nil.
func NewService(repo RepositoryPort, audit AuditPort, cache BalanceCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// FindAccountByCode resolves an account within the tenant; a missing code is an error.
func (s *Service) FindAccountByCode(ctx context.Context, tenantID int64, code string) (accounts.Account, error) {
	return s.repo.FindAccountByCode(ctx, tenantID, strings.TrimSpace(code))
}

// GetJournalEntry loads an entry with its lines.
func (s *Service) GetJournalEntry(ctx context.Context, tenantID, id int64) (JournalEntry, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// ListJournalEntries returns entry headers matching filter.
func (s *Service) ListJournalEntries(ctx context.Context, tenantID int64, filter ListFilter) ([]JournalEntry, error) {
	return s.repo.List(ctx, tenantID, filter)
}

// CreateJournalEntry validates and stores a DRAFT entry.
func (s *Service) CreateJournalEntry(ctx context.Context, tenantID int64, input CreateInput) (JournalEntry, error) {
	if err := validate.Struct(input); err != nil {
		return JournalEntry{}, err
	}
	if err := ValidateLines(input.Lines); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := s.insertDraft(ctx, tx, tenantID, input)
		entry = created
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, tenantID, input.CreatedBy, "journal.create", entry, nil)
	return entry, nil
}

// CreateDerivedEntry runs build and persists its result in one transaction.
// The balance rule is re-checked on the built lines before anything is written.
func (s *Service) CreateDerivedEntry(ctx context.Context, tenantID int64, build BuildFunc) (JournalEntry, error) {
	if build == nil {
		return JournalEntry{}, errors.New("journals: build function required")
	}
	var entry JournalEntry
	var input CreateInput
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		built, err := build(ctx, tx)
		if err != nil {
			return err
		}
		if err := ValidateLines(built.Lines); err != nil {
			return err
		}
		input = built
		created, err := s.insertDraft(ctx, tx, tenantID, built)
		entry = created
		return err
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.record(ctx, tenantID, input.CreatedBy, "journal.create", entry, map[string]any{"derived": true})
	return entry, nil
}

func (s *Service) insertDraft(ctx context.Context, tx TxRepository, tenantID int64, input CreateInput) (JournalEntry, error) {
	if input.ReferenceType != nil && input.ReferenceID != nil {
		existing, err := tx.FindByReference(ctx, tenantID, *input.ReferenceType, *input.ReferenceID)
		if err == nil {
			return JournalEntry{}, &shared.DuplicateSourceError{
				ReferenceType: *input.ReferenceType,
				ReferenceID:   *input.ReferenceID,
				EntryID:       existing.ID,
			}
		}
		if !errors.Is(err, shared.ErrJournalNotFound) {
			return JournalEntry{}, err
		}
	}
	lines, err := resolveLines(ctx, tx, tenantID, input.Lines)
	if err != nil {
		return JournalEntry{}, err
	}
	debit, credit := Totals(input.Lines)
	if err := CheckBalance(debit, credit); err != nil {
		return JournalEntry{}, err
	}
	date := input.EntryDate
	if date.IsZero() {
		date = s.now()
	}
	number, err := tx.NextEntryNumber(ctx, tenantID, date)
	if err != nil {
		return JournalEntry{}, err
	}
	now := s.now().UTC()
	return tx.InsertEntry(ctx, JournalEntry{
		TenantID:      tenantID,
		EntryNumber:   number,
		EntryDate:     date,
		Type:          input.Type,
		Status:        StatusDraft,
		TotalDebit:    debit,
		TotalCredit:   credit,
		ReferenceType: input.ReferenceType,
		ReferenceID:   input.ReferenceID,
		Description:   input.Description,
		CreatedBy:     input.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
		Lines:         lines,
	})
}

// resolveLines maps codes to accounts and numbers lines 1..N in the supplied order.
func resolveLines(ctx context.Context, lookup AccountLookup, tenantID int64, inputs []LineInput) ([]JournalLine, error) {
	resolved := make(map[string]accounts.Account, len(inputs))
	lines := make([]JournalLine, 0, len(inputs))
	for idx, in := range inputs {
		code := strings.TrimSpace(in.AccountCode)
		acc, ok := resolved[code]
		if !ok {
			var err error
			acc, err = lookup.FindAccountByCode(ctx, tenantID, code)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", idx+1, err)
			}
			if !acc.IsActive {
				return nil, fmt.Errorf("line %d: %w: %s", idx+1, shared.ErrAccountInactive, code)
			}
			if !acc.IsDetail {
				return nil, fmt.Errorf("line %d: %w: %s", idx+1, shared.ErrAccountNotDetail, code)
			}
			resolved[code] = acc
		}
		lines = append(lines, JournalLine{
			LineNumber:   idx + 1,
			AccountID:    acc.ID,
			AccountCode:  acc.Code,
			Description:  in.Description,
			DebitAmount:  in.Debit,
			CreditAmount: in.Credit,
			PartnerType:  in.PartnerType,
			PartnerID:    in.PartnerID,
		})
	}
	return lines, nil
}

// PostJournalEntry moves a DRAFT entry to POSTED exactly once.
func (s *Service) PostJournalEntry(ctx context.Context, tenantID, id, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, StatusPosted) {
			return &shared.StatusError{Action: "posted", Required: string(StatusDraft), Actual: string(current.Status)}
		}
		now := s.now().UTC()
		current.Status = StatusPosted
		current.PostedBy = &actorID
		current.PostedAt = &now
		current.UpdatedAt = now
		if err := tx.UpdateStatus(ctx, current); err != nil {
			return err
		}
		entry = current
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.invalidate(ctx, tenantID)
	s.record(ctx, tenantID, actorID, "journal.post", entry, nil)
	return entry, nil
}

// DeleteJournalEntry soft deletes an entry that is still DRAFT.
func (s *Service) DeleteJournalEntry(ctx context.Context, tenantID, id int64) error {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, statusDeleted) {
			return &shared.StatusError{Action: "deleted", Required: string(StatusDraft), Actual: string(current.Status)}
		}
		entry = current
		return tx.SoftDelete(ctx, tenantID, id, s.now().UTC())
	})
	if err != nil {
		return err
	}
	s.record(ctx, tenantID, internalShared.ActorFromContext(ctx), "journal.delete", entry, nil)
	return nil
}

// ReverseJournalEntry cancels a POSTED entry with a POSTED mirror entry and
// marks the original REVERSED, in one transaction.
func (s *Service) ReverseJournalEntry(ctx context.Context, tenantID, id, actorID int64, memo string) (JournalEntry, error) {
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !CanTransition(original.Status, StatusReversed) {
			return &shared.StatusError{Action: "reversed", Required: string(StatusPosted), Actual: string(original.Status)}
		}
		now := s.now().UTC()
		lines := reverseLines(original.Lines)
		debit, credit := original.TotalCredit, original.TotalDebit
		if err := CheckBalance(debit, credit); err != nil {
			return err
		}
		number, err := tx.NextEntryNumber(ctx, tenantID, now)
		if err != nil {
			return err
		}
		refType, refID := ReferenceJournalEntry, original.EntryNumber
		inserted, err := tx.InsertEntry(ctx, JournalEntry{
			TenantID:      tenantID,
			EntryNumber:   number,
			EntryDate:     now,
			Type:          original.Type,
			Status:        StatusPosted,
			TotalDebit:    debit,
			TotalCredit:   credit,
			ReferenceType: &refType,
			ReferenceID:   &refID,
			Description:   defaultReversalMemo(memo, original.EntryNumber),
			CreatedBy:     actorID,
			PostedBy:      &actorID,
			PostedAt:      &now,
			ReversalOfID:  &original.ID,
			CreatedAt:     now,
			UpdatedAt:     now,
			Lines:         lines,
		})
		if err != nil {
			return err
		}
		original.Status = StatusReversed
		original.ReversedBy = &actorID
		original.ReversedAt = &now
		original.UpdatedAt = now
		if err := tx.UpdateStatus(ctx, original); err != nil {
			return err
		}
		reversal = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	s.invalidate(ctx, tenantID)
	s.record(ctx, tenantID, actorID, "journal.reverse", reversal, map[string]any{"reversal_of": id})
	return reversal, nil
}

// AccountBalances returns per-account posted totals as of the given date.
func (s *Service) AccountBalances(ctx context.Context, tenantID int64, asOf time.Time) ([]AccountBalance, error) {
	if s.cache == nil {
		return s.repo.AccountBalances(ctx, tenantID, asOf)
	}
	key, err := s.cache.BuildKey(ctx, balanceNamespace(tenantID), asOf.Format("2006-01-02"))
	if err != nil {
		s.logger.Warn("balance cache key", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
		return s.repo.AccountBalances(ctx, tenantID, asOf)
	}
	var out []AccountBalance
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.repo.AccountBalances(ctx, tenantID, asOf)
	})
	return out, err
}

func balanceNamespace(tenantID int64) string {
	return fmt.Sprintf("journals:balances:%d", tenantID)
}

func (s *Service) invalidate(ctx context.Context, tenantID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(ctx, balanceNamespace(tenantID)); err != nil {
		s.logger.Warn("bump balance cache", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, tenantID, actorID int64, action string, entry JournalEntry, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta["number"] = entry.EntryNumber
	meta["status"] = entry.Status
	if entry.ReferenceType != nil {
		meta["reference_type"] = *entry.ReferenceType
	}
	if entry.ReferenceID != nil {
		meta["reference_id"] = *entry.ReferenceID
	}
	_ = s.audit.Record(ctx, internalShared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "journal_entry",
		EntityID: fmt.Sprintf("%d", entry.ID),
		Meta:     meta,
		At:       s.now(),
	})
}

func reverseLines(lines []JournalLine) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for i, line := range lines {
		out = append(out, JournalLine{
			LineNumber:   i + 1,
			AccountID:    line.AccountID,
			AccountCode:  line.AccountCode,
			Description:  line.Description,
			DebitAmount:  line.CreditAmount,
			CreditAmount: line.DebitAmount,
			PartnerType:  line.PartnerType,
			PartnerID:    line.PartnerID,
		})
	}
	return out
}

func defaultReversalMemo(memo, number string) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of %s", number)
}
