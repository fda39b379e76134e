package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	acctshared "github.com/sao-erp/sao-erp/internal/accounting/shared"
	"github.com/sao-erp/sao-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, tenantID int64) ([]Account, error)
	FindByCode(ctx context.Context, tenantID int64, code string) (Account, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service maintains the chart of accounts.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// FindByCode resolves an account code within the tenant.
func (s *Service) FindByCode(ctx context.Context, tenantID int64, code string) (Account, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Account{}, fmt.Errorf("%w: empty code", acctshared.ErrAccountNotFound)
	}
	return s.repo.FindByCode(ctx, tenantID, code)
}

// List returns the tenant chart ordered by code.
func (s *Service) List(ctx context.Context, tenantID int64) ([]Account, error) {
	return s.repo.List(ctx, tenantID)
}

// Create adds an account after checking the hierarchy rules.
func (s *Service) Create(ctx context.Context, tenantID int64, input CreateInput) (Account, error) {
	if err := validate.Struct(input); err != nil {
		return Account{}, err
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := s.create(ctx, tx, tenantID, input)
		created = acc
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, tenantID, "account.create", created.Code, map[string]any{"type": created.Type})
	return created, nil
}

func (s *Service) create(ctx context.Context, tx TxRepository, tenantID int64, input CreateInput) (Account, error) {
	if _, err := tx.FindByCode(ctx, tenantID, input.Code); err == nil {
		return Account{}, fmt.Errorf("%w: %s", acctshared.ErrDuplicateCode, input.Code)
	} else if !errors.Is(err, acctshared.ErrAccountNotFound) {
		return Account{}, err
	}
	if input.ParentCode != nil && *input.ParentCode != "" {
		parent, err := tx.FindByCode(ctx, tenantID, *input.ParentCode)
		if err != nil {
			return Account{}, fmt.Errorf("parent: %w", err)
		}
		if parent.IsDetail {
			return Account{}, fmt.Errorf("%w: %s", acctshared.ErrParentIsDetail, parent.Code)
		}
	} else {
		input.ParentCode = nil
	}
	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	now := s.now().UTC()
	return tx.Insert(ctx, Account{
		TenantID:   tenantID,
		Code:       input.Code,
		Name:       strings.TrimSpace(input.Name),
		Type:       input.Type,
		ParentCode: input.ParentCode,
		IsDetail:   input.IsDetail,
		IsActive:   active,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// Update changes mutable attributes of an account.
func (s *Service) Update(ctx context.Context, tenantID int64, code string, input UpdateInput) (Account, error) {
	if err := validate.Struct(input); err != nil {
		return Account{}, err
	}
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.FindByCode(ctx, tenantID, code)
		if err != nil {
			return err
		}
		if err := s.apply(ctx, tx, &acc, input); err != nil {
			return err
		}
		updated = acc
		return tx.Update(ctx, acc)
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, tenantID, "account.update", updated.Code, nil)
	return updated, nil
}

func (s *Service) apply(ctx context.Context, tx TxRepository, acc *Account, input UpdateInput) error {
	if input.IsDetail != nil && *input.IsDetail && !acc.IsDetail {
		children, err := tx.CountChildren(ctx, acc.TenantID, acc.Code)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: %s cannot become a detail account", acctshared.ErrHasChildren, acc.Code)
		}
	}
	if input.ParentCode != nil {
		if err := s.reparent(ctx, tx, acc, strings.TrimSpace(*input.ParentCode)); err != nil {
			return err
		}
	}
	if input.Name != nil {
		acc.Name = strings.TrimSpace(*input.Name)
	}
	if input.Type != nil {
		acc.Type = *input.Type
	}
	if input.IsDetail != nil {
		acc.IsDetail = *input.IsDetail
	}
	if input.IsActive != nil {
		acc.IsActive = *input.IsActive
	}
	acc.UpdatedAt = s.now().UTC()
	return nil
}

// maxDepth caps the ancestor walk.
const maxDepth = 32

func (s *Service) reparent(ctx context.Context, tx TxRepository, acc *Account, code string) error {
	if code == "" {
		acc.ParentCode = nil
		return nil
	}
	if acc.ParentCode != nil && *acc.ParentCode == code {
		return nil
	}
	if code == acc.Code {
		return fmt.Errorf("%w: %s under itself", acctshared.ErrParentCycle, acc.Code)
	}
	parent, err := tx.FindByCode(ctx, acc.TenantID, code)
	if err != nil {
		return fmt.Errorf("parent: %w", err)
	}
	if parent.IsDetail {
		return fmt.Errorf("%w: %s", acctshared.ErrParentIsDetail, parent.Code)
	}
	ancestor := parent
	for depth := 0; ancestor.ParentCode != nil && depth < maxDepth; depth++ {
		if *ancestor.ParentCode == acc.Code {
			return fmt.Errorf("%w: %s is below %s", acctshared.ErrParentCycle, parent.Code, acc.Code)
		}
		if ancestor, err = tx.FindByCode(ctx, acc.TenantID, *ancestor.ParentCode); err != nil {
			return fmt.Errorf("parent: %w", err)
		}
	}
	acc.ParentCode = &parent.Code
	return nil
}

// Delete soft deletes an account that is childless and unused by journal lines.
func (s *Service) Delete(ctx context.Context, tenantID int64, code string) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		acc, err := tx.FindByCode(ctx, tenantID, code)
		if err != nil {
			return err
		}
		children, err := tx.CountChildren(ctx, tenantID, acc.Code)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: %s", acctshared.ErrHasChildren, acc.Code)
		}
		lines, err := tx.CountJournalLines(ctx, tenantID, acc.ID)
		if err != nil {
			return err
		}
		if lines > 0 {
			return fmt.Errorf("%w: %s (%d lines)", acctshared.ErrAccountInUse, acc.Code, lines)
		}
		return tx.SoftDelete(ctx, tenantID, acc.ID)
	})
	if err != nil {
		return err
	}
	s.record(ctx, tenantID, "account.delete", code, nil)
	return nil
}

// Upsert creates or updates a batch of accounts in one transaction. Rows are
// applied in the order given, so parents must precede their children. A row
// for an existing code replaces its parent too; no parent means top level.
func (s *Service) Upsert(ctx context.Context, tenantID int64, inputs []CreateInput) (int, error) {
	for i, input := range inputs {
		if err := validate.Struct(input); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i, input := range inputs {
			existing, err := tx.FindByCode(ctx, tenantID, input.Code)
			switch {
			case err == nil:
				name, typ, detail := input.Name, input.Type, input.IsDetail
				parent := ""
				if input.ParentCode != nil {
					parent = *input.ParentCode
				}
				update := UpdateInput{Name: &name, ParentCode: &parent, Type: &typ, IsDetail: &detail, IsActive: input.IsActive}
				if err := s.apply(ctx, tx, &existing, update); err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				if err := tx.Update(ctx, existing); err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
			case errors.Is(err, acctshared.ErrAccountNotFound):
				if _, err := s.create(ctx, tx, tenantID, input); err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.record(ctx, tenantID, "account.import", fmt.Sprintf("%d", tenantID), map[string]any{"rows": len(inputs)})
	return len(inputs), nil
}

func (s *Service) record(ctx context.Context, tenantID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "chart_of_accounts",
		EntityID: entityID,
		Meta:     meta,
		At:       s.now(),
	})
}
