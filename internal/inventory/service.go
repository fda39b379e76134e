package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sao-erp/sao-erp/internal/shared"
)

var validate = validator.New()

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetBalance(ctx context.Context, tenantID, productID, warehouseID int64) (Balance, error)
	ListBatches(ctx context.Context, tenantID, productID, warehouseID int64, includeDepleted bool) ([]Batch, error)
	GetTransaction(ctx context.Context, tenantID, id int64) (Transaction, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against confirming the same transaction twice concurrently.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	events      EventHandler
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. audit, idempotency and events may be nil.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort, events EventHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idem, events: events, logger: logger, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetOrCreateBalance returns the balance row, inserting a zero row when missing.
func (s *Service) GetOrCreateBalance(ctx context.Context, tenantID, productID, warehouseID int64) (Balance, error) {
	var out Balance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.EnsureBalanceForUpdate(ctx, tenantID, productID, warehouseID)
		out = b
		return err
	})
	return out, err
}

// GetBalance reads a balance; a missing row is reported as zero stock.
func (s *Service) GetBalance(ctx context.Context, tenantID, productID, warehouseID int64) (Balance, error) {
	b, err := s.repo.GetBalance(ctx, tenantID, productID, warehouseID)
	if errors.Is(err, ErrBalanceNotFound) {
		return Balance{TenantID: tenantID, ProductID: productID, WarehouseID: warehouseID}, nil
	}
	return b, err
}

// AverageCost is the current moving average unit cost, zero when no stock was ever received.
func (s *Service) AverageCost(ctx context.Context, tenantID, productID, warehouseID int64) (decimal.Decimal, error) {
	b, err := s.GetBalance(ctx, tenantID, productID, warehouseID)
	if err != nil {
		return decimal.Zero, err
	}
	return b.AverageCost, nil
}

// ListBatches lists batches oldest first.
func (s *Service) ListBatches(ctx context.Context, tenantID, productID, warehouseID int64, includeDepleted bool) ([]Batch, error) {
	return s.repo.ListBatches(ctx, tenantID, productID, warehouseID, includeDepleted)
}

// GetTransaction loads a transaction with items.
func (s *Service) GetTransaction(ctx context.Context, tenantID, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, tenantID, id)
}

// CreateTransaction stores a draft transaction. Stock is untouched until confirmation.
func (s *Service) CreateTransaction(ctx context.Context, tenantID int64, input CreateTransactionInput) (Transaction, error) {
	if tenantID <= 0 {
		return Transaction{}, shared.ErrTenantRequired
	}
	if err := validate.Struct(input); err != nil {
		return Transaction{}, err
	}
	if input.Type == TransactionTypeTransfer {
		if input.DestWarehouseID == nil || *input.DestWarehouseID == input.WarehouseID {
			return Transaction{}, ErrInvalidTransfer
		}
	} else {
		input.DestWarehouseID = nil
	}
	for i, item := range input.Items {
		if err := checkItem(input.Type, item); err != nil {
			return Transaction{}, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	code := strings.TrimSpace(input.Code)
	if code == "" {
		code = fmt.Sprintf("%s-%s", input.Type, strings.ToUpper(uuid.NewString()[:8]))
	}
	now := s.now().UTC()
	header := Transaction{
		TenantID:        tenantID,
		Code:            code,
		Type:            input.Type,
		Status:          TransactionStatusDraft,
		WarehouseID:     input.WarehouseID,
		DestWarehouseID: input.DestWarehouseID,
		Note:            input.Note,
		CreatedBy:       input.CreatedBy,
		CreatedAt:       now,
	}
	for i, item := range input.Items {
		header.Items = append(header.Items, TransactionItem{
			LineNumber: i + 1,
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitCost:   item.UnitCost,
			TotalCost:  item.Quantity.Mul(item.UnitCost),
		})
	}
	var created Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, wh := range []*int64{&input.WarehouseID, input.DestWarehouseID} {
			if wh == nil {
				continue
			}
			ok, err := tx.WarehouseExists(ctx, tenantID, *wh)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %d", ErrWarehouseNotFound, *wh)
			}
		}
		var err error
		created, err = tx.InsertTransaction(ctx, header)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	s.record(ctx, tenantID, input.CreatedBy, "inventory.transaction.create", created.ID, map[string]any{
		"code": created.Code,
		"type": created.Type,
	})
	return created, nil
}

func checkItem(typ TransactionType, item ItemInput) error {
	if typ == TransactionTypeAdjust {
		if item.Quantity.IsZero() {
			return ErrInvalidQuantity
		}
	} else if !item.Quantity.IsPositive() {
		return ErrInvalidQuantity
	}
	if item.UnitCost.IsNegative() {
		return ErrInvalidUnitCost
	}
	return nil
}

// ConfirmTransaction applies a draft transaction to balances and batches in one
// database transaction. On any failure nothing is applied and the transaction stays draft.
func (s *Service) ConfirmTransaction(ctx context.Context, tenantID, id, actorID int64) (Transaction, error) {
	if tenantID <= 0 {
		return Transaction{}, shared.ErrTenantRequired
	}
	key := fmt.Sprintf("inventory:confirm:%d:%d", tenantID, id)
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return Transaction{}, s.claimError(ctx, tenantID, id, err)
		}
	}
	var (
		confirmed Transaction
		applied   []ConfirmedLine
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		t, err := tx.GetTransactionForUpdate(ctx, tenantID, id)
		if err != nil {
			return err
		}
		if !transitions.CanTransition(t.Status, TransactionStatusConfirmed) {
			return confirmStatusError(t)
		}
		now := s.now().UTC()
		m := mover{tx: tx, tenantID: tenantID, code: t.Code, now: now}
		for _, item := range t.Items {
			lines, err := m.apply(ctx, t, item)
			if err != nil {
				return fmt.Errorf("line %d: %w", item.LineNumber, err)
			}
			applied = append(applied, lines...)
		}
		t.Status = TransactionStatusConfirmed
		t.ConfirmedBy = &actorID
		t.ConfirmedAt = &now
		if err := tx.MarkConfirmed(ctx, t); err != nil {
			return err
		}
		confirmed = t
		return nil
	})
	if err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, key)
		}
		return Transaction{}, err
	}
	s.record(ctx, tenantID, actorID, "inventory.transaction.confirm", confirmed.ID, map[string]any{
		"code":  confirmed.Code,
		"type":  confirmed.Type,
		"lines": len(applied),
	})
	if s.events != nil {
		evt := TransactionConfirmedEvent{
			TenantID:      tenantID,
			TransactionID: confirmed.ID,
			Code:          confirmed.Code,
			Type:          confirmed.Type,
			ConfirmedBy:   actorID,
			ConfirmedAt:   *confirmed.ConfirmedAt,
			Lines:         applied,
		}
		if err := s.events.HandleStockConfirmed(ctx, evt); err != nil {
			s.logger.Error("inventory event handler failed",
				slog.Int64("tenant_id", tenantID),
				slog.String("code", confirmed.Code),
				slog.Any("error", err))
		}
	}
	return confirmed, nil
}

// mover applies individual stock movements inside one database transaction.
type mover struct {
	tx       TxRepository
	tenantID int64
	code     string
	now      time.Time
}

func (m mover) apply(ctx context.Context, t Transaction, item TransactionItem) ([]ConfirmedLine, error) {
	switch t.Type {
	case TransactionTypeIn, TransactionTypeReturn:
		line, err := m.inbound(ctx, item.ProductID, t.WarehouseID, item.Quantity, item.UnitCost)
		return []ConfirmedLine{line}, err
	case TransactionTypeOut:
		line, err := m.outbound(ctx, item.ProductID, t.WarehouseID, item.Quantity)
		return []ConfirmedLine{line}, err
	case TransactionTypeAdjust:
		if item.Quantity.IsNegative() {
			line, err := m.outbound(ctx, item.ProductID, t.WarehouseID, item.Quantity.Neg())
			return []ConfirmedLine{line}, err
		}
		line, err := m.inbound(ctx, item.ProductID, t.WarehouseID, item.Quantity, item.UnitCost)
		return []ConfirmedLine{line}, err
	case TransactionTypeTransfer:
		if t.DestWarehouseID == nil {
			return nil, ErrInvalidTransfer
		}
		out, err := m.outbound(ctx, item.ProductID, t.WarehouseID, item.Quantity)
		if err != nil {
			return nil, err
		}
		in, err := m.inbound(ctx, item.ProductID, *t.DestWarehouseID, item.Quantity, out.UnitCost)
		if err != nil {
			return nil, err
		}
		return []ConfirmedLine{out, in}, nil
	default:
		return nil, fmt.Errorf("inventory: unsupported transaction type %q", t.Type)
	}
}

func (m mover) inbound(ctx context.Context, productID, warehouseID int64, qty, unitCost decimal.Decimal) (ConfirmedLine, error) {
	bal, err := m.tx.EnsureBalanceForUpdate(ctx, m.tenantID, productID, warehouseID)
	if err != nil {
		return ConfirmedLine{}, err
	}
	next, err := ApplyMovement(bal, qty, unitCost)
	if err != nil {
		return ConfirmedLine{}, err
	}
	next.UpdatedAt = m.now
	if err := m.tx.UpdateBalance(ctx, next); err != nil {
		return ConfirmedLine{}, err
	}
	_, err = m.tx.InsertBatch(ctx, Batch{
		TenantID:    m.tenantID,
		ProductID:   productID,
		WarehouseID: warehouseID,
		BatchNumber: m.code,
		Quantity:    qty,
		UnitCost:    unitCost,
		TotalCost:   qty.Mul(unitCost),
		Status:      BatchStatusAvailable,
		CreatedAt:   m.now,
	})
	if err != nil {
		return ConfirmedLine{}, err
	}
	return ConfirmedLine{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    qty,
		UnitCost:    unitCost,
		Value:       qty.Mul(unitCost),
	}, nil
}

func (m mover) outbound(ctx context.Context, productID, warehouseID int64, qty decimal.Decimal) (ConfirmedLine, error) {
	bal, err := m.tx.EnsureBalanceForUpdate(ctx, m.tenantID, productID, warehouseID)
	if err != nil {
		return ConfirmedLine{}, err
	}
	next, err := ApplyMovement(bal, qty.Neg(), decimal.Zero)
	if err != nil {
		return ConfirmedLine{}, err
	}
	batches, err := m.tx.AvailableBatchesForUpdate(ctx, m.tenantID, productID, warehouseID)
	if err != nil {
		return ConfirmedLine{}, err
	}
	res, err := ConsumeFIFO(batches, qty)
	if err != nil {
		var short *InsufficientBatchError
		if errors.As(err, &short) {
			short.ProductID, short.WarehouseID = productID, warehouseID
		}
		return ConfirmedLine{}, err
	}
	for _, b := range res.Updated {
		if err := m.tx.UpdateBatch(ctx, b); err != nil {
			return ConfirmedLine{}, err
		}
	}
	next.UpdatedAt = m.now
	if err := m.tx.UpdateBalance(ctx, next); err != nil {
		return ConfirmedLine{}, err
	}
	return ConfirmedLine{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    qty.Neg(),
		UnitCost:    res.Cost.Div(qty),
		Value:       res.Cost,
	}, nil
}

func confirmStatusError(t Transaction) error {
	return &StatusError{Code: t.Code, Action: "confirmed", Required: TransactionStatusDraft, Actual: t.Status}
}

// claimError turns a lost idempotency claim into a state error once the
// transaction is no longer draft. A claim held by an in-flight confirm stays a conflict.
func (s *Service) claimError(ctx context.Context, tenantID, id int64, claimErr error) error {
	if !errors.Is(claimErr, shared.ErrIdempotencyConflict) {
		return claimErr
	}
	t, err := s.repo.GetTransaction(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if t.Status != TransactionStatusDraft {
		return confirmStatusError(t)
	}
	return claimErr
}

// ReserveStock moves quantity from available to reserved.
func (s *Service) ReserveStock(ctx context.Context, tenantID int64, input ReservationInput) (Balance, error) {
	return s.adjustReservation(ctx, tenantID, input, true)
}

// ReleaseReservation returns reserved quantity to available.
func (s *Service) ReleaseReservation(ctx context.Context, tenantID int64, input ReservationInput) (Balance, error) {
	return s.adjustReservation(ctx, tenantID, input, false)
}

func (s *Service) adjustReservation(ctx context.Context, tenantID int64, input ReservationInput, reserve bool) (Balance, error) {
	if tenantID <= 0 {
		return Balance{}, shared.ErrTenantRequired
	}
	if err := validate.Struct(input); err != nil {
		return Balance{}, err
	}
	if !input.Quantity.IsPositive() {
		return Balance{}, ErrInvalidQuantity
	}
	var out Balance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		b, err := tx.EnsureBalanceForUpdate(ctx, tenantID, input.ProductID, input.WarehouseID)
		if err != nil {
			return err
		}
		if reserve {
			if input.Quantity.GreaterThan(b.AvailableQuantity) {
				return &InsufficientStockError{
					ProductID:   input.ProductID,
					WarehouseID: input.WarehouseID,
					Requested:   input.Quantity,
					Available:   b.AvailableQuantity,
				}
			}
			b.ReservedQuantity = b.ReservedQuantity.Add(input.Quantity)
		} else {
			if input.Quantity.GreaterThan(b.ReservedQuantity) {
				return ErrReservationExceeded
			}
			b.ReservedQuantity = b.ReservedQuantity.Sub(input.Quantity)
		}
		b.AvailableQuantity = b.Quantity.Sub(b.ReservedQuantity)
		b.UpdatedAt = s.now().UTC()
		out = b
		return tx.UpdateBalance(ctx, b)
	})
	return out, err
}

func (s *Service) record(ctx context.Context, tenantID, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_transaction",
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
