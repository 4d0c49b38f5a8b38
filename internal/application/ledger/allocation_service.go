package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const legacyMovementWarning = "This recovery has no allocation details; only the payment record was updated and invoice balances were not re-synchronized"

// AllocationService distributes recoveries over a debtor's outstanding
// invoices, oldest first, and reverses or re-applies them
type AllocationService struct {
	scope       TransactionScope
	repos       Repositories
	workingDate *WorkingDateStore
	recomputer  *AggregateRecomputer
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	cfg         serviceConfig
}

// NewAllocationService creates an AllocationService. idempotency may be nil,
// in which case idempotency keys are ignored.
func NewAllocationService(
	scope TransactionScope,
	repos Repositories,
	workingDate *WorkingDateStore,
	recomputer *AggregateRecomputer,
	idempotency shared.IdempotencyStore,
	idemConfig shared.IdempotencyConfig,
	opts ...Option,
) *AllocationService {
	return &AllocationService{
		scope:       scope,
		repos:       repos,
		workingDate: workingDate,
		recomputer:  recomputer,
		idempotency: idempotency,
		idemConfig:  idemConfig,
		cfg:         newServiceConfig(opts),
	}
}

// AllocateRequest is a new recovery to distribute
type AllocateRequest struct {
	Debtor    ledger.DebtorRef
	Amount    decimal.Decimal
	Mode      string
	Reference string // generated when empty
	Actor     identity.Actor
	// IdempotencyKey, when set, rejects a repeat of the same request
	IdempotencyKey string
}

// ReapplyRequest edits a past recovery
type ReapplyRequest struct {
	MovementID uuid.UUID
	Amount     decimal.Decimal
	Mode       string
	Reference  string // kept when empty
	Actor      identity.Actor
}

// RevertRequest deletes a past recovery
type RevertRequest struct {
	MovementID uuid.UUID
	Actor      identity.Actor
}

// AllocationResult is the receipt-ready outcome of an allocation
type AllocationResult struct {
	MovementID         uuid.UUID
	Reference          string
	Mode               ledger.PaymentMode
	Amount             decimal.Decimal
	BusinessDate       valueobject.BusinessDate
	PostedAt           time.Time
	Debtor             ledger.DebtorRef
	Breakdown          []ledger.AllocationLine
	TotalApplied       decimal.Decimal
	Unapplied          decimal.Decimal
	DebtorPriorBalance decimal.Decimal
	DebtorNewBalance   decimal.Decimal
	// DebtsResynchronized is false when a legacy movement without details
	// was edited and invoice balances were left untouched
	DebtsResynchronized bool
	Warnings            []string
}

// RevertResult lists the balances restored by a revert
type RevertResult struct {
	MovementID    uuid.UUID
	Debtor        ledger.DebtorRef
	Restored      []ledger.AllocationLine
	TotalRestored decimal.Decimal
}

// Allocate records a recovery and applies it FIFO to the debtor's
// outstanding invoices. A debtor with no debt still gets the cash movement,
// with an empty breakdown. Any excess over the total debt stays unapplied.
func (s *AllocationService) Allocate(ctx context.Context, req AllocateRequest) (*AllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "allocate")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDebtor, req.Debtor.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrActorID, req.Actor.ID.String(),
	)

	if !req.Amount.IsPositive() {
		return nil, ledger.NewInvalidAmountError()
	}
	if err := req.Debtor.Validate(); err != nil {
		return nil, err
	}
	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}
	mode, err := ledger.NormalizePaymentMode(req.Mode)
	if err != nil {
		return nil, err
	}

	release, err := s.claimIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *AllocationResult
	var movement *ledger.CashMovement
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		wd, err := s.workingDate.load(ctx, repos)
		if err != nil {
			return err
		}
		invoices, err := repos.Invoices().FindOutstandingForUpdate(ctx, req.Debtor, s.cfg.policy)
		if err != nil {
			return fmt.Errorf("failed to lock outstanding invoices: %w", err)
		}
		prior := ledger.TotalBalance(invoices)

		now := s.cfg.now()
		movement, err = ledger.NewRecoveryMovement(req.Debtor, req.Amount, mode, req.Reference, req.Actor.ID, wd.Date, now)
		if err != nil {
			return err
		}
		if err := repos.Movements().Create(ctx, movement); err != nil {
			return fmt.Errorf("failed to create cash movement: %w", err)
		}

		walk, err := s.applyWalk(ctx, repos, movement, invoices, req.Amount, now)
		if err != nil {
			return err
		}
		if err := s.recomputer.recomputeIfMaterialized(ctx, repos, movement.BusinessDate); err != nil {
			return err
		}
		result = s.newAllocationResult(movement, walk, invoices, prior)
		return nil
	})
	if err != nil {
		release()
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logAllocation(ctx, "Recovery allocated", result, req.Actor)
	s.cfg.metrics.RecordRecovery(ctx, "allocate", string(result.Debtor.Kind), string(result.Mode),
		result.TotalApplied, result.Unapplied, len(result.Breakdown))
	s.cfg.publish(ctx, ledger.NewRecoveryEvent(ledger.EventTypeRecoveryAllocated, movement,
		result.TotalApplied, result.Unapplied, len(result.Breakdown), req.Actor.ID))
	return result, nil
}

// RevertAndReapply edits a past recovery. Its details are reverted first, so
// the new amount is walked against the ledger as it stood before the
// recovery; new details attach to the same movement.
func (s *AllocationService) RevertAndReapply(ctx context.Context, req ReapplyRequest) (*AllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "revert_and_reapply")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrMovementID, req.MovementID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrActorID, req.Actor.ID.String(),
	)

	if !req.Amount.IsPositive() {
		return nil, ledger.NewInvalidAmountError()
	}
	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}
	var mode ledger.PaymentMode
	if strings.TrimSpace(req.Mode) != "" {
		m, err := ledger.NormalizePaymentMode(req.Mode)
		if err != nil {
			return nil, err
		}
		mode = m
	}

	var result *AllocationResult
	var movement *ledger.CashMovement
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		movement, err = repos.Movements().FindByIDForUpdate(ctx, req.MovementID)
		if err != nil {
			return fmt.Errorf("failed to load cash movement: %w", err)
		}
		if movement == nil {
			return ledger.NewMovementNotFoundError(req.MovementID)
		}

		details, err := repos.Allocations().FindByMovement(ctx, movement.ID)
		if err != nil {
			return fmt.Errorf("failed to load allocation details: %w", err)
		}

		now := s.cfg.now()
		if len(details) == 0 {
			result, err = s.amendLegacy(ctx, repos, movement, req, mode, now)
			return err
		}

		if _, err := s.revertDetails(ctx, repos, details, now); err != nil {
			return err
		}
		if err := movement.Amend(req.Amount, mode, req.Reference, now); err != nil {
			return err
		}
		if err := repos.Movements().SaveWithLock(ctx, movement); err != nil {
			return err
		}

		invoices, err := repos.Invoices().FindOutstandingForUpdate(ctx, movement.Debtor, s.cfg.policy)
		if err != nil {
			return fmt.Errorf("failed to lock outstanding invoices: %w", err)
		}
		prior := ledger.TotalBalance(invoices)

		walk, err := s.applyWalk(ctx, repos, movement, invoices, req.Amount, now)
		if err != nil {
			return err
		}
		if err := s.recomputer.recomputeIfMaterialized(ctx, repos, movement.BusinessDate); err != nil {
			return err
		}
		result = s.newAllocationResult(movement, walk, invoices, prior)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !result.DebtsResynchronized {
		s.cfg.log(ctx).Warn("Legacy recovery edited without re-synchronizing debts",
			zap.String("movement_id", movement.ID.String()),
			zap.String("amount", movement.Amount.String()),
			zap.String("actor_id", req.Actor.ID.String()))
	} else {
		s.logAllocation(ctx, "Recovery re-applied", result, req.Actor)
		s.cfg.metrics.RecordRecovery(ctx, "reapply", string(result.Debtor.Kind), string(result.Mode),
			result.TotalApplied, result.Unapplied, len(result.Breakdown))
	}
	s.cfg.publish(ctx, ledger.NewRecoveryEvent(ledger.EventTypeRecoveryReapplied, movement,
		result.TotalApplied, result.Unapplied, len(result.Breakdown), req.Actor.ID))
	return result, nil
}

// amendLegacy updates a movement that never produced allocation details.
// Invoice balances are left alone.
func (s *AllocationService) amendLegacy(
	ctx context.Context,
	repos Repositories,
	movement *ledger.CashMovement,
	req ReapplyRequest,
	mode ledger.PaymentMode,
	now time.Time,
) (*AllocationResult, error) {
	if err := movement.Amend(req.Amount, mode, req.Reference, now); err != nil {
		return nil, err
	}
	if err := repos.Movements().SaveWithLock(ctx, movement); err != nil {
		return nil, err
	}
	if err := s.recomputer.recomputeIfMaterialized(ctx, repos, movement.BusinessDate); err != nil {
		return nil, err
	}
	invoices, err := repos.Invoices().FindOutstanding(ctx, movement.Debtor, s.cfg.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load outstanding invoices: %w", err)
	}
	balance := ledger.TotalBalance(invoices)
	return &AllocationResult{
		MovementID:          movement.ID,
		Reference:           movement.Reference,
		Mode:                movement.Mode,
		Amount:              movement.Amount,
		BusinessDate:        movement.BusinessDate,
		PostedAt:            movement.PostedAt,
		Debtor:              movement.Debtor,
		Breakdown:           []ledger.AllocationLine{},
		TotalApplied:        decimal.Zero,
		Unapplied:           decimal.Zero,
		DebtorPriorBalance:  balance,
		DebtorNewBalance:    balance,
		DebtsResynchronized: false,
		Warnings:            []string{legacyMovementWarning},
	}, nil
}

// Revert deletes a past recovery after restoring every balance it reduced.
// A second revert of the same movement fails with NOT_FOUND.
func (s *AllocationService) Revert(ctx context.Context, req RevertRequest) (*RevertResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "revert")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrMovementID, req.MovementID.String(),
		telemetry.SpanAttrActorID, req.Actor.ID.String(),
	)

	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}

	var result *RevertResult
	var movement *ledger.CashMovement
	err := s.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		movement, err = repos.Movements().FindByIDForUpdate(ctx, req.MovementID)
		if err != nil {
			return fmt.Errorf("failed to load cash movement: %w", err)
		}
		if movement == nil {
			return ledger.NewMovementNotFoundError(req.MovementID)
		}

		details, err := repos.Allocations().FindByMovement(ctx, movement.ID)
		if err != nil {
			return fmt.Errorf("failed to load allocation details: %w", err)
		}
		restored, err := s.revertDetails(ctx, repos, details, s.cfg.now())
		if err != nil {
			return err
		}
		if err := repos.Movements().Delete(ctx, movement.ID); err != nil {
			return fmt.Errorf("failed to delete cash movement: %w", err)
		}
		if err := s.recomputer.recomputeIfMaterialized(ctx, repos, movement.BusinessDate); err != nil {
			return err
		}

		total := decimal.Zero
		for _, line := range restored {
			total = total.Add(line.Applied)
		}
		result = &RevertResult{
			MovementID:    movement.ID,
			Debtor:        movement.Debtor,
			Restored:      restored,
			TotalRestored: total,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.cfg.log(ctx).Info("Recovery reverted",
		zap.String("movement_id", movement.ID.String()),
		zap.String("debtor", movement.Debtor.String()),
		zap.String("restored", result.TotalRestored.String()),
		zap.Int("invoice_count", len(result.Restored)),
		zap.String("actor_id", req.Actor.ID.String()))
	s.cfg.publish(ctx, ledger.NewRecoveryEvent(ledger.EventTypeRecoveryReverted, movement,
		decimal.Zero, decimal.Zero, len(result.Restored), req.Actor.ID))
	return result, nil
}

// Receipt rebuilds the breakdown of an existing recovery for re-printing.
// Balances are as of now; DebtorPriorBalance is the current debt plus what
// this recovery applied.
func (s *AllocationService) Receipt(ctx context.Context, movementID uuid.UUID) (*AllocationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "receipt")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrMovementID, movementID.String())

	movement, err := s.repos.Movements().FindByID(ctx, movementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cash movement: %w", err)
	}
	if movement == nil {
		return nil, ledger.NewMovementNotFoundError(movementID)
	}
	details, err := s.repos.Allocations().FindByMovement(ctx, movementID)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocation details: %w", err)
	}
	invoices, err := s.repos.Invoices().FindByIDs(ctx, detailInvoiceIDs(details))
	if err != nil {
		return nil, fmt.Errorf("failed to load invoices: %w", err)
	}
	byID := make(map[uuid.UUID]*ledger.Invoice, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
	}

	lines := make([]ledger.AllocationLine, 0, len(details))
	applied := decimal.Zero
	for _, d := range details {
		line := ledger.AllocationLine{InvoiceID: d.InvoiceID, Applied: d.AmountApplied}
		if inv, ok := byID[d.InvoiceID]; ok {
			line.InvoiceNumber = inv.Number
			line.PostedAt = inv.PostedAt
			line.Description = inv.Description
			line.AmountDue = inv.AmountDue
			line.BalanceAfter = inv.BalanceRemaining
			line.BalanceBefore = inv.BalanceRemaining.Add(d.AmountApplied)
			line.Paid = inv.Status == ledger.InvoiceStatusPaid
		}
		lines = append(lines, line)
		applied = applied.Add(d.AmountApplied)
	}

	outstanding, err := s.repos.Invoices().FindOutstanding(ctx, movement.Debtor, s.cfg.policy)
	if err != nil {
		return nil, fmt.Errorf("failed to load outstanding invoices: %w", err)
	}
	current := ledger.TotalBalance(outstanding)

	result := &AllocationResult{
		MovementID:          movement.ID,
		Reference:           movement.Reference,
		Mode:                movement.Mode,
		Amount:              movement.Amount,
		BusinessDate:        movement.BusinessDate,
		PostedAt:            movement.PostedAt,
		Debtor:              movement.Debtor,
		Breakdown:           lines,
		TotalApplied:        applied,
		Unapplied:           movement.Amount.Sub(applied),
		DebtorPriorBalance:  current.Add(applied),
		DebtorNewBalance:    current,
		DebtsResynchronized: len(details) > 0,
	}
	if len(details) == 0 {
		result.Warnings = []string{"This recovery has no allocation details"}
	}
	return result, nil
}

// applyWalk runs the FIFO walk for movement and persists touched invoices
// and the new details
func (s *AllocationService) applyWalk(
	ctx context.Context,
	repos Repositories,
	movement *ledger.CashMovement,
	invoices []*ledger.Invoice,
	amount decimal.Decimal,
	now time.Time,
) (*ledger.AllocationWalk, error) {
	walk, err := ledger.AllocateFIFO(movement.ID, invoices, amount, s.cfg.policy, now)
	if err != nil {
		return nil, err
	}
	for _, inv := range walk.Touched {
		if err := repos.Invoices().SaveWithLock(ctx, inv); err != nil {
			return nil, err
		}
	}
	if len(walk.Details) > 0 {
		if err := repos.Allocations().CreateBatch(ctx, walk.Details); err != nil {
			return nil, fmt.Errorf("failed to store allocation details: %w", err)
		}
	}
	return walk, nil
}

// revertDetails restores each referenced invoice's balance and deletes the
// details. Returns one line per restored detail.
func (s *AllocationService) revertDetails(
	ctx context.Context,
	repos Repositories,
	details []ledger.AllocationDetail,
	now time.Time,
) ([]ledger.AllocationLine, error) {
	if len(details) == 0 {
		return []ledger.AllocationLine{}, nil
	}
	invoices, err := repos.Invoices().FindByIDsForUpdate(ctx, detailInvoiceIDs(details))
	if err != nil {
		return nil, fmt.Errorf("failed to lock invoices: %w", err)
	}
	byID := make(map[uuid.UUID]*ledger.Invoice, len(invoices))
	for _, inv := range invoices {
		byID[inv.ID] = inv
	}

	lines := make([]ledger.AllocationLine, 0, len(details))
	touched := make(map[uuid.UUID]*ledger.Invoice)
	for _, d := range details {
		inv, ok := byID[d.InvoiceID]
		if !ok {
			return nil, shared.NewInvalidStateError(fmt.Sprintf(
				"Allocation detail %s references missing invoice %s", d.ID, d.InvoiceID))
		}
		before := inv.BalanceRemaining
		if err := inv.RestorePayment(d.AmountApplied, s.cfg.policy, now); err != nil {
			return nil, err
		}
		touched[inv.ID] = inv
		lines = append(lines, ledger.AllocationLine{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			PostedAt:      inv.PostedAt,
			Description:   inv.Description,
			AmountDue:     inv.AmountDue,
			Applied:       d.AmountApplied,
			BalanceBefore: before,
			BalanceAfter:  inv.BalanceRemaining,
			Paid:          inv.Status == ledger.InvoiceStatusPaid,
		})
	}

	for _, inv := range invoices {
		if _, ok := touched[inv.ID]; !ok {
			continue
		}
		if err := repos.Invoices().SaveWithLock(ctx, inv); err != nil {
			return nil, err
		}
	}
	if _, err := repos.Allocations().DeleteByMovement(ctx, details[0].CashMovementID); err != nil {
		return nil, fmt.Errorf("failed to delete allocation details: %w", err)
	}
	return lines, nil
}

// claimIdempotencyKey marks key as in use. The returned func releases the
// claim and is called when the guarded operation fails.
func (s *AllocationService) claimIdempotencyKey(ctx context.Context, key string) (func(), error) {
	key = strings.TrimSpace(key)
	if key == "" || s.idempotency == nil || !s.idemConfig.Enabled {
		return func() {}, nil
	}
	storeKey := "recovery:" + key
	claimed, err := s.idempotency.MarkProcessed(ctx, storeKey, s.idemConfig.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if !claimed {
		return nil, shared.NewDomainError(shared.CodeDuplicateRequest,
			fmt.Sprintf("A recovery with idempotency key %q was already submitted", key))
	}
	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), storeKey); err != nil {
			s.cfg.log(ctx).Warn("Failed to release idempotency key",
				zap.String("key", key),
				zap.Error(err))
		}
	}, nil
}

func (s *AllocationService) logAllocation(ctx context.Context, msg string, r *AllocationResult, actor identity.Actor) {
	s.cfg.log(ctx).Info(msg,
		zap.String("movement_id", r.MovementID.String()),
		zap.String("debtor", r.Debtor.String()),
		zap.String("amount", r.Amount.String()),
		zap.String("applied", r.TotalApplied.String()),
		zap.Int("invoice_count", len(r.Breakdown)),
		zap.String("business_date", r.BusinessDate.String()),
		zap.String("actor_id", actor.ID.String()))
	if r.Unapplied.IsPositive() {
		s.cfg.log(ctx).Warn("Recovery exceeds outstanding debt; excess left unapplied",
			zap.String("movement_id", r.MovementID.String()),
			zap.String("debtor", r.Debtor.String()),
			zap.String("unapplied", r.Unapplied.String()))
	}
}

// newAllocationResult builds the result after the walk mutated invoices.
// The new balance counts only invoices still outstanding, so remainders
// under the settlement epsilon drop out.
func (s *AllocationService) newAllocationResult(
	m *ledger.CashMovement,
	walk *ledger.AllocationWalk,
	invoices []*ledger.Invoice,
	prior decimal.Decimal,
) *AllocationResult {
	newBalance := decimal.Zero
	for _, inv := range invoices {
		if inv.IsOutstanding(s.cfg.policy) {
			newBalance = newBalance.Add(inv.BalanceRemaining)
		}
	}
	return &AllocationResult{
		MovementID:          m.ID,
		Reference:           m.Reference,
		Mode:                m.Mode,
		Amount:              m.Amount,
		BusinessDate:        m.BusinessDate,
		PostedAt:            m.PostedAt,
		Debtor:              m.Debtor,
		Breakdown:           walk.Lines,
		TotalApplied:        walk.TotalApplied,
		Unapplied:           walk.Unapplied,
		DebtorPriorBalance:  prior,
		DebtorNewBalance:    newBalance,
		DebtsResynchronized: true,
	}
}

func detailInvoiceIDs(details []ledger.AllocationDetail) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(details))
	ids := make([]uuid.UUID, 0, len(details))
	for _, d := range details {
		if _, ok := seen[d.InvoiceID]; ok {
			continue
		}
		seen[d.InvoiceID] = struct{}{}
		ids = append(ids, d.InvoiceID)
	}
	return ids
}
