package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DateCorrectionService moves invoices between business dates
type DateCorrectionService struct {
	scope      TransactionScope
	repos      Repositories
	closure    *ClosureService
	gate       *identity.PermissionGate
	recomputer *AggregateRecomputer
	cfg        serviceConfig
}

// NewDateCorrectionService creates a DateCorrectionService
func NewDateCorrectionService(
	scope TransactionScope,
	repos Repositories,
	closure *ClosureService,
	gate *identity.PermissionGate,
	recomputer *AggregateRecomputer,
	opts ...Option,
) *DateCorrectionService {
	return &DateCorrectionService{
		scope:      scope,
		repos:      repos,
		closure:    closure,
		gate:       gate,
		recomputer: recomputer,
		cfg:        newServiceConfig(opts),
	}
}

// MoveInvoiceDateRequest asks to reassign an invoice's business date
type MoveInvoiceDateRequest struct {
	InvoiceID uuid.UUID
	NewDate   valueobject.BusinessDate
	Reason    string
	Actor     identity.Actor
}

// DateCorrectionResult is the outcome of a move
type DateCorrectionResult struct {
	Invoice      *ledger.Invoice
	Correction   *ledger.DateCorrection
	OldAggregate *ledger.DailyAggregate
	NewAggregate *ledger.DailyAggregate
}

// MoveInvoiceDate reassigns an invoice to req.NewDate, keeping its time of
// day, writes an audit row and rebuilds both days' aggregates. Both the old
// and the new date must accept postings from the actor; otherwise nothing
// changes.
func (s *DateCorrectionService) MoveInvoiceDate(ctx context.Context, req MoveInvoiceDateRequest) (*DateCorrectionResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "date_correction", "move_invoice_date")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, req.InvoiceID.String(),
		telemetry.SpanAttrBusinessDate, req.NewDate.String(),
		telemetry.SpanAttrActorID, req.Actor.ID.String(),
	)

	if strings.TrimSpace(req.Reason) == "" {
		return nil, ledger.NewReasonRequiredError("Correcting a business date")
	}
	if req.NewDate.IsZero() {
		return nil, shared.NewInvalidInputError("New business date is required")
	}
	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}

	rights, err := resolveRights(ctx, s.gate, req.Actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !rights.correction {
		return nil, shared.NewPermissionDeniedError(fmt.Sprintf(
			"Moving an invoice to another date requires %s permission", identity.PermissionDateCorrection))
	}

	var result *DateCorrectionResult
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		inv, err := repos.Invoices().FindByIDForUpdate(ctx, req.InvoiceID)
		if err != nil {
			return fmt.Errorf("failed to load invoice: %w", err)
		}
		if inv == nil {
			return ledger.NewInvoiceNotFoundError(req.InvoiceID)
		}

		oldDate := inv.BusinessDate()
		if oldDate.Equal(req.NewDate) {
			return shared.NewCategorizedError(shared.CodeInvalidInput, "SAME_DATE",
				fmt.Sprintf("Invoice %s is already posted on %s", inv.Number, req.NewDate))
		}
		for _, date := range []valueobject.BusinessDate{oldDate, req.NewDate} {
			if err := s.closure.requirePosting(ctx, repos, date, rights); err != nil {
				return err
			}
		}

		now := s.cfg.now()
		if _, err := inv.MoveTo(req.NewDate, now); err != nil {
			return err
		}
		if err := repos.Invoices().SaveWithLock(ctx, inv); err != nil {
			return err
		}

		correction, err := ledger.NewDateCorrection(ledger.SourceTableInvoices, inv.ID, oldDate, req.NewDate, req.Actor.ID, req.Reason, now)
		if err != nil {
			return err
		}
		if err := repos.Corrections().Create(ctx, correction); err != nil {
			return fmt.Errorf("failed to record date correction: %w", err)
		}

		oldAgg, err := s.recomputer.recompute(ctx, repos, oldDate)
		if err != nil {
			return err
		}
		newAgg, err := s.recomputer.recompute(ctx, repos, req.NewDate)
		if err != nil {
			return err
		}

		result = &DateCorrectionResult{
			Invoice:      inv,
			Correction:   correction,
			OldAggregate: oldAgg,
			NewAggregate: newAgg,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.cfg.log(ctx).Info("Invoice business date corrected",
		zap.String("invoice_id", result.Invoice.ID.String()),
		zap.String("invoice_number", result.Invoice.Number),
		zap.String("old_date", result.Correction.OldDate.String()),
		zap.String("new_date", result.Correction.NewDate.String()),
		zap.String("actor_id", req.Actor.ID.String()),
		zap.String("reason", result.Correction.Reason))
	s.cfg.publish(ctx, ledger.NewInvoiceDateCorrectedEvent(result.Invoice, result.Correction))
	return result, nil
}

// History lists the date corrections applied to an invoice, oldest first
func (s *DateCorrectionService) History(ctx context.Context, invoiceID uuid.UUID) ([]ledger.DateCorrection, error) {
	corrections, err := s.repos.Corrections().FindByRecord(ctx, ledger.SourceTableInvoices, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list date corrections: %w", err)
	}
	return corrections, nil
}
