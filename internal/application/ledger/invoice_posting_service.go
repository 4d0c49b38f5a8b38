package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// InvoicePostingService is the sales posting path. It creates invoices and
// refuses dates the actor may not post to.
type InvoicePostingService struct {
	scope      TransactionScope
	repos      Repositories
	closure    *ClosureService
	gate       *identity.PermissionGate
	recomputer *AggregateRecomputer
	cfg        serviceConfig
}

// NewInvoicePostingService creates an InvoicePostingService
func NewInvoicePostingService(
	scope TransactionScope,
	repos Repositories,
	closure *ClosureService,
	gate *identity.PermissionGate,
	recomputer *AggregateRecomputer,
	opts ...Option,
) *InvoicePostingService {
	return &InvoicePostingService{
		scope:      scope,
		repos:      repos,
		closure:    closure,
		gate:       gate,
		recomputer: recomputer,
		cfg:        newServiceConfig(opts),
	}
}

// PostInvoiceRequest is a new sale against a debtor
type PostInvoiceRequest struct {
	Number      string // generated when empty
	Debtor      ledger.DebtorRef
	Description string
	AmountDue   decimal.Decimal
	// BusinessDate defaults to the working date
	BusinessDate valueobject.BusinessDate
	Actor        identity.Actor
}

// Post creates an invoice. Any date other than the working date must pass
// CanPost, and its aggregate is refreshed when it has one.
func (s *InvoicePostingService) Post(ctx context.Context, req PostInvoiceRequest) (*ledger.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "post")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDebtor, req.Debtor.String(),
		telemetry.SpanAttrAmount, req.AmountDue.String(),
		telemetry.SpanAttrActorID, req.Actor.ID.String(),
	)

	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}
	rights, err := resolveRights(ctx, s.gate, req.Actor)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var inv *ledger.Invoice
	err = s.scope.Execute(ctx, func(repos Repositories) error {
		wd, err := s.closure.workingDate.load(ctx, repos)
		if err != nil {
			return err
		}
		date := req.BusinessDate
		if date.IsZero() {
			date = wd.Date
		}
		backdated := !date.Equal(wd.Date)
		if backdated {
			if err := s.closure.requirePosting(ctx, repos, date, rights); err != nil {
				return err
			}
		}

		number := strings.TrimSpace(req.Number)
		if number == "" {
			number = ledger.GenerateInvoiceNumber(date)
		}
		inv, err = ledger.NewInvoice(number, req.Debtor, req.Description, req.AmountDue, date.WithTimeOf(s.cfg.now()), s.cfg.policy)
		if err != nil {
			return err
		}
		if err := repos.Invoices().Create(ctx, inv); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}
		return s.recomputer.recomputeIfMaterialized(ctx, repos, date)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.cfg.log(ctx).Info("Invoice posted",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.Number),
		zap.String("debtor", inv.Debtor.String()),
		zap.String("amount_due", inv.AmountDue.String()),
		zap.String("business_date", inv.BusinessDate().String()))
	return inv, nil
}

// Get returns an invoice by ID
func (s *InvoicePostingService) Get(ctx context.Context, id uuid.UUID) (*ledger.Invoice, error) {
	inv, err := s.repos.Invoices().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if inv == nil {
		return nil, ledger.NewInvoiceNotFoundError(id)
	}
	return inv, nil
}
