package ledger

import (
	"context"
	"fmt"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtLedger is the read model over a debtor's outstanding invoices. It
// always reads committed state; nothing is cached between calls.
type DebtLedger struct {
	repos Repositories
	cfg   serviceConfig
}

// NewDebtLedger creates a DebtLedger
func NewDebtLedger(repos Repositories, opts ...Option) *DebtLedger {
	return &DebtLedger{
		repos: repos,
		cfg:   newServiceConfig(opts),
	}
}

// OutstandingFor returns the debtor's unpaid invoices, oldest first
func (l *DebtLedger) OutstandingFor(ctx context.Context, debtor ledger.DebtorRef) ([]*ledger.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "debt_ledger", "outstanding_for")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrDebtor, debtor.String())

	if err := debtor.Validate(); err != nil {
		return nil, err
	}
	invoices, err := l.repos.Invoices().FindOutstanding(ctx, debtor, l.cfg.policy)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load outstanding invoices: %w", err)
	}
	ledger.SortFIFO(invoices)
	return invoices, nil
}

// TotalOutstanding sums the balances of OutstandingFor
func (l *DebtLedger) TotalOutstanding(ctx context.Context, debtor ledger.DebtorRef) (decimal.Decimal, error) {
	invoices, err := l.OutstandingFor(ctx, debtor)
	if err != nil {
		return decimal.Zero, err
	}
	return ledger.TotalBalance(invoices), nil
}

// ConservationReport compares an invoice's allocation details with its balance
type ConservationReport struct {
	InvoiceID        uuid.UUID
	AmountDue        decimal.Decimal
	TotalApplied     decimal.Decimal
	BalanceRemaining decimal.Decimal
	// Drift is AmountDue - (TotalApplied + BalanceRemaining); zero when the books balance
	Drift decimal.Decimal
}

// Holds reports whether applied amounts plus balance equal the amount due
func (r ConservationReport) Holds() bool {
	return r.Drift.IsZero()
}

// CheckConservation audits one invoice against its allocation details
func (l *DebtLedger) CheckConservation(ctx context.Context, invoiceID uuid.UUID) (*ConservationReport, error) {
	inv, err := l.repos.Invoices().FindByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	if inv == nil {
		return nil, ledger.NewInvoiceNotFoundError(invoiceID)
	}
	details, err := l.repos.Allocations().FindByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocation details: %w", err)
	}
	applied := decimal.Zero
	for _, d := range details {
		applied = applied.Add(d.AmountApplied)
	}
	return &ConservationReport{
		InvoiceID:        inv.ID,
		AmountDue:        inv.AmountDue,
		TotalApplied:     applied,
		BalanceRemaining: inv.BalanceRemaining,
		Drift:            inv.AmountDue.Sub(applied.Add(inv.BalanceRemaining)),
	}, nil
}
