package telemetry

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when metrics are built without a meter
var ErrMeterNil = errors.New("telemetry: meter is nil")

// LedgerMetrics counts day-closure and recovery activity. A nil
// *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	dayTransitions  *Counter
	postingsBlocked *Counter
	recoveries      *Counter
	recoveredCents  *Counter
	unappliedCents  *Counter
	invoicesTouched *Histogram
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	var (
		m   LedgerMetrics
		err error
	)
	if m.dayTransitions, err = NewCounter(meter,
		"pos_ledger_day_transitions_total", "Day close, reopen and reclose operations", "{operations}"); err != nil {
		return nil, err
	}
	if m.postingsBlocked, err = NewCounter(meter,
		"pos_ledger_postings_blocked_total", "Postings refused by the day gate", "{postings}"); err != nil {
		return nil, err
	}
	if m.recoveries, err = NewCounter(meter,
		"pos_ledger_recoveries_total", "Debt recovery allocations and reapplications", "{recoveries}"); err != nil {
		return nil, err
	}
	if m.recoveredCents, err = NewCounter(meter,
		"pos_ledger_recovered_amount_total", "Amount applied to invoices in cents", "{cents}"); err != nil {
		return nil, err
	}
	if m.unappliedCents, err = NewCounter(meter,
		"pos_ledger_unapplied_amount_total", "Recovery amount left unapplied in cents", "{cents}"); err != nil {
		return nil, err
	}
	if m.invoicesTouched, err = NewHistogram(meter, HistogramOpts{
		Name:        "pos_ledger_invoices_per_recovery",
		Description: "Number of invoices settled or reduced by one recovery",
		Unit:        "{invoices}",
		Boundaries:  []float64{1, 2, 3, 5, 10, 20, 50},
	}); err != nil {
		return nil, err
	}
	return &m, nil
}

// RecordDayTransition counts one close, reopen or reclose.
func (m *LedgerMetrics) RecordDayTransition(ctx context.Context, operation, role string) {
	if m == nil {
		return
	}
	m.dayTransitions.Inc(ctx, AttrOperation.String(operation), AttrActorRole.String(role))
}

// RecordPostingBlocked counts a posting refused for reason.
func (m *LedgerMetrics) RecordPostingBlocked(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.postingsBlocked.Inc(ctx, AttrReason.String(reason))
}

// RecordRecovery counts one allocation walk.
func (m *LedgerMetrics) RecordRecovery(ctx context.Context, operation, debtorKind, mode string, applied, unapplied decimal.Decimal, invoices int) {
	if m == nil {
		return
	}
	kind := AttrDebtorKind.String(debtorKind)
	m.recoveries.Inc(ctx, AttrOperation.String(operation), kind, AttrPaymentMode.String(mode))
	m.recoveredCents.Add(ctx, toCents(applied), kind)
	if unapplied.IsPositive() {
		m.unappliedCents.Add(ctx, toCents(unapplied), kind)
	}
	m.invoicesTouched.Record(ctx, float64(invoices), AttrOperation.String(operation))
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}
