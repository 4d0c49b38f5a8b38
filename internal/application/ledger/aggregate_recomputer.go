package ledger

import (
	"context"
	"fmt"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// AggregateRecomputer rebuilds a date's DailyAggregate by summing everything
// posted to it. Closure and date correction share it.
type AggregateRecomputer struct {
	scope TransactionScope
	repos Repositories
	cfg   serviceConfig
}

// NewAggregateRecomputer creates an AggregateRecomputer
func NewAggregateRecomputer(scope TransactionScope, repos Repositories, opts ...Option) *AggregateRecomputer {
	return &AggregateRecomputer{
		scope: scope,
		repos: repos,
		cfg:   newServiceConfig(opts),
	}
}

// Recompute rebuilds the aggregate for date in its own transaction
func (r *AggregateRecomputer) Recompute(ctx context.Context, date valueobject.BusinessDate) (*ledger.DailyAggregate, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "daily_aggregate", "recompute")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrBusinessDate, date.String())

	var agg *ledger.DailyAggregate
	err := r.scope.Execute(ctx, func(repos Repositories) error {
		var err error
		agg, err = r.recompute(ctx, repos, date)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return agg, nil
}

// Get returns the stored aggregate for date, or nil if it was never computed
func (r *AggregateRecomputer) Get(ctx context.Context, date valueobject.BusinessDate) (*ledger.DailyAggregate, error) {
	agg, err := r.repos.Aggregates().FindByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to read daily aggregate: %w", err)
	}
	return agg, nil
}

// recompute runs under a profiling label covering both sums and the upsert
func (r *AggregateRecomputer) recompute(ctx context.Context, repos Repositories, date valueobject.BusinessDate) (agg *ledger.DailyAggregate, err error) {
	telemetry.WithOperationLabel(ctx, "recompute_daily_aggregate", func(ctx context.Context) {
		agg, err = r.sumAndStore(ctx, repos, date)
	})
	return agg, err
}

func (r *AggregateRecomputer) sumAndStore(ctx context.Context, repos Repositories, date valueobject.BusinessDate) (*ledger.DailyAggregate, error) {
	invoices, err := repos.Invoices().SumForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to sum invoices for %s: %w", date, err)
	}
	recoveries, err := repos.Movements().SumForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to sum recoveries for %s: %w", date, err)
	}

	agg := ledger.NewDailyAggregate(date, invoices, recoveries, r.cfg.now())
	if err := repos.Aggregates().Upsert(ctx, agg); err != nil {
		return nil, fmt.Errorf("failed to store daily aggregate for %s: %w", date, err)
	}

	r.cfg.log(ctx).Debug("Daily aggregate recomputed",
		zap.String("date", date.String()),
		zap.Int64("invoice_count", agg.InvoiceCount),
		zap.String("invoice_total_due", agg.InvoiceTotalDue.String()),
		zap.Int64("recovery_count", agg.RecoveryCount),
		zap.String("recovery_total", agg.RecoveryTotal.String()))
	return agg, nil
}

// recomputeIfMaterialized refreshes date only if an aggregate row already exists
func (r *AggregateRecomputer) recomputeIfMaterialized(ctx context.Context, repos Repositories, date valueobject.BusinessDate) error {
	existing, err := repos.Aggregates().FindByDate(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to read daily aggregate: %w", err)
	}
	if existing == nil {
		return nil
	}
	_, err = r.recompute(ctx, repos, date)
	return err
}
