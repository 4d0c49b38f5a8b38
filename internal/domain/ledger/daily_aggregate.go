package ledger

import (
	"time"

	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DailyTotals is a count and a sum over one business date
type DailyTotals struct {
	Count int64
	Total decimal.Decimal
}

// DailyAggregate caches the totals of one business date. It is always
// rebuilt from a full re-sum, never adjusted by deltas.
type DailyAggregate struct {
	Date            valueobject.BusinessDate
	InvoiceCount    int64
	InvoiceTotalDue decimal.Decimal
	RecoveryCount   int64
	RecoveryTotal   decimal.Decimal
	RecomputedAt    time.Time
}

// NewDailyAggregate builds the aggregate for date from freshly summed totals
func NewDailyAggregate(date valueobject.BusinessDate, invoices, recoveries DailyTotals, now time.Time) *DailyAggregate {
	return &DailyAggregate{
		Date:            date,
		InvoiceCount:    invoices.Count,
		InvoiceTotalDue: invoices.Total,
		RecoveryCount:   recoveries.Count,
		RecoveryTotal:   recoveries.Total,
		RecomputedAt:    now.UTC(),
	}
}
