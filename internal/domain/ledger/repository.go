package ledger

import (
	"context"

	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Repositories return (nil, nil) when a single lookup finds nothing.
// Methods with the ForUpdate suffix take a row lock for the rest of the
// surrounding transaction. SaveWithLock compares the stored version and
// returns a CONCURRENCY_CONFLICT error when it has moved on.

// WorkingDateRepository persists the working date singleton
type WorkingDateRepository interface {
	Get(ctx context.Context) (*WorkingDate, error)
	GetForUpdate(ctx context.Context) (*WorkingDate, error)
	// InsertIfAbsent stores wd only if no working date exists yet
	InsertIfAbsent(ctx context.Context, wd *WorkingDate) error
	Save(ctx context.Context, wd *WorkingDate) error
}

// ClosureRecordRepository persists closure records
type ClosureRecordRepository interface {
	FindByDate(ctx context.Context, date valueobject.BusinessDate) (*ClosureRecord, error)
	FindByDateForUpdate(ctx context.Context, date valueobject.BusinessDate) (*ClosureRecord, error)
	// FindLatestClosedBy returns the CLOSED record most recently closed by actorID
	FindLatestClosedBy(ctx context.Context, actorID uuid.UUID) (*ClosureRecord, error)
	// FindClosedWithNextDate returns the most recent CLOSED record whose next date is nextDate
	FindClosedWithNextDate(ctx context.Context, nextDate valueobject.BusinessDate) (*ClosureRecord, error)
	// ExistsOnOrAfter reports whether any date on or after date has a record
	ExistsOnOrAfter(ctx context.Context, date valueobject.BusinessDate) (bool, error)
	// FindRange lists records with from <= date <= to, oldest first
	FindRange(ctx context.Context, from, to valueobject.BusinessDate) ([]ClosureRecord, error)
	Create(ctx context.Context, rec *ClosureRecord) error
	SaveWithLock(ctx context.Context, rec *ClosureRecord) error
}

// InvoiceRepository persists invoices
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Invoice, error)
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) ([]*Invoice, error)
	// FindOutstanding returns CREDIT invoices with a balance at or above the
	// policy epsilon, oldest first
	FindOutstanding(ctx context.Context, debtor DebtorRef, policy SettlementPolicy) ([]*Invoice, error)
	FindOutstandingForUpdate(ctx context.Context, debtor DebtorRef, policy SettlementPolicy) ([]*Invoice, error)
	// SumForDate counts invoices on date and sums their amount due
	SumForDate(ctx context.Context, date valueobject.BusinessDate) (DailyTotals, error)
	Create(ctx context.Context, inv *Invoice) error
	SaveWithLock(ctx context.Context, inv *Invoice) error
}

// CashMovementRepository persists cash movements
type CashMovementRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CashMovement, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*CashMovement, error)
	// SumForDate counts recoveries on a business date and sums their amount
	SumForDate(ctx context.Context, date valueobject.BusinessDate) (DailyTotals, error)
	Create(ctx context.Context, m *CashMovement) error
	SaveWithLock(ctx context.Context, m *CashMovement) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AllocationDetailRepository persists allocation details
type AllocationDetailRepository interface {
	FindByMovement(ctx context.Context, movementID uuid.UUID) ([]AllocationDetail, error)
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]AllocationDetail, error)
	CreateBatch(ctx context.Context, details []AllocationDetail) error
	DeleteByMovement(ctx context.Context, movementID uuid.UUID) (int64, error)
}

// DailyAggregateRepository persists daily aggregates
type DailyAggregateRepository interface {
	FindByDate(ctx context.Context, date valueobject.BusinessDate) (*DailyAggregate, error)
	Upsert(ctx context.Context, agg *DailyAggregate) error
}

// DateCorrectionRepository persists the correction audit trail
type DateCorrectionRepository interface {
	Create(ctx context.Context, c *DateCorrection) error
	FindByRecord(ctx context.Context, sourceTable string, recordID uuid.UUID) ([]DateCorrection, error)
}
