package ledger

import (
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypeDayClosed            = "ledger.day.closed"
	EventTypeDayReopened          = "ledger.day.reopened"
	EventTypeDayReclosed          = "ledger.day.reclosed"
	EventTypeRecoveryAllocated    = "ledger.recovery.allocated"
	EventTypeRecoveryReapplied    = "ledger.recovery.reapplied"
	EventTypeRecoveryReverted     = "ledger.recovery.reverted"
	EventTypeInvoiceDateCorrected = "ledger.invoice.date_corrected"
)

// Aggregate type names
const (
	AggregateTypeClosure      = "ClosureRecord"
	AggregateTypeCashMovement = "CashMovement"
	AggregateTypeInvoice      = "Invoice"
)

// DayClosedEvent is raised when a business date is closed and the working
// date moves on
type DayClosedEvent struct {
	shared.BaseDomainEvent
	Date            valueobject.BusinessDate `json:"date"`
	NextDate        valueobject.BusinessDate `json:"next_date"`
	ClosedBy        uuid.UUID                `json:"closed_by"`
	InvoiceCount    int64                    `json:"invoice_count"`
	InvoiceTotalDue decimal.Decimal          `json:"invoice_total_due"`
	RecoveryTotal   decimal.Decimal          `json:"recovery_total"`
}

// NewDayClosedEvent creates a DayClosedEvent
func NewDayClosedEvent(rec *ClosureRecord, actorID uuid.UUID, agg *DailyAggregate) *DayClosedEvent {
	e := &DayClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDayClosed, AggregateTypeClosure, rec.ID),
		Date:            rec.Date,
		NextDate:        rec.NextDate,
		ClosedBy:        actorID,
	}
	if agg != nil {
		e.InvoiceCount = agg.InvoiceCount
		e.InvoiceTotalDue = agg.InvoiceTotalDue
		e.RecoveryTotal = agg.RecoveryTotal
	}
	return e
}

// DayReopenedEvent is raised when a closed date is reopened for corrections
type DayReopenedEvent struct {
	shared.BaseDomainEvent
	Date       valueobject.BusinessDate `json:"date"`
	ReopenedBy uuid.UUID                `json:"reopened_by"`
	Reason     string                   `json:"reason"`
}

// NewDayReopenedEvent creates a DayReopenedEvent
func NewDayReopenedEvent(rec *ClosureRecord, actorID uuid.UUID) *DayReopenedEvent {
	return &DayReopenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDayReopened, AggregateTypeClosure, rec.ID),
		Date:            rec.Date,
		ReopenedBy:      actorID,
		Reason:          rec.ReopenReason,
	}
}

// DayReclosedEvent is raised when a reopened date is sealed again
type DayReclosedEvent struct {
	shared.BaseDomainEvent
	Date     valueobject.BusinessDate `json:"date"`
	ClosedBy uuid.UUID                `json:"closed_by"`
}

// NewDayReclosedEvent creates a DayReclosedEvent
func NewDayReclosedEvent(rec *ClosureRecord, actorID uuid.UUID) *DayReclosedEvent {
	return &DayReclosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDayReclosed, AggregateTypeClosure, rec.ID),
		Date:            rec.Date,
		ClosedBy:        actorID,
	}
}

// RecoveryEvent is raised when a recovery is allocated, re-applied or reverted
type RecoveryEvent struct {
	shared.BaseDomainEvent
	MovementID   uuid.UUID       `json:"movement_id"`
	Debtor       DebtorRef       `json:"debtor"`
	Amount       decimal.Decimal `json:"amount"`
	TotalApplied decimal.Decimal `json:"total_applied"`
	Unapplied    decimal.Decimal `json:"unapplied"`
	InvoiceCount int             `json:"invoice_count"`
	ActorID      uuid.UUID       `json:"actor_id"`
}

// NewRecoveryEvent creates a RecoveryEvent of the given type
func NewRecoveryEvent(eventType string, m *CashMovement, totalApplied, unapplied decimal.Decimal, invoiceCount int, actorID uuid.UUID) *RecoveryEvent {
	return &RecoveryEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeCashMovement, m.ID),
		MovementID:      m.ID,
		Debtor:          m.Debtor,
		Amount:          m.Amount,
		TotalApplied:    totalApplied,
		Unapplied:       unapplied,
		InvoiceCount:    invoiceCount,
		ActorID:         actorID,
	}
}

// InvoiceDateCorrectedEvent is raised when an invoice moves to another business date
type InvoiceDateCorrectedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID                `json:"invoice_id"`
	InvoiceNumber string                   `json:"invoice_number"`
	OldDate       valueobject.BusinessDate `json:"old_date"`
	NewDate       valueobject.BusinessDate `json:"new_date"`
	ActorID       uuid.UUID                `json:"actor_id"`
	Reason        string                   `json:"reason"`
}

// NewInvoiceDateCorrectedEvent creates an InvoiceDateCorrectedEvent
func NewInvoiceDateCorrectedEvent(inv *Invoice, c *DateCorrection) *InvoiceDateCorrectedEvent {
	return &InvoiceDateCorrectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceDateCorrected, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		OldDate:         c.OldDate,
		NewDate:         c.NewDate,
		ActorID:         c.ActorID,
		Reason:          c.Reason,
	}
}
