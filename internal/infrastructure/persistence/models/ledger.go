package models

import (
	"time"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WorkingDateSingletonID is the primary key of the only working_dates row
const WorkingDateSingletonID = 1

// WorkingDateModel is the persistence model for the working date singleton.
type WorkingDateModel struct {
	ID        int                      `gorm:"primaryKey;autoIncrement:false"`
	Date      valueobject.BusinessDate `gorm:"type:date;not null"`
	UpdatedAt time.Time                `gorm:"not null"`
	UpdatedBy *uuid.UUID               `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (WorkingDateModel) TableName() string {
	return "working_dates"
}

// ToDomain converts the persistence model to a domain WorkingDate
func (m *WorkingDateModel) ToDomain() *ledger.WorkingDate {
	return &ledger.WorkingDate{
		Date:      m.Date,
		UpdatedAt: m.UpdatedAt.UTC(),
		UpdatedBy: m.UpdatedBy,
	}
}

// WorkingDateModelFromDomain creates the singleton row from a domain WorkingDate
func WorkingDateModelFromDomain(wd *ledger.WorkingDate) *WorkingDateModel {
	return &WorkingDateModel{
		ID:        WorkingDateSingletonID,
		Date:      wd.Date,
		UpdatedAt: wd.UpdatedAt,
		UpdatedBy: wd.UpdatedBy,
	}
}

// ClosureRecordModel is the persistence model for a closed business date.
type ClosureRecordModel struct {
	AggregateModel
	Date         valueobject.BusinessDate `gorm:"type:date;not null;uniqueIndex:idx_closure_records_date"`
	NextDate     valueobject.BusinessDate `gorm:"type:date;not null;index"`
	Status       ledger.ClosureStatus     `gorm:"type:varchar(20);not null;default:'CLOSED';index"`
	ClosedBy     *uuid.UUID               `gorm:"type:uuid;index"`
	ClosedAt     time.Time                `gorm:"not null"`
	ReopenedBy   *uuid.UUID               `gorm:"type:uuid"`
	ReopenedAt   *time.Time
	ReopenReason string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ClosureRecordModel) TableName() string {
	return "closure_records"
}

// ToDomain converts the persistence model to a domain ClosureRecord
func (m *ClosureRecordModel) ToDomain() *ledger.ClosureRecord {
	rec := &ledger.ClosureRecord{
		ID:           m.ID,
		Date:         m.Date,
		NextDate:     m.NextDate,
		Status:       m.Status,
		ClosedBy:     m.ClosedBy,
		ClosedAt:     m.ClosedAt.UTC(),
		ReopenedBy:   m.ReopenedBy,
		ReopenReason: m.ReopenReason,
		Version:      m.Version,
		CreatedAt:    m.CreatedAt.UTC(),
		UpdatedAt:    m.UpdatedAt.UTC(),
	}
	if m.ReopenedAt != nil {
		t := m.ReopenedAt.UTC()
		rec.ReopenedAt = &t
	}
	return rec
}

// FromDomain populates the persistence model from a domain ClosureRecord
func (m *ClosureRecordModel) FromDomain(rec *ledger.ClosureRecord) {
	m.ID = rec.ID
	m.CreatedAt = rec.CreatedAt
	m.UpdatedAt = rec.UpdatedAt
	m.Version = rec.Version
	m.Date = rec.Date
	m.NextDate = rec.NextDate
	m.Status = rec.Status
	m.ClosedBy = rec.ClosedBy
	m.ClosedAt = rec.ClosedAt
	m.ReopenedBy = rec.ReopenedBy
	m.ReopenedAt = rec.ReopenedAt
	m.ReopenReason = rec.ReopenReason
}

// ClosureRecordModelFromDomain creates a new persistence model from a domain ClosureRecord
func ClosureRecordModelFromDomain(rec *ledger.ClosureRecord) *ClosureRecordModel {
	m := &ClosureRecordModel{}
	m.FromDomain(rec)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate root.
// BusinessDate duplicates the calendar day of PostedAt so that daily sums
// and date filters can use an index.
type InvoiceModel struct {
	AggregateModel
	Number           string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_number"`
	DebtorKind       ledger.DebtorKind        `gorm:"type:varchar(10);not null;index:idx_invoices_debtor,priority:1"`
	DebtorID         uuid.UUID                `gorm:"type:uuid;not null;index:idx_invoices_debtor,priority:2"`
	Description      string                   `gorm:"type:varchar(500)"`
	AmountDue        decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	BalanceRemaining decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Status           ledger.InvoiceStatus     `gorm:"type:varchar(20);not null;default:'CREDIT';index"`
	PostedAt         time.Time                `gorm:"not null;index"`
	BusinessDate     valueobject.BusinessDate `gorm:"type:date;not null;index"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *ledger.Invoice {
	return &ledger.Invoice{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Number:            m.Number,
		Debtor:            ledger.DebtorRef{Kind: m.DebtorKind, ID: m.DebtorID},
		Description:       m.Description,
		AmountDue:         m.AmountDue,
		BalanceRemaining:  m.BalanceRemaining,
		Status:            m.Status,
		PostedAt:          m.PostedAt.UTC(),
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *ledger.Invoice) {
	m.FromDomainAggregateRoot(inv.BaseAggregateRoot)
	m.Number = inv.Number
	m.DebtorKind = inv.Debtor.Kind
	m.DebtorID = inv.Debtor.ID
	m.Description = inv.Description
	m.AmountDue = inv.AmountDue
	m.BalanceRemaining = inv.BalanceRemaining
	m.Status = inv.Status
	m.PostedAt = inv.PostedAt
	m.BusinessDate = inv.BusinessDate()
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *ledger.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// CashMovementModel is the persistence model for the CashMovement aggregate root.
type CashMovementModel struct {
	AggregateModel
	Kind         ledger.MovementKind      `gorm:"type:varchar(20);not null;default:'RECOVERY';index"`
	DebtorKind   ledger.DebtorKind        `gorm:"type:varchar(10);not null;index:idx_cash_movements_debtor,priority:1"`
	DebtorID     uuid.UUID                `gorm:"type:uuid;not null;index:idx_cash_movements_debtor,priority:2"`
	Amount       decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	Mode         ledger.PaymentMode       `gorm:"type:varchar(30);not null;default:'CASH'"`
	Reference    string                   `gorm:"type:varchar(100)"`
	ActorID      uuid.UUID                `gorm:"type:uuid;not null;index"`
	PostedAt     time.Time                `gorm:"not null"`
	BusinessDate valueobject.BusinessDate `gorm:"type:date;not null;index"`
}

// TableName returns the table name for GORM
func (CashMovementModel) TableName() string {
	return "cash_movements"
}

// ToDomain converts the persistence model to a domain CashMovement
func (m *CashMovementModel) ToDomain() *ledger.CashMovement {
	return &ledger.CashMovement{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Kind:              m.Kind,
		Debtor:            ledger.DebtorRef{Kind: m.DebtorKind, ID: m.DebtorID},
		Amount:            m.Amount,
		Mode:              m.Mode,
		Reference:         m.Reference,
		ActorID:           m.ActorID,
		PostedAt:          m.PostedAt.UTC(),
		BusinessDate:      m.BusinessDate,
	}
}

// FromDomain populates the persistence model from a domain CashMovement
func (m *CashMovementModel) FromDomain(mv *ledger.CashMovement) {
	m.FromDomainAggregateRoot(mv.BaseAggregateRoot)
	m.Kind = mv.Kind
	m.DebtorKind = mv.Debtor.Kind
	m.DebtorID = mv.Debtor.ID
	m.Amount = mv.Amount
	m.Mode = mv.Mode
	m.Reference = mv.Reference
	m.ActorID = mv.ActorID
	m.PostedAt = mv.PostedAt
	m.BusinessDate = mv.BusinessDate
}

// CashMovementModelFromDomain creates a new persistence model from a domain CashMovement
func CashMovementModelFromDomain(mv *ledger.CashMovement) *CashMovementModel {
	m := &CashMovementModel{}
	m.FromDomain(mv)
	return m
}

// AllocationDetailModel is the persistence model for one movement to invoice allocation.
type AllocationDetailModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	CashMovementID uuid.UUID       `gorm:"type:uuid;not null;index"`
	InvoiceID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	AmountApplied  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AppliedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AllocationDetailModel) TableName() string {
	return "allocation_details"
}

// ToDomain converts the persistence model to a domain AllocationDetail
func (m *AllocationDetailModel) ToDomain() ledger.AllocationDetail {
	return ledger.AllocationDetail{
		ID:             m.ID,
		CashMovementID: m.CashMovementID,
		InvoiceID:      m.InvoiceID,
		AmountApplied:  m.AmountApplied,
		AppliedAt:      m.AppliedAt.UTC(),
	}
}

// AllocationDetailModelFromDomain creates a new persistence model from a domain AllocationDetail
func AllocationDetailModelFromDomain(d ledger.AllocationDetail) AllocationDetailModel {
	return AllocationDetailModel{
		ID:             d.ID,
		CashMovementID: d.CashMovementID,
		InvoiceID:      d.InvoiceID,
		AmountApplied:  d.AmountApplied,
		AppliedAt:      d.AppliedAt,
	}
}

// DailyAggregateModel is the persistence model for the per-date totals cache.
type DailyAggregateModel struct {
	Date            valueobject.BusinessDate `gorm:"type:date;primaryKey"`
	InvoiceCount    int64                    `gorm:"not null;default:0"`
	InvoiceTotalDue decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	RecoveryCount   int64                    `gorm:"not null;default:0"`
	RecoveryTotal   decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	RecomputedAt    time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DailyAggregateModel) TableName() string {
	return "daily_aggregates"
}

// ToDomain converts the persistence model to a domain DailyAggregate
func (m *DailyAggregateModel) ToDomain() *ledger.DailyAggregate {
	return &ledger.DailyAggregate{
		Date:            m.Date,
		InvoiceCount:    m.InvoiceCount,
		InvoiceTotalDue: m.InvoiceTotalDue,
		RecoveryCount:   m.RecoveryCount,
		RecoveryTotal:   m.RecoveryTotal,
		RecomputedAt:    m.RecomputedAt.UTC(),
	}
}

// DailyAggregateModelFromDomain creates a new persistence model from a domain DailyAggregate
func DailyAggregateModelFromDomain(agg *ledger.DailyAggregate) *DailyAggregateModel {
	return &DailyAggregateModel{
		Date:            agg.Date,
		InvoiceCount:    agg.InvoiceCount,
		InvoiceTotalDue: agg.InvoiceTotalDue,
		RecoveryCount:   agg.RecoveryCount,
		RecoveryTotal:   agg.RecoveryTotal,
		RecomputedAt:    agg.RecomputedAt,
	}
}

// DateCorrectionModel is the persistence model for the append-only correction log.
type DateCorrectionModel struct {
	ID          uuid.UUID                `gorm:"type:uuid;primary_key"`
	SourceTable string                   `gorm:"type:varchar(50);not null;index:idx_date_corrections_record,priority:1"`
	RecordID    uuid.UUID                `gorm:"type:uuid;not null;index:idx_date_corrections_record,priority:2"`
	OldDate     valueobject.BusinessDate `gorm:"type:date;not null"`
	NewDate     valueobject.BusinessDate `gorm:"type:date;not null"`
	ActorID     uuid.UUID                `gorm:"type:uuid;not null"`
	Reason      string                   `gorm:"type:varchar(500);not null"`
	CreatedAt   time.Time                `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DateCorrectionModel) TableName() string {
	return "date_corrections"
}

// ToDomain converts the persistence model to a domain DateCorrection
func (m *DateCorrectionModel) ToDomain() ledger.DateCorrection {
	return ledger.DateCorrection{
		ID:          m.ID,
		SourceTable: m.SourceTable,
		RecordID:    m.RecordID,
		OldDate:     m.OldDate,
		NewDate:     m.NewDate,
		ActorID:     m.ActorID,
		Reason:      m.Reason,
		CreatedAt:   m.CreatedAt.UTC(),
	}
}

// DateCorrectionModelFromDomain creates a new persistence model from a domain DateCorrection
func DateCorrectionModelFromDomain(c *ledger.DateCorrection) *DateCorrectionModel {
	return &DateCorrectionModel{
		ID:          c.ID,
		SourceTable: c.SourceTable,
		RecordID:    c.RecordID,
		OldDate:     c.OldDate,
		NewDate:     c.NewDate,
		ActorID:     c.ActorID,
		Reason:      c.Reason,
		CreatedAt:   c.CreatedAt,
	}
}

// LedgerModels lists every ledger model, in dependency order, for AutoMigrate
func LedgerModels() []any {
	return []any{
		&WorkingDateModel{},
		&ClosureRecordModel{},
		&InvoiceModel{},
		&CashMovementModel{},
		&AllocationDetailModel{},
		&DailyAggregateModel{},
		&DateCorrectionModel{},
		&RolePermissionModel{},
	}
}
