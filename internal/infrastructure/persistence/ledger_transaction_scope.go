package persistence

import (
	"context"

	appledger "github.com/clinicpos/backend/internal/application/ledger"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormLedgerRepositories hands out ledger repositories bound to one *gorm.DB,
// either the pool or an open transaction
type GormLedgerRepositories struct {
	db *gorm.DB
}

// NewGormLedgerRepositories creates repositories over db
func NewGormLedgerRepositories(db *gorm.DB) *GormLedgerRepositories {
	return &GormLedgerRepositories{db: db}
}

// WorkingDates returns the working date repository
func (r *GormLedgerRepositories) WorkingDates() ledger.WorkingDateRepository {
	return NewGormWorkingDateRepository(r.db)
}

// Closures returns the closure record repository
func (r *GormLedgerRepositories) Closures() ledger.ClosureRecordRepository {
	return NewGormClosureRecordRepository(r.db)
}

// Invoices returns the invoice repository
func (r *GormLedgerRepositories) Invoices() ledger.InvoiceRepository {
	return NewGormInvoiceRepository(r.db)
}

// Movements returns the cash movement repository
func (r *GormLedgerRepositories) Movements() ledger.CashMovementRepository {
	return NewGormCashMovementRepository(r.db)
}

// Allocations returns the allocation detail repository
func (r *GormLedgerRepositories) Allocations() ledger.AllocationDetailRepository {
	return NewGormAllocationDetailRepository(r.db)
}

// Aggregates returns the daily aggregate repository
func (r *GormLedgerRepositories) Aggregates() ledger.DailyAggregateRepository {
	return NewGormDailyAggregateRepository(r.db)
}

// Corrections returns the date correction repository
func (r *GormLedgerRepositories) Corrections() ledger.DateCorrectionRepository {
	return NewGormDateCorrectionRepository(r.db)
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// All repository operations performed through the provided repos
// will be part of the same transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormLedgerRepositories(tx))
	})
}

var (
	_ appledger.TransactionScope = (*GormTransactionScope)(nil)
	_ appledger.Repositories     = (*GormLedgerRepositories)(nil)
)
