package ledger

import (
	"context"

	"github.com/clinicpos/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to the ledger repositories.
// Everything done through the repositories handed to fn commits or rolls back
// together.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to every ledger repository. Inside
// TransactionScope.Execute they all share one transaction; outside, each
// call runs on its own.
type Repositories interface {
	WorkingDates() ledger.WorkingDateRepository
	Closures() ledger.ClosureRecordRepository
	Invoices() ledger.InvoiceRepository
	Movements() ledger.CashMovementRepository
	Allocations() ledger.AllocationDetailRepository
	Aggregates() ledger.DailyAggregateRepository
	Corrections() ledger.DateCorrectionRepository
}
