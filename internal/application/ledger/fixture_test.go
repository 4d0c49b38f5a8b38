package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	appledger "github.com/clinicpos/backend/internal/application/ledger"
	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/cache"
	"github.com/clinicpos/backend/internal/infrastructure/persistence"
	"github.com/clinicpos/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// today is the calendar date the fixture clock starts on
var today = valueobject.MustParseBusinessDate("2024-03-20")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	repos  appledger.Repositories
	clock  *fakeClock
	events *testutil.MockEventHandler
	grants identity.StaticGrants
	policy ledger.SettlementPolicy

	workingDate *appledger.WorkingDateStore
	recomputer  *appledger.AggregateRecomputer
	closure     *appledger.ClosureService
	posting     *appledger.InvoicePostingService
	allocation  *appledger.AllocationService
	corrections *appledger.DateCorrectionService
	debts       *appledger.DebtLedger
	idempotency *cache.InMemoryIdempotencyStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureOn(t, testutil.NewLedgerDB(t))
}

// newFixtureOn wires every ledger service against db
func newFixtureOn(t *testing.T, db *gorm.DB) *fixture {
	t.Helper()

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		db:     db,
		repos:  persistence.NewGormLedgerRepositories(db),
		clock:  &fakeClock{now: today.Time().Add(9 * time.Hour)},
		events: testutil.NewMockEventHandler(),
		grants: identity.StaticGrants{},
		policy: ledger.DefaultSettlementPolicy(),
	}
	scope := persistence.NewGormTransactionScope(db)
	gate := identity.NewPermissionGate(f.grants, identity.RoleCodeAdmin)
	opts := []appledger.Option{
		appledger.WithClock(f.clock.Now),
		appledger.WithLocation(time.UTC),
		appledger.WithEventPublisher(f.events),
		appledger.WithSettlementPolicy(f.policy),
	}

	f.idempotency = cache.NewInMemoryIdempotencyStore(0)
	t.Cleanup(func() { _ = f.idempotency.Close() })

	f.workingDate = appledger.NewWorkingDateStore(f.repos, opts...)
	f.recomputer = appledger.NewAggregateRecomputer(scope, f.repos, opts...)
	f.closure = appledger.NewClosureService(scope, f.repos, f.workingDate, gate, f.recomputer, opts...)
	f.posting = appledger.NewInvoicePostingService(scope, f.repos, f.closure, gate, f.recomputer, opts...)
	f.allocation = appledger.NewAllocationService(scope, f.repos, f.workingDate, f.recomputer,
		f.idempotency, shared.DefaultIdempotencyConfig(), opts...)
	f.corrections = appledger.NewDateCorrectionService(scope, f.repos, f.closure, gate, f.recomputer, opts...)
	f.debts = appledger.NewDebtLedger(f.repos, opts...)
	return f
}

func (f *fixture) grant(role identity.RoleCode, codes ...identity.PermissionCode) {
	f.grants[role] = append(f.grants[role], codes...)
}

func (f *fixture) currentDate() valueobject.BusinessDate {
	f.t.Helper()
	d, err := f.workingDate.Current(f.ctx)
	require.NoError(f.t, err)
	return d
}

// seedInvoice stores an invoice dated date directly, bypassing the posting
// checks. Each seed moves the clock a minute so FIFO order follows seed order.
func (f *fixture) seedInvoice(debtor ledger.DebtorRef, number string, amount string, date valueobject.BusinessDate) *ledger.Invoice {
	f.t.Helper()
	f.clock.Advance(time.Minute)
	inv, err := ledger.NewInvoice(number, debtor, "Consultation "+number, decimal.RequireFromString(amount),
		date.WithTimeOf(f.clock.Now()), f.policy)
	require.NoError(f.t, err)
	require.NoError(f.t, f.repos.Invoices().Create(f.ctx, inv))
	return inv
}

func (f *fixture) invoice(id uuid.UUID) *ledger.Invoice {
	f.t.Helper()
	inv, err := f.repos.Invoices().FindByID(f.ctx, id)
	require.NoError(f.t, err)
	require.NotNil(f.t, inv)
	return inv
}

func (f *fixture) close(next valueobject.BusinessDate, actor identity.Actor) *appledger.CloseResult {
	f.t.Helper()
	res, err := f.closure.Close(f.ctx, appledger.CloseRequest{NextDate: next, Actor: actor})
	require.NoError(f.t, err)
	return res
}

func (f *fixture) allocate(debtor ledger.DebtorRef, amount string, actor identity.Actor) *appledger.AllocationResult {
	f.t.Helper()
	res, err := f.allocation.Allocate(f.ctx, appledger.AllocateRequest{
		Debtor: debtor,
		Amount: decimal.RequireFromString(amount),
		Mode:   "cash",
		Actor:  actor,
	})
	require.NoError(f.t, err)
	return res
}

// assertConservation checks applied + balance == amount due for every invoice
func (f *fixture) assertConservation(invoices ...*ledger.Invoice) {
	f.t.Helper()
	for _, inv := range invoices {
		report, err := f.debts.CheckConservation(f.ctx, inv.ID)
		require.NoError(f.t, err)
		assert.True(f.t, report.Holds(), "invoice %s drifted by %s", inv.Number, report.Drift)
	}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, code, de.Code, de.Message)
}

func bizDate(s string) valueobject.BusinessDate {
	return valueobject.MustParseBusinessDate(s)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !dec(expected).Equal(actual) {
		assert.Fail(t, fmt.Sprintf("expected %s, got %s", expected, actual.String()), msgAndArgs...)
	}
}
