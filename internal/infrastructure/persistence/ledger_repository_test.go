package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clinicpos/backend/internal/application/ledger"
	domain "github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repoNow = time.Date(2024, 3, 20, 10, 0, 0, 0, time.UTC)

func bizDate(s string) valueobject.BusinessDate {
	return valueobject.MustParseBusinessDate(s)
}

func newInvoice(t *testing.T, debtor domain.DebtorRef, number string, amount int64, postedAt time.Time) *domain.Invoice {
	t.Helper()
	inv, err := domain.NewInvoice(number, debtor, "consultation", decimal.NewFromInt(amount), postedAt, domain.DefaultSettlementPolicy())
	require.NoError(t, err)
	return inv
}

func newMovement(t *testing.T, debtor domain.DebtorRef, amount int64, date valueobject.BusinessDate) *domain.CashMovement {
	t.Helper()
	m, err := domain.NewRecoveryMovement(debtor, decimal.NewFromInt(amount), domain.PaymentModeCash, "", testutil.TestUserID(), date, repoNow)
	require.NoError(t, err)
	return m
}

func TestWorkingDateRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormWorkingDateRepository(testutil.NewLedgerDB(t))

	wd, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, wd, "no row before first run")

	require.NoError(t, repo.InsertIfAbsent(ctx, domain.NewWorkingDate(bizDate("2024-03-01"), repoNow)))
	require.NoError(t, repo.InsertIfAbsent(ctx, domain.NewWorkingDate(bizDate("2024-04-01"), repoNow)),
		"a second insert is ignored")

	wd, err = repo.GetForUpdate(ctx)
	require.NoError(t, err)
	require.NotNil(t, wd)
	assert.Equal(t, "2024-03-01", wd.Date.String())
	assert.Nil(t, wd.UpdatedBy)

	actor := uuid.New()
	wd.Advance(bizDate("2024-03-02"), actor, repoNow.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, wd))

	wd, err = repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", wd.Date.String())
	require.NotNil(t, wd.UpdatedBy)
	assert.Equal(t, actor, *wd.UpdatedBy)
}

func TestClosureRecordRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewGormClosureRecordRepository(testutil.NewLedgerDB(t))
	actor := uuid.New()

	missing, err := repo.FindByDate(ctx, bizDate("2024-03-01"))
	require.NoError(t, err)
	assert.Nil(t, missing)

	rec, err := domain.NewClosureRecord(bizDate("2024-03-01"), bizDate("2024-03-02"), actor, repoNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, rec))

	found, err := repo.FindByDateForUpdate(ctx, bizDate("2024-03-01"))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, rec.ID, found.ID)
	assert.Equal(t, "2024-03-02", found.NextDate.String())
	assert.True(t, found.IsClosed())
	assert.True(t, found.WasClosedBy(actor))
	assert.Equal(t, 1, found.Version)

	require.NoError(t, found.Reopen(uuid.New(), "late invoice", repoNow.Add(time.Hour)))
	require.NoError(t, repo.SaveWithLock(ctx, found))
	assert.Equal(t, 2, found.Version)

	reloaded, err := repo.FindByDate(ctx, bizDate("2024-03-01"))
	require.NoError(t, err)
	assert.True(t, reloaded.IsReopened())
	assert.Equal(t, "late invoice", reloaded.ReopenReason)
	assert.Equal(t, 2, reloaded.Version)
	require.NotNil(t, reloaded.ReopenedAt)
}

func TestClosureRecordRepository_SaveWithLockConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewGormClosureRecordRepository(testutil.NewLedgerDB(t))

	rec, err := domain.NewClosureRecord(bizDate("2024-03-01"), bizDate("2024-03-02"), uuid.New(), repoNow)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, rec))

	first, err := repo.FindByDate(ctx, rec.Date)
	require.NoError(t, err)
	stale, err := repo.FindByDate(ctx, rec.Date)
	require.NoError(t, err)

	require.NoError(t, first.Reopen(uuid.New(), "first", repoNow))
	require.NoError(t, repo.SaveWithLock(ctx, first))

	require.NoError(t, stale.Reopen(uuid.New(), "second", repoNow))
	err = repo.SaveWithLock(ctx, stale)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict))
	assert.Equal(t, 1, stale.Version, "a failed save leaves the version alone")
}

func TestClosureRecordRepository_Queries(t *testing.T) {
	ctx := context.Background()
	repo := NewGormClosureRecordRepository(testutil.NewLedgerDB(t))
	alice, bob := uuid.New(), uuid.New()

	create := func(date, next string, by uuid.UUID, at time.Time) *domain.ClosureRecord {
		rec, err := domain.NewClosureRecord(bizDate(date), bizDate(next), by, at)
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, rec))
		return rec
	}
	create("2024-03-01", "2024-03-02", alice, repoNow)
	create("2024-03-02", "2024-03-03", alice, repoNow.Add(time.Hour))
	reopened := create("2024-03-03", "2024-03-04", bob, repoNow.Add(2*time.Hour))
	require.NoError(t, reopened.Reopen(alice, "fix", repoNow.Add(3*time.Hour)))
	require.NoError(t, repo.SaveWithLock(ctx, reopened))

	latest, err := repo.FindLatestClosedBy(ctx, alice)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "2024-03-02", latest.Date.String())

	none, err := repo.FindLatestClosedBy(ctx, bob)
	require.NoError(t, err)
	assert.Nil(t, none, "bob's only record is reopened")

	prev, err := repo.FindClosedWithNextDate(ctx, bizDate("2024-03-03"))
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Equal(t, "2024-03-02", prev.Date.String())

	prev, err = repo.FindClosedWithNextDate(ctx, bizDate("2024-03-04"))
	require.NoError(t, err)
	assert.Nil(t, prev, "record pointing at 03-04 is not CLOSED")

	exists, err := repo.ExistsOnOrAfter(ctx, bizDate("2024-03-03"))
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsOnOrAfter(ctx, bizDate("2024-03-04"))
	require.NoError(t, err)
	assert.False(t, exists)

	history, err := repo.FindRange(ctx, bizDate("2024-03-02"), bizDate("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2024-03-02", history[0].Date.String())
	assert.Equal(t, "2024-03-03", history[1].Date.String())
}

func TestInvoiceRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceRepository(testutil.NewLedgerDB(t))
	debtor := domain.NewPatientDebtor(uuid.New())

	inv := newInvoice(t, debtor, "INV-1", 1500, repoNow)
	require.NoError(t, repo.Create(ctx, inv))

	found, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "INV-1", found.Number)
	assert.Equal(t, debtor, found.Debtor)
	assert.True(t, found.AmountDue.Equal(decimal.NewFromInt(1500)))
	assert.True(t, found.BalanceRemaining.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, domain.InvoiceStatusCredit, found.Status)
	assert.True(t, found.PostedAt.Equal(repoNow))
	assert.Equal(t, "2024-03-20", found.BusinessDate().String())

	missing, err := repo.FindByIDForUpdate(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	none, err := repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)

	some, err := repo.FindByIDsForUpdate(ctx, []uuid.UUID{inv.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, inv.ID, some[0].ID)
}

func TestInvoiceRepository_FindOutstanding(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceRepository(testutil.NewLedgerDB(t))
	debtor := domain.NewPatientDebtor(uuid.New())
	other := domain.NewStaffDebtor(uuid.New())

	newest := newInvoice(t, debtor, "INV-3", 300, repoNow.Add(48*time.Hour))
	oldest := newInvoice(t, debtor, "INV-1", 100, repoNow)
	middle := newInvoice(t, debtor, "INV-2", 200, repoNow.Add(24*time.Hour))
	dust := newInvoice(t, debtor, "INV-4", 400, repoNow.Add(72*time.Hour))
	dust.BalanceRemaining = decimal.NewFromInt(3)
	paid := newInvoice(t, debtor, "INV-5", 2, repoNow)
	foreign := newInvoice(t, other, "INV-6", 600, repoNow)

	for _, inv := range []*domain.Invoice{newest, oldest, middle, dust, paid, foreign} {
		require.NoError(t, repo.Create(ctx, inv))
	}
	require.Equal(t, domain.InvoiceStatusPaid, paid.Status)

	outstanding, err := repo.FindOutstandingForUpdate(ctx, debtor, domain.DefaultSettlementPolicy())
	require.NoError(t, err)
	require.Len(t, outstanding, 3, "dust below epsilon and PAID invoices are excluded")
	assert.Equal(t, "INV-1", outstanding[0].Number)
	assert.Equal(t, "INV-2", outstanding[1].Number)
	assert.Equal(t, "INV-3", outstanding[2].Number)

	strict, err := repo.FindOutstanding(ctx, debtor, domain.NewSettlementPolicy(decimal.Zero))
	require.NoError(t, err)
	require.Len(t, strict, 4, "a zero epsilon keeps every positive CREDIT balance")
	assert.Equal(t, "INV-4", strict[3].Number)
}

func TestInvoiceRepository_SumForDate(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceRepository(testutil.NewLedgerDB(t))
	debtor := domain.NewPatientDebtor(uuid.New())

	require.NoError(t, repo.Create(ctx, newInvoice(t, debtor, "INV-1", 100, repoNow)))
	require.NoError(t, repo.Create(ctx, newInvoice(t, debtor, "INV-2", 250, repoNow.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, newInvoice(t, debtor, "INV-3", 999, repoNow.Add(24*time.Hour))))

	totals, err := repo.SumForDate(ctx, bizDate("2024-03-20"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Count)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(350)), totals.Total.String())

	empty, err := repo.SumForDate(ctx, bizDate("2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty.Count)
	assert.True(t, empty.Total.IsZero())
}

func TestInvoiceRepository_SaveWithLock(t *testing.T) {
	ctx := context.Background()
	repo := NewGormInvoiceRepository(testutil.NewLedgerDB(t))
	policy := domain.DefaultSettlementPolicy()

	inv := newInvoice(t, domain.NewPatientDebtor(uuid.New()), "INV-1", 1000, repoNow)
	require.NoError(t, repo.Create(ctx, inv))

	first, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)

	require.NoError(t, first.ApplyPayment(decimal.NewFromInt(400), policy, repoNow))
	_, err = first.MoveTo(bizDate("2024-03-18"), repoNow)
	require.NoError(t, err)
	require.NoError(t, repo.SaveWithLock(ctx, first))
	assert.Equal(t, 2, first.Version)

	reloaded, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.BalanceRemaining.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, "2024-03-18", reloaded.BusinessDate().String())

	moved, err := repo.SumForDate(ctx, bizDate("2024-03-18"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), moved.Count, "the denormalized date follows MoveTo")

	require.NoError(t, stale.ApplyPayment(decimal.NewFromInt(100), policy, repoNow))
	err = repo.SaveWithLock(ctx, stale)
	assert.Equal(t, shared.CodeConcurrencyConflict, shared.CategoryOf(err))
}

func TestCashMovementRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormCashMovementRepository(testutil.NewLedgerDB(t))
	debtor := domain.NewPatientDebtor(uuid.New())
	date := bizDate("2024-03-20")

	m := newMovement(t, debtor, 500, date)
	require.NoError(t, repo.Create(ctx, m))
	require.NoError(t, repo.Create(ctx, newMovement(t, debtor, 250, date)))
	require.NoError(t, repo.Create(ctx, newMovement(t, debtor, 75, date.AddDays(1))))

	found, err := repo.FindByIDForUpdate(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, domain.MovementKindRecovery, found.Kind)
	assert.Equal(t, m.Reference, found.Reference)
	assert.Equal(t, date, found.BusinessDate)
	assert.True(t, found.Amount.Equal(decimal.NewFromInt(500)))

	totals, err := repo.SumForDate(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Count)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(750)))

	require.NoError(t, found.Amend(decimal.NewFromInt(450), domain.PaymentModeCard, "", repoNow.Add(time.Hour)))
	require.NoError(t, repo.SaveWithLock(ctx, found))
	assert.Equal(t, 2, found.Version)

	reloaded, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Amount.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, domain.PaymentModeCard, reloaded.Mode)

	m.Version = 1
	assert.Equal(t, shared.CodeConcurrencyConflict, shared.CategoryOf(repo.SaveWithLock(ctx, m)))

	require.NoError(t, repo.Delete(ctx, m.ID))
	gone, err := repo.FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
	assert.ErrorIs(t, repo.Delete(ctx, m.ID), shared.ErrNotFound)
}

func TestAllocationDetailRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormAllocationDetailRepository(testutil.NewLedgerDB(t))
	movement, other := uuid.New(), uuid.New()
	inv1, inv2 := uuid.New(), uuid.New()

	require.NoError(t, repo.CreateBatch(ctx, nil))
	require.NoError(t, repo.CreateBatch(ctx, []domain.AllocationDetail{
		{ID: uuid.New(), CashMovementID: movement, InvoiceID: inv1, AmountApplied: decimal.NewFromInt(100), AppliedAt: repoNow},
		{ID: uuid.New(), CashMovementID: movement, InvoiceID: inv2, AmountApplied: decimal.RequireFromString("50.25"), AppliedAt: repoNow.Add(time.Second)},
		{ID: uuid.New(), CashMovementID: other, InvoiceID: inv2, AmountApplied: decimal.NewFromInt(10), AppliedAt: repoNow.Add(time.Minute)},
	}))

	byMovement, err := repo.FindByMovement(ctx, movement)
	require.NoError(t, err)
	require.Len(t, byMovement, 2)
	assert.Equal(t, inv1, byMovement[0].InvoiceID)
	assert.True(t, byMovement[1].AmountApplied.Equal(decimal.RequireFromString("50.25")))

	byInvoice, err := repo.FindByInvoice(ctx, inv2)
	require.NoError(t, err)
	require.Len(t, byInvoice, 2)
	assert.Equal(t, movement, byInvoice[0].CashMovementID)

	deleted, err := repo.DeleteByMovement(ctx, movement)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	byInvoice, err = repo.FindByInvoice(ctx, inv2)
	require.NoError(t, err)
	assert.Len(t, byInvoice, 1)
}

func TestDailyAggregateRepository_Upsert(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDailyAggregateRepository(testutil.NewLedgerDB(t))
	date := bizDate("2024-03-20")

	missing, err := repo.FindByDate(ctx, date)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Upsert(ctx, domain.NewDailyAggregate(date,
		domain.DailyTotals{Count: 2, Total: decimal.NewFromInt(300)},
		domain.DailyTotals{Count: 1, Total: decimal.NewFromInt(100)}, repoNow)))
	require.NoError(t, repo.Upsert(ctx, domain.NewDailyAggregate(date,
		domain.DailyTotals{Count: 3, Total: decimal.NewFromInt(450)},
		domain.DailyTotals{Count: 0, Total: decimal.Zero}, repoNow.Add(time.Hour))))

	agg, err := repo.FindByDate(ctx, date)
	require.NoError(t, err)
	require.NotNil(t, agg)
	assert.Equal(t, int64(3), agg.InvoiceCount)
	assert.True(t, agg.InvoiceTotalDue.Equal(decimal.NewFromInt(450)))
	assert.Equal(t, int64(0), agg.RecoveryCount)
	assert.True(t, agg.RecoveryTotal.IsZero())
	assert.True(t, agg.RecomputedAt.Equal(repoNow.Add(time.Hour)))
}

func TestDateCorrectionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormDateCorrectionRepository(testutil.NewLedgerDB(t))
	record, actor := uuid.New(), uuid.New()

	first, err := domain.NewDateCorrection(domain.SourceTableInvoices, record,
		bizDate("2024-03-20"), bizDate("2024-03-19"), actor, "posted on wrong day", repoNow)
	require.NoError(t, err)
	second, err := domain.NewDateCorrection(domain.SourceTableInvoices, record,
		bizDate("2024-03-19"), bizDate("2024-03-18"), actor, "still wrong", repoNow.Add(time.Minute))
	require.NoError(t, err)
	unrelated, err := domain.NewDateCorrection(domain.SourceTableInvoices, uuid.New(),
		bizDate("2024-03-20"), bizDate("2024-03-18"), actor, "other", repoNow)
	require.NoError(t, err)

	for _, c := range []*domain.DateCorrection{second, first, unrelated} {
		require.NoError(t, repo.Create(ctx, c))
	}

	trail, err := repo.FindByRecord(ctx, domain.SourceTableInvoices, record)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, "posted on wrong day", trail[0].Reason)
	assert.Equal(t, "2024-03-18", trail[1].NewDate.String())

	none, err := repo.FindByRecord(ctx, "cash_movements", record)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRolePermissionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRolePermissionRepository(testutil.NewLedgerDB(t))
	role := identity.RoleCodeManager

	ok, err := repo.HasGrant(ctx, role, identity.PermissionDateReopen)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Grant(ctx, role, identity.PermissionDateReopen))
	require.NoError(t, repo.Grant(ctx, role, identity.PermissionDateReopen), "granting twice is a no-op")
	require.NoError(t, repo.Grant(ctx, role, identity.PermissionCode("date_correction")))

	ok, err = repo.HasGrant(ctx, role, identity.PermissionDateReopen)
	require.NoError(t, err)
	assert.True(t, ok)

	codes, err := repo.ListForRole(ctx, role)
	require.NoError(t, err)
	assert.ElementsMatch(t, []identity.PermissionCode{identity.PermissionDateReopen, identity.PermissionDateCorrection}, codes)

	assert.Error(t, repo.Grant(ctx, role, identity.PermissionCode("FLY")))

	require.NoError(t, repo.Revoke(ctx, role, identity.PermissionDateReopen))
	ok, err = repo.HasGrant(ctx, role, identity.PermissionDateReopen)
	require.NoError(t, err)
	assert.False(t, ok)

	gate := identity.NewPermissionGate(repo, identity.RoleCodeAdmin)
	allowed, err := gate.Allows(ctx, identity.Actor{ID: uuid.New(), Role: role}, identity.PermissionDateCorrection)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGormTransactionScope(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewLedgerDB(t)
	scope := NewGormTransactionScope(db)
	repos := NewGormLedgerRepositories(db)
	debtor := domain.NewPatientDebtor(uuid.New())

	committed := newInvoice(t, debtor, "INV-1", 100, repoNow)
	require.NoError(t, scope.Execute(ctx, func(r ledger.Repositories) error {
		return r.Invoices().Create(ctx, committed)
	}))

	second := newInvoice(t, debtor, "INV-2", 200, repoNow)
	err := scope.Execute(ctx, func(r ledger.Repositories) error {
		if err := r.Invoices().Create(ctx, second); err != nil {
			return err
		}
		return r.Aggregates().Upsert(ctx, domain.NewDailyAggregate(bizDate("2024-03-20"),
			domain.DailyTotals{Count: 2, Total: decimal.NewFromInt(300)}, domain.DailyTotals{}, repoNow))
	})
	require.NoError(t, err)

	failing := newInvoice(t, debtor, "INV-3", 300, repoNow)
	err = scope.Execute(ctx, func(r ledger.Repositories) error {
		if err := r.Invoices().Create(ctx, failing); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	found, err := repos.Invoices().FindByID(ctx, committed.ID)
	require.NoError(t, err)
	assert.NotNil(t, found)

	gone, err := repos.Invoices().FindByID(ctx, failing.ID)
	require.NoError(t, err)
	assert.Nil(t, gone, "a failed callback rolls the insert back")
}
