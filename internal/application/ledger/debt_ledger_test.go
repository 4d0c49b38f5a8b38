package ledger_test

import (
	"testing"

	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebtLedger_OutstandingFor(t *testing.T) {
	f := newFixture(t)
	patient := ledger.NewPatientDebtor(uuid.New())
	staff := ledger.NewStaffDebtor(uuid.New())
	newer := f.seedInvoice(patient, "INV-B", "200", today)
	older := f.seedInvoice(patient, "INV-A", "150", today.AddDays(-4))
	f.seedInvoice(patient, "INV-C", "3", today)
	f.seedInvoice(staff, "INV-S", "900", today)

	invoices, err := f.debts.OutstandingFor(f.ctx, patient)
	require.NoError(t, err)
	require.Len(t, invoices, 2, "balances under the settlement threshold are not debt")
	assert.Equal(t, older.ID, invoices[0].ID)
	assert.Equal(t, newer.ID, invoices[1].ID)

	total, err := f.debts.TotalOutstanding(f.ctx, patient)
	require.NoError(t, err)
	assertDecimal(t, "350", total)

	staffTotal, err := f.debts.TotalOutstanding(f.ctx, staff)
	require.NoError(t, err)
	assertDecimal(t, "900", staffTotal)

	none, err := f.debts.TotalOutstanding(f.ctx, ledger.NewPatientDebtor(uuid.New()))
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	_, err = f.debts.OutstandingFor(f.ctx, ledger.DebtorRef{Kind: "VENDOR", ID: uuid.New()})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestDebtLedger_CheckConservation(t *testing.T) {
	f := newFixture(t)
	patient := ledger.NewPatientDebtor(uuid.New())
	inv := f.seedInvoice(patient, "INV-1", "800", today)
	f.allocate(patient, "300", testutil.Cashier("alice"))
	f.allocate(patient, "200", testutil.Cashier("alice"))

	report, err := f.debts.CheckConservation(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, report.Holds())
	assertDecimal(t, "500", report.TotalApplied)
	assertDecimal(t, "300", report.BalanceRemaining)

	tampered := f.invoice(inv.ID)
	tampered.BalanceRemaining = dec("250")
	require.NoError(t, f.repos.Invoices().SaveWithLock(f.ctx, tampered))

	report, err = f.debts.CheckConservation(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, report.Holds())
	assertDecimal(t, "50", report.Drift)

	_, err = f.debts.CheckConservation(f.ctx, uuid.New())
	requireCode(t, err, ledger.CodeInvoiceNotFound)
}
