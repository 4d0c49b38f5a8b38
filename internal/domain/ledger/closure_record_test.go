package ledger

import (
	"errors"
	"testing"

	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosureRecord_Lifecycle(t *testing.T) {
	d := valueobject.MustParseBusinessDate("2024-03-15")
	closer := uuid.New()
	rec, err := NewClosureRecord(d, d.AddDays(1), closer, testNow)
	require.NoError(t, err)
	assert.True(t, rec.IsClosed())
	assert.True(t, rec.WasClosedBy(closer))

	reopener := uuid.New()
	require.NoError(t, rec.Reopen(reopener, "missed invoice", testNow))
	assert.True(t, rec.IsReopened())
	require.NotNil(t, rec.ReopenedBy)
	assert.Equal(t, reopener, *rec.ReopenedBy)
	require.NotNil(t, rec.ReopenedAt)
	assert.Equal(t, "missed invoice", rec.ReopenReason)

	err = rec.Reopen(reopener, "again", testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))

	require.NoError(t, rec.Reclose(reopener, testNow))
	assert.True(t, rec.IsClosed())
	assert.Equal(t, d.AddDays(1), rec.NextDate)
	assert.True(t, rec.WasClosedBy(reopener))

	err = rec.Reclose(reopener, testNow)
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestClosureRecord_ReopenRequiresReason(t *testing.T) {
	d := valueobject.MustParseBusinessDate("2024-03-15")
	rec, err := NewClosureRecord(d, d.AddDays(1), uuid.New(), testNow)
	require.NoError(t, err)

	err = rec.Reopen(uuid.New(), "   ", testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	assert.True(t, rec.IsClosed())
}

func TestNewClosureRecord_SameDate(t *testing.T) {
	d := valueobject.MustParseBusinessDate("2024-03-15")
	_, err := NewClosureRecord(d, d, uuid.New(), testNow)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
}

func TestDeriveDayState(t *testing.T) {
	working := valueobject.MustParseBusinessDate("2024-03-15")
	closed, _ := NewClosureRecord(working.AddDays(-2), working.AddDays(-1), uuid.New(), testNow)
	reopened, _ := NewClosureRecord(working.AddDays(-1), working, uuid.New(), testNow)
	require.NoError(t, reopened.Reopen(uuid.New(), "fix", testNow))

	tests := []struct {
		name     string
		date     valueobject.BusinessDate
		record   *ClosureRecord
		want     DayStateKind
		postable bool
	}{
		{"working date", working, nil, DayOpen, true},
		{"closed", closed.Date, closed, DayClosed, false},
		{"reopened", reopened.Date, reopened, DayReopened, true},
		{"future", working.AddDays(3), nil, DayFuture, false},
		{"skipped past date", working.AddDays(-10), nil, DayUnrecorded, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := DeriveDayState(tt.date, working, tt.record)
			assert.Equal(t, tt.want, state.Kind)
			assert.Equal(t, tt.postable, state.AcceptsPostings())
		})
	}
}

func TestNewDateCorrection_RequiresReason(t *testing.T) {
	d := valueobject.MustParseBusinessDate("2024-03-15")
	_, err := NewDateCorrection(SourceTableInvoices, uuid.New(), d, d.AddDays(-1), uuid.New(), "", testNow)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	c, err := NewDateCorrection(SourceTableInvoices, uuid.New(), d, d.AddDays(-1), uuid.New(), " wrong day ", testNow)
	require.NoError(t, err)
	assert.Equal(t, "wrong day", c.Reason)
	assert.Equal(t, "invoices", c.SourceTable)
}

func TestDebtorRef(t *testing.T) {
	kind, err := ParseDebtorKind("patient")
	require.NoError(t, err)
	assert.Equal(t, DebtorKindPatient, kind)

	_, err = ParseDebtorKind("insurer")
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	id := uuid.New()
	assert.Equal(t, "STAFF:"+id.String(), NewStaffDebtor(id).String())
}
