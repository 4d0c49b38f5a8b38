package testutil

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)
	defer mockDB.Close()

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	mockDB.ExpectationsWereMet(t)
}

func TestNewLedgerDB_CreatesTables(t *testing.T) {
	db := NewLedgerDB(t)

	for _, table := range []string{
		"working_dates", "closure_records", "invoices", "cash_movements",
		"allocation_details", "daily_aggregates", "date_corrections", "role_permissions",
	} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
}

func TestNewTestUUID_Deterministic(t *testing.T) {
	assert.Equal(t, NewTestUUID("a"), NewTestUUID("a"))
	assert.NotEqual(t, NewTestUUID("a"), NewTestUUID("b"))
	assert.NotEqual(t, uuid.Nil, TestUserID())
}

func TestActors(t *testing.T) {
	assert.Equal(t, "CASHIER", Cashier("x").Role.String())
	assert.Equal(t, "ADMIN", Admin("x").Role.String())
	assert.NotEqual(t, Cashier("x").ID, Cashier("y").ID)
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := FixedClock(at)
	assert.Equal(t, at, clock())
}

func TestPerformRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/echo", func(c *gin.Context) {
		var body map[string]interface{}
		_ = c.ShouldBindJSON(&body)
		c.JSON(http.StatusOK, gin.H{"success": true, "data": body})
	})

	tc := PerformRequest(t, r, http.MethodPost, "/echo", map[string]string{"k": "v"}, nil)
	require.Equal(t, http.StatusOK, tc.ResponseCode())
	AssertSuccessResponse(t, tc)
	assert.Equal(t, "v", JSONData(t, tc)["k"])
}

func TestAssertErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/fail", func(c *gin.Context) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": gin.H{"code": "DAY_CLOSED"}})
	})

	tc := PerformRequest(t, r, http.MethodGet, "/fail", nil, nil)
	assert.Equal(t, http.StatusConflict, tc.ResponseCode())
	AssertErrorResponse(t, tc, "DAY_CLOSED")
}

type testEvent struct {
	shared.BaseDomainEvent
}

func TestMockEventHandler(t *testing.T) {
	h := NewMockEventHandler("A")
	assert.Equal(t, []string{"A"}, h.EventTypes())

	e := &testEvent{BaseDomainEvent: shared.NewBaseDomainEvent("A", "Agg", uuid.New())}
	require.NoError(t, h.Publish(context.Background(), e))
	assert.Equal(t, 1, h.HandledCount())
	assert.Equal(t, []string{"A"}, h.HandledTypes())

	h.SetError(errors.New("boom"))
	assert.Error(t, h.Handle(context.Background(), e))

	h.Reset()
	assert.Equal(t, 0, h.HandledCount())
}

func TestRequireEventually(t *testing.T) {
	n := 0
	RequireEventually(t, func() bool {
		n++
		return n >= 3
	}, time.Second, time.Millisecond)
}
