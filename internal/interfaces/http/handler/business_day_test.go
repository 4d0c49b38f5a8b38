package handler_test

import (
	"net/http"
	"testing"

	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/interfaces/http/dto"
	"github.com/clinicpos/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusinessDayHandler_RequiresActor(t *testing.T) {
	a := newAPI(t).anonymous()

	tc := a.do(http.MethodPost, "/api/v1/business-day/close", map[string]any{"next_date": "2024-03-21"})

	assert.Equal(t, http.StatusUnauthorized, tc.ResponseCode())
	testutil.AssertErrorResponse(t, tc, dto.ErrCodeUnauthorized)
}

func TestBusinessDayHandler_GetWorkingDate(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))

	tc := a.do(http.MethodGet, "/api/v1/business-day", nil)

	require.Equal(t, http.StatusOK, tc.ResponseCode())
	assert.Equal(t, "2024-03-20", testutil.JSONData(t, tc)["working_date"])
}

func TestBusinessDayHandler_Close(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))
	patient := uuid.New()
	a.postInvoice("PATIENT", patient, "INV-1", "1000.00")

	tc := a.closeDay("2024-03-21")

	data := testutil.JSONData(t, tc)
	assert.Equal(t, true, data["advanced"])
	record := data["record"].(map[string]any)
	assert.Equal(t, "2024-03-20", record["date"])
	assert.Equal(t, "2024-03-21", record["next_date"])
	assert.Equal(t, "CLOSED", record["status"])
	aggregate := data["aggregate"].(map[string]any)
	assert.EqualValues(t, 1, aggregate["invoice_count"])
	assertAmount(t, "1000", aggregate["invoice_total_due"])

	t.Run("working date advanced", func(t *testing.T) {
		tc := a.do(http.MethodGet, "/api/v1/business-day", nil)
		assert.Equal(t, "2024-03-21", testutil.JSONData(t, tc)["working_date"])
	})

	t.Run("repeating the close is a no-op", func(t *testing.T) {
		tc := a.closeDay("2024-03-21")
		data := testutil.JSONData(t, tc)
		assert.Equal(t, false, data["advanced"])
		assert.Equal(t, "2024-03-20", data["record"].(map[string]any)["date"])

		tc = a.do(http.MethodGet, "/api/v1/business-day", nil)
		assert.Equal(t, "2024-03-21", testutil.JSONData(t, tc)["working_date"])
	})

	t.Run("closed date state", func(t *testing.T) {
		tc := a.do(http.MethodGet, "/api/v1/business-day/2024-03-20", nil)
		require.Equal(t, http.StatusOK, tc.ResponseCode())
		data := testutil.JSONData(t, tc)
		assert.Equal(t, "CLOSED", data["state"])
		assert.Equal(t, "2024-03-21", data["working_date"])
		assert.NotNil(t, data["record"])
	})

	t.Run("aggregate of the closed date", func(t *testing.T) {
		tc := a.do(http.MethodGet, "/api/v1/business-day/2024-03-20/aggregate", nil)
		require.Equal(t, http.StatusOK, tc.ResponseCode())
		assertAmount(t, "1000", testutil.JSONData(t, tc)["invoice_total_due"])
	})

	t.Run("no aggregate for a date never computed", func(t *testing.T) {
		tc := a.do(http.MethodGet, "/api/v1/business-day/2024-03-25/aggregate", nil)
		assert.Equal(t, http.StatusNotFound, tc.ResponseCode())
		testutil.AssertErrorResponse(t, tc, "NOT_FOUND")
	})
}

func TestBusinessDayHandler_CloseValidation(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing next date", map[string]any{}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"malformed next date", map[string]any{"next_date": "21/03/2024"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"impossible next date", map[string]any{"next_date": "2024-02-30"}, http.StatusBadRequest, dto.ErrCodeValidation},
		{"same as working date", map[string]any{"next_date": "2024-03-20"}, http.StatusBadRequest, "SAME_AS_WORKING_DATE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := a.do(http.MethodPost, "/api/v1/business-day/close", tt.body)
			assert.Equal(t, tt.status, tc.ResponseCode(), string(tc.ResponseBody()))
			testutil.AssertErrorResponse(t, tc, tt.code)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		tc := a.doWithHeaders(http.MethodPost, "/api/v1/business-day/close", "not an object", nil)
		assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
		testutil.AssertErrorResponse(t, tc, dto.ErrCodeInvalidJSON)
	})
}

func TestBusinessDayHandler_CloseBackwardsNeedsReopenRight(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))

	tc := a.do(http.MethodPost, "/api/v1/business-day/close", map[string]any{"next_date": "2024-03-19"})

	assert.Equal(t, http.StatusForbidden, tc.ResponseCode())
	assert.Equal(t, "PERMISSION_DENIED", errorOf(t, tc)["category"])
}

func TestBusinessDayHandler_ReopenAndReclose(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("bob"))
	a.closeDay("2024-03-21")

	t.Run("reason is required", func(t *testing.T) {
		a.as(testutil.Admin("root"))
		tc := a.do(http.MethodPost, "/api/v1/business-day/2024-03-20/reopen", map[string]any{"reason": "   "})
		assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
		testutil.AssertErrorResponse(t, tc, "REASON_REQUIRED")
	})

	t.Run("cashier cannot reopen a day someone else closed", func(t *testing.T) {
		a.as(testutil.Cashier("ana"))
		tc := a.do(http.MethodPost, "/api/v1/business-day/2024-03-20/reopen", map[string]any{"reason": "Late lab invoices"})
		assert.Equal(t, http.StatusForbidden, tc.ResponseCode())
		assert.Equal(t, "PERMISSION_DENIED", errorOf(t, tc)["category"])
	})

	t.Run("date that is not closed", func(t *testing.T) {
		a.as(testutil.Admin("root"))
		tc := a.do(http.MethodPost, "/api/v1/business-day/2024-03-18/reopen", map[string]any{"reason": "Late lab invoices"})
		assert.Equal(t, http.StatusConflict, tc.ResponseCode())
		testutil.AssertErrorResponse(t, tc, "NOT_CLOSED")
	})

	t.Run("admin reopens", func(t *testing.T) {
		a.as(testutil.Admin("root"))
		tc := a.do(http.MethodPost, "/api/v1/business-day/2024-03-20/reopen", map[string]any{"reason": "Late lab invoices"})
		require.Equal(t, http.StatusOK, tc.ResponseCode(), string(tc.ResponseBody()))
		data := testutil.JSONData(t, tc)
		assert.Equal(t, "REOPENED", data["status"])
		assert.Equal(t, "Late lab invoices", data["reopen_reason"])

		tc = a.do(http.MethodGet, "/api/v1/business-day", nil)
		assert.Equal(t, "2024-03-21", testutil.JSONData(t, tc)["working_date"])
	})

	t.Run("cashier may post to the reopened date", func(t *testing.T) {
		a.as(testutil.Cashier("ana"))
		tc := a.do(http.MethodGet, "/api/v1/business-day/2024-03-20/can-post", nil)
		require.Equal(t, http.StatusOK, tc.ResponseCode())
		data := testutil.JSONData(t, tc)
		assert.Equal(t, true, data["allowed"])
		assert.Equal(t, "REOPENED", data["state"])
	})

	t.Run("admin recloses", func(t *testing.T) {
		a.as(testutil.Admin("root"))
		tc := a.do(http.MethodPost, "/api/v1/business-day/2024-03-20/reclose", nil)
		require.Equal(t, http.StatusOK, tc.ResponseCode(), string(tc.ResponseBody()))
		data := testutil.JSONData(t, tc)
		assert.Equal(t, "CLOSED", data["record"].(map[string]any)["status"])
	})
}

func TestBusinessDayHandler_CloserMayReopen(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))
	a.closeDay("2024-03-21")

	tc := a.do(http.MethodPost, "/api/v1/business-day/2024-03-20/reopen", map[string]any{"reason": "Forgot a refund"})
	require.Equal(t, http.StatusOK, tc.ResponseCode(), string(tc.ResponseBody()))
	data := testutil.JSONData(t, tc)
	assert.Equal(t, "REOPENED", data["status"])
	assert.Equal(t, "Forgot a refund", data["reopen_reason"])

	tc = a.as(testutil.Cashier("bob")).do(http.MethodPost, "/api/v1/business-day/2024-03-20/reopen", map[string]any{"reason": "again"})
	assert.Equal(t, http.StatusConflict, tc.ResponseCode())
	testutil.AssertErrorResponse(t, tc, "NOT_CLOSED")
}

func TestBusinessDayHandler_CanPost(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))
	a.closeDay("2024-03-21")

	tests := []struct {
		name    string
		actor   identity.Actor
		date    string
		allowed bool
	}{
		{"cashier on the working date", testutil.Cashier("ana"), "2024-03-21", true},
		{"cashier on a closed date", testutil.Cashier("ana"), "2024-03-20", false},
		{"cashier on a future date", testutil.Cashier("ana"), "2024-03-25", false},
		{"admin on a closed date", testutil.Admin("root"), "2024-03-20", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := a.as(tt.actor).do(http.MethodGet, "/api/v1/business-day/"+tt.date+"/can-post", nil)
			require.Equal(t, http.StatusOK, tc.ResponseCode())
			data := testutil.JSONData(t, tc)
			assert.Equal(t, tt.allowed, data["allowed"])
			assert.NotEmpty(t, data["reason"])
		})
	}

	t.Run("malformed date", func(t *testing.T) {
		tc := a.as(testutil.Cashier("ana")).do(http.MethodGet, "/api/v1/business-day/yesterday/can-post", nil)
		assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
		testutil.AssertErrorResponse(t, tc, dto.ErrCodeBadRequest)
	})
}

func TestBusinessDayHandler_ListClosures(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))
	a.closeDay("2024-03-21")
	a.closeDay("2024-03-22")

	tc := a.do(http.MethodGet, "/api/v1/closures?from=2024-03-01&to=2024-03-31", nil)
	require.Equal(t, http.StatusOK, tc.ResponseCode())
	records, ok := testutil.JSONResponse(t, tc)["data"].([]any)
	require.True(t, ok)
	require.Len(t, records, 2)
	assert.Equal(t, "2024-03-20", records[0].(map[string]any)["date"])
	assert.Equal(t, "2024-03-21", records[1].(map[string]any)["date"])

	t.Run("missing bound", func(t *testing.T) {
		tc := a.do(http.MethodGet, "/api/v1/closures?from=2024-03-01", nil)
		assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
	})

	t.Run("inverted range", func(t *testing.T) {
		tc := a.do(http.MethodGet, "/api/v1/closures?from=2024-03-31&to=2024-03-01", nil)
		assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
		assert.Equal(t, "INVALID_INPUT", errorOf(t, tc)["category"])
	})
}
