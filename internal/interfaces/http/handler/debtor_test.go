package handler_test

import (
	"net/http"
	"testing"

	"github.com/clinicpos/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebtorHandler_Outstanding(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))
	patient := uuid.New()
	a.postInvoice("PATIENT", patient, "INV-1", "1000")
	second := a.postInvoice("PATIENT", patient, "INV-2", "2000")
	a.postInvoice("STAFF", patient, "INV-3", "700")

	tc := a.do(http.MethodPost, "/api/v1/recoveries", map[string]any{
		"debtor_kind": "PATIENT",
		"debtor_id":   patient.String(),
		"amount":      "1200",
	})
	require.Equal(t, http.StatusCreated, tc.ResponseCode(), string(tc.ResponseBody()))

	tc = a.do(http.MethodGet, "/api/v1/debtors/patient/"+patient.String()+"/outstanding", nil)

	require.Equal(t, http.StatusOK, tc.ResponseCode(), string(tc.ResponseBody()))
	data := testutil.JSONData(t, tc)
	assert.Equal(t, "PATIENT", data["debtor_kind"])
	assertAmount(t, "1800", data["total"])
	invoices := breakdownOf(t, data, "invoices")
	require.Len(t, invoices, 1)
	assert.Equal(t, second, invoices[0]["id"])
	assertAmount(t, "1800", invoices[0]["balance_remaining"])

	t.Run("the same id as staff is a different debtor", func(t *testing.T) {
		tc := a.do(http.MethodGet, "/api/v1/debtors/STAFF/"+patient.String()+"/outstanding", nil)
		require.Equal(t, http.StatusOK, tc.ResponseCode())
		assertAmount(t, "700", testutil.JSONData(t, tc)["total"])
	})
}

func TestDebtorHandler_OutstandingEmpty(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))

	tc := a.do(http.MethodGet, "/api/v1/debtors/staff/"+uuid.New().String()+"/outstanding", nil)

	require.Equal(t, http.StatusOK, tc.ResponseCode())
	data := testutil.JSONData(t, tc)
	assert.Empty(t, data["invoices"])
	assertAmount(t, "0", data["total"])
}

func TestDebtorHandler_OutstandingRejected(t *testing.T) {
	a := newAPI(t).as(testutil.Cashier("ana"))

	tc := a.do(http.MethodGet, "/api/v1/debtors/supplier/"+uuid.New().String()+"/outstanding", nil)
	assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
	testutil.AssertErrorResponse(t, tc, "INVALID_DEBTOR_KIND")

	tc = a.do(http.MethodGet, "/api/v1/debtors/patient/42/outstanding", nil)
	assert.Equal(t, http.StatusBadRequest, tc.ResponseCode())
	testutil.AssertErrorResponse(t, tc, "BAD_REQUEST")
}
