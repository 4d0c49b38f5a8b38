package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/interfaces/http/dto"
	"github.com/clinicpos/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func newTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from context",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set(middleware.RequestIDKey, "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-id")
				c.Request.Header.Set(middleware.RequestIDKey, "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext()
			tt.setup(c)
			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestBaseHandler_Success(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Success(c, map[string]string{"working_date": "2024-03-20"})

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandler_Created(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.Created(c, map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, decodeResponse(t, w).Success)
}

func TestBaseHandler_BadRequestCarriesCategory(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()
	c.Set("request_id", "req-1")

	h.BadRequest(c, "Path parameter date must be a date in YYYY-MM-DD format")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeResponse(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Equal(t, dto.CategoryInvalidInput, resp.Error.Category)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		code     string
		category string
	}{
		{
			name:     "specific invalid state code",
			err:      ledger.NewPostingBlockedError("Business date 2024-03-19 is closed"),
			status:   http.StatusConflict,
			code:     ledger.CodePostingBlocked,
			category: shared.CodeInvalidState,
		},
		{
			name:     "permission denied",
			err:      shared.NewPermissionDeniedError("DATE_REOPEN required"),
			status:   http.StatusForbidden,
			code:     shared.CodePermissionDenied,
			category: shared.CodePermissionDenied,
		},
		{
			name:     "not found",
			err:      shared.NewNotFoundError("Invoice not found"),
			status:   http.StatusNotFound,
			code:     shared.CodeNotFound,
			category: shared.CodeNotFound,
		},
		{
			name:   "infrastructure error is hidden",
			err:    errors.New("dial tcp 10.0.0.1:5432: connection refused"),
			status: http.StatusInternalServerError,
			code:   dto.ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			c, w := newTestContext()

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, tt.category, resp.Error.Category)
			assert.NotContains(t, resp.Error.Message, "10.0.0.1")
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newTestContext()

	h.HandleError(c, nil)

	assert.Empty(t, w.Body.Bytes())
	assert.Empty(t, c.Errors)
}

func TestBaseHandler_Actor(t *testing.T) {
	h := &BaseHandler{}

	t.Run("missing actor answers 401", func(t *testing.T) {
		c, w := newTestContext()
		_, ok := h.actor(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeUnauthorized, decodeResponse(t, w).Error.Code)
	})

	t.Run("actor from context", func(t *testing.T) {
		c, _ := newTestContext()
		want := identity.Actor{ID: uuid.New(), Role: identity.RoleCodeCashier}
		c.Set(middleware.JWTActorKey, want)
		got, ok := h.actor(c)
		require.True(t, ok)
		assert.Equal(t, want, got)
	})
}

func TestBaseHandler_Params(t *testing.T) {
	h := &BaseHandler{}

	t.Run("valid date", func(t *testing.T) {
		c, _ := newTestContext()
		c.Params = gin.Params{{Key: "date", Value: "2024-03-19"}}
		date, ok := h.dateParam(c, "date")
		require.True(t, ok)
		assert.Equal(t, "2024-03-19", date.String())
	})

	t.Run("invalid date", func(t *testing.T) {
		c, w := newTestContext()
		c.Params = gin.Params{{Key: "date", Value: "19/03/2024"}}
		_, ok := h.dateParam(c, "date")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid uuid", func(t *testing.T) {
		c, w := newTestContext()
		c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
		_, ok := h.uuidParam(c, "id")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBaseHandler_Debtor(t *testing.T) {
	h := &BaseHandler{}
	id := uuid.New()

	t.Run("kind is case-insensitive", func(t *testing.T) {
		c, _ := newTestContext()
		ref, ok := h.debtor(c, "staff", id.String())
		require.True(t, ok)
		assert.Equal(t, ledger.DebtorKindStaff, ref.Kind)
		assert.Equal(t, id, ref.ID)
	})

	t.Run("unknown kind", func(t *testing.T) {
		c, w := newTestContext()
		_, ok := h.debtor(c, "supplier", id.String())
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_DEBTOR_KIND", decodeResponse(t, w).Error.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		c, w := newTestContext()
		_, ok := h.debtor(c, "patient", "42")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
