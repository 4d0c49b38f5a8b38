package handler

import (
	"net/http"

	"github.com/clinicpos/backend/internal/domain/identity"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/clinicpos/backend/internal/infrastructure/logger"
	"github.com/clinicpos/backend/internal/interfaces/http/dto"
	"github.com/clinicpos/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDKey)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	resp := dto.NewErrorResponseWithRequestID(code, message, getRequestID(c))
	if statusCode == http.StatusBadRequest {
		resp.Error.Category = dto.CategoryInvalidInput
	}
	c.JSON(statusCode, resp)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// HandleError maps a service error onto the response. Domain errors keep
// their code and message; anything else is logged and reported as a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	status, resp := dto.ErrorFromDomain(err, getRequestID(c))
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, resp)
}

// actor returns the authenticated actor, answering 401 when there is none
func (h *BaseHandler) actor(c *gin.Context) (identity.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		h.Unauthorized(c, "Authentication required")
		return identity.Actor{}, false
	}
	return actor, true
}

// bindJSON binds and validates the body, answering 400 on failure
func (h *BaseHandler) bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// dateParam parses a YYYY-MM-DD path parameter
func (h *BaseHandler) dateParam(c *gin.Context, name string) (valueobject.BusinessDate, bool) {
	date, err := valueobject.ParseBusinessDate(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Path parameter "+name+" must be a date in YYYY-MM-DD format")
		return valueobject.BusinessDate{}, false
	}
	return date, true
}

// uuidParam parses a UUID path parameter
func (h *BaseHandler) uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Path parameter "+name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// debtor builds a debtor reference from a kind and an id string
func (h *BaseHandler) debtor(c *gin.Context, kind, id string) (ledger.DebtorRef, bool) {
	k, err := ledger.ParseDebtorKind(kind)
	if err != nil {
		h.HandleError(c, err)
		return ledger.DebtorRef{}, false
	}
	debtorID, err := uuid.Parse(id)
	if err != nil {
		h.BadRequest(c, "Debtor ID must be a UUID")
		return ledger.DebtorRef{}, false
	}
	return ledger.DebtorRef{Kind: k, ID: debtorID}, true
}
