package dto

import (
	"errors"
	"net/http"

	"github.com/clinicpos/backend/internal/domain/shared"
)

// Category codes mirror the domain error taxonomy
const (
	CategoryInvalidInput        = shared.CodeInvalidInput
	CategoryPermissionDenied    = shared.CodePermissionDenied
	CategoryInvalidState        = shared.CodeInvalidState
	CategoryNotFound            = shared.CodeNotFound
	CategoryConcurrencyConflict = shared.CodeConcurrencyConflict
	CategoryDuplicateRequest    = shared.CodeDuplicateRequest
)

// Transport-level error codes, raised before a request reaches the ledger
const (
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid    = "INVALID_TOKEN"
	ErrCodeTokenNotValid   = "TOKEN_NOT_VALID"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// CategoryHTTPStatus maps error categories to HTTP status codes
var CategoryHTTPStatus = map[string]int{
	CategoryInvalidInput:        http.StatusBadRequest,
	CategoryPermissionDenied:    http.StatusForbidden,
	CategoryInvalidState:        http.StatusConflict,
	CategoryNotFound:            http.StatusNotFound,
	CategoryConcurrencyConflict: http.StatusConflict,
	CategoryDuplicateRequest:    http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error category.
// Unknown categories are internal errors.
func GetHTTPStatus(category string) int {
	if status, ok := CategoryHTTPStatus[category]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorFromDomain builds the response for err. Domain errors keep their code
// and message; anything else is reported as an opaque internal error.
func ErrorFromDomain(err error, requestID string) (int, Response) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError,
			NewErrorResponseWithRequestID(ErrCodeInternal, "An unexpected error occurred", requestID)
	}
	resp := NewErrorResponseWithRequestID(de.Code, de.Message, requestID)
	resp.Error.Category = de.Category()
	return GetHTTPStatus(de.Category()), resp
}
