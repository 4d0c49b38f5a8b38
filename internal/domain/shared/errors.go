package shared

import "errors"

// Error category codes. Every failure reported by the ledger core carries one
// of these, possibly refined by a more specific code (see DomainError.Category).
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeInvalidState        = "INVALID_STATE"
	CodeNotFound            = "NOT_FOUND"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeDuplicateRequest    = "DUPLICATE_REQUEST"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	category string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Category returns the taxonomy bucket of the error. For errors created with
// NewDomainError it is the code itself.
func (e *DomainError) Category() string {
	if e.category != "" {
		return e.category
	}
	return e.Code
}

// Is reports whether target is a DomainError of the same category, so that
// errors.Is(err, ErrInvalidState) matches every invalid-state failure.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Category() == t.Category()
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewCategorizedError creates a domain error with a specific code that belongs
// to one of the category codes above.
func NewCategorizedError(category, code, message string) *DomainError {
	return &DomainError{
		Code:     code,
		Message:  message,
		category: category,
	}
}

// NewInvalidInputError creates an INVALID_INPUT error with the given message
func NewInvalidInputError(message string) *DomainError {
	return NewDomainError(CodeInvalidInput, message)
}

// NewPermissionDeniedError creates a PERMISSION_DENIED error with the given message
func NewPermissionDeniedError(message string) *DomainError {
	return NewDomainError(CodePermissionDenied, message)
}

// NewInvalidStateError creates an INVALID_STATE error with the given message
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(CodeInvalidState, message)
}

// NewNotFoundError creates a NOT_FOUND error with the given message
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrPermissionDenied    = NewDomainError(CodePermissionDenied, "Not permitted to perform this action")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrDuplicateRequest    = NewDomainError(CodeDuplicateRequest, "Request has already been processed")
)

// CategoryOf returns the category code of err, or "" if err is not a DomainError
func CategoryOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Category()
	}
	return ""
}
