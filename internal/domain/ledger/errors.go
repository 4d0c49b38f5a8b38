package ledger

import (
	"fmt"

	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Specific error codes raised by the ledger. Each belongs to one of the
// shared categories.
const (
	CodeNotClosed         = "NOT_CLOSED"
	CodeReasonRequired    = "REASON_REQUIRED"
	CodePostingBlocked    = "POSTING_BLOCKED"
	CodeMovementNotFound  = "MOVEMENT_NOT_FOUND"
	CodeInvoiceNotFound   = "INVOICE_NOT_FOUND"
	CodeInvalidAmount     = "INVALID_AMOUNT"
	CodeSameAsWorkingDate = "SAME_AS_WORKING_DATE"
)

// NewNotClosedError is returned when reopening a date with no CLOSED record
func NewNotClosedError(date valueobject.BusinessDate) *shared.DomainError {
	return shared.NewCategorizedError(shared.CodeInvalidState, CodeNotClosed,
		fmt.Sprintf("Business date %s is not closed", date))
}

// NewReasonRequiredError is returned when an audited operation has no reason
func NewReasonRequiredError(operation string) *shared.DomainError {
	return shared.NewCategorizedError(shared.CodeInvalidInput, CodeReasonRequired,
		operation+" requires a reason")
}

// NewPostingBlockedError wraps a CanPost denial
func NewPostingBlockedError(reason string) *shared.DomainError {
	return shared.NewCategorizedError(shared.CodeInvalidState, CodePostingBlocked, reason)
}

// NewMovementNotFoundError is returned for an unknown cash movement id
func NewMovementNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewCategorizedError(shared.CodeNotFound, CodeMovementNotFound,
		fmt.Sprintf("Cash movement %s not found", id))
}

// NewInvoiceNotFoundError is returned for an unknown invoice id
func NewInvoiceNotFoundError(id uuid.UUID) *shared.DomainError {
	return shared.NewCategorizedError(shared.CodeNotFound, CodeInvoiceNotFound,
		fmt.Sprintf("Invoice %s not found", id))
}

// NewInvalidAmountError is returned for a zero or negative amount
func NewInvalidAmountError() *shared.DomainError {
	return shared.NewCategorizedError(shared.CodeInvalidInput, CodeInvalidAmount, "Amount must be greater than zero")
}
