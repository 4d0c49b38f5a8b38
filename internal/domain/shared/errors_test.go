package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_IsMatchesCategory(t *testing.T) {
	notClosed := NewCategorizedError(CodeInvalidState, "NOT_CLOSED", "2024-03-15 is not closed")

	assert.True(t, errors.Is(notClosed, ErrInvalidState))
	assert.False(t, errors.Is(notClosed, ErrNotFound))
	assert.Equal(t, "NOT_CLOSED", notClosed.Code)
	assert.Equal(t, CodeInvalidState, notClosed.Category())

	wrapped := fmt.Errorf("reopen failed: %w", notClosed)
	assert.True(t, errors.Is(wrapped, ErrInvalidState))
	assert.Equal(t, CodeInvalidState, CategoryOf(wrapped))
}

func TestDomainError_PlainCodeIsItsOwnCategory(t *testing.T) {
	err := NewInvalidInputError("Amount must be positive")

	assert.Equal(t, CodeInvalidInput, err.Category())
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "Amount must be positive", err.Error())
}

func TestCategoryOf_NonDomainError(t *testing.T) {
	assert.Equal(t, "", CategoryOf(errors.New("boom")))
	assert.Equal(t, "", CategoryOf(nil))
}
