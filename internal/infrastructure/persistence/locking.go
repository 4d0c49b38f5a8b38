package persistence

import (
	"fmt"

	"github.com/clinicpos/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// forUpdate adds SELECT ... FOR UPDATE. SQLite ignores the clause; its
// single writer already serializes the transactions.
func forUpdate(db *gorm.DB) *gorm.DB {
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// newConcurrencyConflict reports a failed version check
func newConcurrencyConflict(entity, ref string) error {
	return shared.NewDomainError(shared.CodeConcurrencyConflict,
		fmt.Sprintf("%s %s was modified by another transaction", entity, ref))
}
