package identity

import (
	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Actor is the staff member on whose behalf a ledger operation runs
type Actor struct {
	ID   uuid.UUID
	Role RoleCode
}

// NewActor creates an actor, validating the role code
func NewActor(id uuid.UUID, role string) (Actor, error) {
	if id == uuid.Nil {
		return Actor{}, shared.NewInvalidInputError("Actor ID cannot be empty")
	}
	code, err := ParseRoleCode(role)
	if err != nil {
		return Actor{}, err
	}
	return Actor{ID: id, Role: code}, nil
}

// Validate checks that the actor carries an identity and a role
func (a Actor) Validate() error {
	if a.ID == uuid.Nil {
		return shared.NewInvalidInputError("Actor ID cannot be empty")
	}
	if a.Role == "" {
		return shared.NewInvalidInputError("Actor role cannot be empty")
	}
	return nil
}
