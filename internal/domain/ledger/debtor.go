package ledger

import (
	"fmt"
	"strings"

	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DebtorKind tells whether a debt is owed by a patient or a staff member
type DebtorKind string

const (
	DebtorKindPatient DebtorKind = "PATIENT"
	DebtorKindStaff   DebtorKind = "STAFF"
)

// IsValid checks if the kind is a known DebtorKind
func (k DebtorKind) IsValid() bool {
	return k == DebtorKindPatient || k == DebtorKindStaff
}

// String returns the string representation of DebtorKind
func (k DebtorKind) String() string {
	return string(k)
}

// ParseDebtorKind accepts "patient"/"staff" in any case
func ParseDebtorKind(s string) (DebtorKind, error) {
	k := DebtorKind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_DEBTOR_KIND",
			fmt.Sprintf("Debtor kind must be PATIENT or STAFF, got %q", s))
	}
	return k, nil
}

// DebtorRef points at exactly one patient or exactly one staff member
type DebtorRef struct {
	Kind DebtorKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

// NewPatientDebtor references a patient
func NewPatientDebtor(id uuid.UUID) DebtorRef {
	return DebtorRef{Kind: DebtorKindPatient, ID: id}
}

// NewStaffDebtor references a staff member
func NewStaffDebtor(id uuid.UUID) DebtorRef {
	return DebtorRef{Kind: DebtorKindStaff, ID: id}
}

// Validate checks the reference is complete
func (d DebtorRef) Validate() error {
	if !d.Kind.IsValid() {
		return shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_DEBTOR_KIND", "Debtor kind must be PATIENT or STAFF")
	}
	if d.ID == uuid.Nil {
		return shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_DEBTOR", "Debtor ID cannot be empty")
	}
	return nil
}

// String returns e.g. "PATIENT:5b1c..."
func (d DebtorRef) String() string {
	return string(d.Kind) + ":" + d.ID.String()
}
