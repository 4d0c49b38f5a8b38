package identity

import (
	"regexp"
	"strings"

	"github.com/clinicpos/backend/internal/domain/shared"
)

// RoleCode identifies a staff role. Roles themselves are managed by the
// user administration screens; the ledger only needs the code.
type RoleCode string

// Predefined role codes
const (
	RoleCodeAdmin      RoleCode = "ADMIN"
	RoleCodeManager    RoleCode = "MANAGER"
	RoleCodeCashier    RoleCode = "CASHIER"
	RoleCodeAccountant RoleCode = "ACCOUNTANT"
)

var roleCodeRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// ParseRoleCode normalizes and validates a role code
func ParseRoleCode(code string) (RoleCode, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_ROLE_CODE", "Role code cannot be empty")
	}
	if len(code) > 50 {
		return "", shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_ROLE_CODE", "Role code cannot exceed 50 characters")
	}
	if !roleCodeRegex.MatchString(code) {
		return "", shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_ROLE_CODE",
			"Role code must start with a letter and contain only letters, numbers, and underscores")
	}
	return RoleCode(code), nil
}

// String returns the role code as a string
func (r RoleCode) String() string {
	return string(r)
}
