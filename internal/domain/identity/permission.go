package identity

import (
	"strings"

	"github.com/clinicpos/backend/internal/domain/shared"
)

// PermissionCode is the closed set of elevated ledger permissions.
// Anything outside this set cannot be granted or checked.
type PermissionCode string

const (
	// PermissionDateReopen allows reopening closed dates and posting to them
	PermissionDateReopen PermissionCode = "DATE_REOPEN"
	// PermissionDateCorrection allows moving an invoice to another business date
	PermissionDateCorrection PermissionCode = "DATE_CORRECTION"
)

// AllPermissionCodes returns every known permission code
func AllPermissionCodes() []PermissionCode {
	return []PermissionCode{PermissionDateReopen, PermissionDateCorrection}
}

// ParsePermissionCode converts a stored or user supplied string into a PermissionCode
func ParsePermissionCode(code string) (PermissionCode, error) {
	p := PermissionCode(strings.ToUpper(strings.TrimSpace(code)))
	if !p.IsValid() {
		return "", shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_PERMISSION_CODE",
			"Unknown permission code: "+code)
	}
	return p, nil
}

// IsValid reports whether the code belongs to the known set
func (p PermissionCode) IsValid() bool {
	switch p {
	case PermissionDateReopen, PermissionDateCorrection:
		return true
	default:
		return false
	}
}

// String returns the permission code as a string
func (p PermissionCode) String() string {
	return string(p)
}
