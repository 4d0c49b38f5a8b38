package identity

import (
	"context"
	"fmt"
)

// GrantSource supplies the role to permission mapping. The mapping is
// maintained outside the ledger; the gate only reads it.
type GrantSource interface {
	// HasGrant reports whether role has been granted code
	HasGrant(ctx context.Context, role RoleCode, code PermissionCode) (bool, error)
}

// PermissionGate decides whether an actor may perform a gated ledger operation
type PermissionGate struct {
	grants    GrantSource
	adminRole RoleCode
}

// NewPermissionGate creates a gate. An empty adminRole falls back to RoleCodeAdmin.
func NewPermissionGate(grants GrantSource, adminRole RoleCode) *PermissionGate {
	if adminRole == "" {
		adminRole = RoleCodeAdmin
	}
	return &PermissionGate{
		grants:    grants,
		adminRole: adminRole,
	}
}

// IsAdmin reports whether the actor holds the administrator role
func (g *PermissionGate) IsAdmin(actor Actor) bool {
	return actor.Role == g.adminRole
}

// Allows reports whether actor holds code. Administrators hold every code.
func (g *PermissionGate) Allows(ctx context.Context, actor Actor, code PermissionCode) (bool, error) {
	if g.IsAdmin(actor) {
		return true, nil
	}
	if !code.IsValid() || actor.Role == "" {
		return false, nil
	}
	ok, err := g.grants.HasGrant(ctx, actor.Role, code)
	if err != nil {
		return false, fmt.Errorf("failed to look up %s grant for role %s: %w", code, actor.Role, err)
	}
	return ok, nil
}

// StaticGrants is an in-memory GrantSource, useful for single-workstation
// deployments configured from file and for tests
type StaticGrants map[RoleCode][]PermissionCode

// HasGrant implements GrantSource
func (s StaticGrants) HasGrant(_ context.Context, role RoleCode, code PermissionCode) (bool, error) {
	for _, c := range s[role] {
		if c == code {
			return true, nil
		}
	}
	return false, nil
}
