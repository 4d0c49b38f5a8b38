package ledger

import (
	"context"

	"github.com/clinicpos/backend/internal/domain/identity"
)

// actorRights is the actor's standing with the permission gate, resolved
// once before a transaction starts so no grant lookup runs while rows are
// locked
type actorRights struct {
	actor      identity.Actor
	admin      bool
	reopen     bool
	correction bool
}

func resolveRights(ctx context.Context, gate *identity.PermissionGate, actor identity.Actor) (actorRights, error) {
	rights := actorRights{actor: actor, admin: gate.IsAdmin(actor)}
	if rights.admin {
		rights.reopen = true
		rights.correction = true
		return rights, nil
	}
	var err error
	if rights.reopen, err = gate.Allows(ctx, actor, identity.PermissionDateReopen); err != nil {
		return actorRights{}, err
	}
	if rights.correction, err = gate.Allows(ctx, actor, identity.PermissionDateCorrection); err != nil {
		return actorRights{}, err
	}
	return rights, nil
}
