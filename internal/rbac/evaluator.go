package rbac

import (
	"github.com/google/uuid"

	"github.com/keystone-id/keystone/internal/identity"
	"github.com/keystone-id/keystone/internal/shared"
)

// The evaluator functions are pure: they decide allow/deny over an
// already-resolved principal and perform no I/O.

// AllowPermission permits superusers and principals holding the permission.
func AllowPermission(p *identity.Principal, perm string) error {
	if p.HasPermission(perm) {
		return nil
	}
	return shared.ErrForbidden
}

// AllowRole permits superusers and principals holding the named role.
// Checking against a role that does not exist in the system is a lookup
// error, not a denial, so it reports shared.ErrNotFound.
func AllowRole(p *identity.Principal, roleName string, roleExists bool) error {
	if p != nil && p.Superuser {
		return nil
	}
	if !roleExists {
		return shared.ErrNotFound
	}
	if p.HasRole(roleName) {
		return nil
	}
	return shared.ErrForbidden
}

// AllowSelfOrPermission permits the target user themself, superusers, and
// principals holding the permission.
func AllowSelfOrPermission(p *identity.Principal, targetID uuid.UUID, perm string) error {
	if p != nil && p.UserID == targetID {
		return nil
	}
	return AllowPermission(p, perm)
}
