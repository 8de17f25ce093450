// Package identity resolves bearer tokens into authenticated principals.
package identity

import (
	"github.com/google/uuid"
)

// Principal is the request-scoped authenticated identity. It is built fresh
// per request from a validated token plus one store lookup and must not be
// cached across requests.
type Principal struct {
	UserID      uuid.UUID
	Username    string
	Active      bool
	Superuser   bool
	RoleNames   []string
	Permissions []string
}

// HasPermission reports whether the principal carries the permission token.
// Superusers implicitly satisfy every permission.
func (p *Principal) HasPermission(perm string) bool {
	if p == nil {
		return false
	}
	if p.Superuser {
		return true
	}
	for _, granted := range p.Permissions {
		if granted == perm {
			return true
		}
	}
	return false
}

// HasRole reports whether the principal holds the named role. Superusers
// implicitly hold every role.
func (p *Principal) HasRole(name string) bool {
	if p == nil {
		return false
	}
	if p.Superuser {
		return true
	}
	for _, role := range p.RoleNames {
		if role == name {
			return true
		}
	}
	return false
}
