// Package rbac owns role assignments and authorization decisions.
package rbac

import (
	"time"

	"github.com/google/uuid"
)

// Assignment links a user to a role. The (user, role) pair is its identity;
// there is at most one assignment per pair.
type Assignment struct {
	UserID     uuid.UUID
	RoleID     uuid.UUID
	AssignedAt time.Time
}

// Grants is the role/permission view of one user: assigned role names and
// the deduplicated union of permission tokens across those roles.
type Grants struct {
	RoleNames   []string
	Permissions []string
}
