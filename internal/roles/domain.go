package roles

import (
	"time"

	"github.com/google/uuid"
)

// Role groups a named set of permission tokens.
type Role struct {
	ID          uuid.UUID
	Name        string
	Description string
	Permissions []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Member is a user holding a role, as listed under a role resource.
type Member struct {
	ID       uuid.UUID
	Username string
	Email    string
}
