package users

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account. PasswordHash never leaves the service
// boundary in serialized form.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	IsActive     bool
	IsSuperuser  bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
