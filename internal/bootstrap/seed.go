package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/keystone-id/keystone/internal/roles"
	"github.com/keystone-id/keystone/internal/shared"
	"github.com/keystone-id/keystone/internal/users"
)

// AdminAccount carries the initial superuser credentials. Seeding the
// account is skipped when the password is empty.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// RoleStore is the slice of the roles service seeding needs.
type RoleStore interface {
	GetByName(ctx context.Context, name string) (roles.Role, error)
	Create(ctx context.Context, input roles.CreateInput) (roles.Role, error)
}

// UserStore is the slice of the users service seeding needs.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (users.User, error)
	Create(ctx context.Context, input users.CreateInput) (users.User, error)
}

// Assigner grants a role to a user.
type Assigner interface {
	Assign(ctx context.Context, userID, roleID uuid.UUID) error
}

var defaultRoles = []roles.CreateInput{
	{
		Name:        "admin",
		Description: "full administrative access",
		Permissions: []string{"user:manage", "role:manage"},
	},
	{
		Name:        "user",
		Description: "regular account",
		Permissions: []string{"profile:read", "profile:update"},
	},
}

// Seed ensures the default roles and the initial superuser exist. Every
// step is idempotent; rerunning against a populated store is a no-op.
func Seed(ctx context.Context, logger *slog.Logger, roleStore RoleStore, userStore UserStore, assigner Assigner, admin AdminAccount) error {
	byName := make(map[string]uuid.UUID, len(defaultRoles))

	for _, input := range defaultRoles {
		role, err := roleStore.GetByName(ctx, input.Name)
		if errors.Is(err, shared.ErrNotFound) {
			role, err = roleStore.Create(ctx, input)
			if errors.Is(err, shared.ErrDuplicate) {
				role, err = roleStore.GetByName(ctx, input.Name)
			}
			if err == nil {
				logger.Info("seeded role", slog.String("name", input.Name))
			}
		}
		if err != nil {
			return fmt.Errorf("bootstrap: seed role %s: %w", input.Name, err)
		}
		byName[role.Name] = role.ID
	}

	if admin.Password == "" {
		return nil
	}

	account, err := userStore.GetByUsername(ctx, admin.Username)
	if errors.Is(err, shared.ErrNotFound) {
		account, err = userStore.Create(ctx, users.CreateInput{
			Username:  admin.Username,
			Email:     admin.Email,
			Password:  admin.Password,
			IsActive:  true,
			Superuser: true,
		})
		if errors.Is(err, shared.ErrDuplicate) {
			account, err = userStore.GetByUsername(ctx, admin.Username)
		}
		if err == nil {
			logger.Info("seeded superuser", slog.String("username", admin.Username))
		}
	}
	if err != nil {
		return fmt.Errorf("bootstrap: seed superuser: %w", err)
	}

	if err := assigner.Assign(ctx, account.ID, byName["admin"]); err != nil {
		return fmt.Errorf("bootstrap: assign admin role: %w", err)
	}
	return nil
}
