package roles

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/keystone-id/keystone/internal/platform/httpx"
	"github.com/keystone-id/keystone/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context, p shared.Pagination) ([]Role, error)
	FindByID(ctx context.Context, id uuid.UUID) (Role, error)
	FindByName(ctx context.Context, name string) (Role, error)
	Create(ctx context.Context, role Role) (Role, error)
	Update(ctx context.Context, role Role) (Role, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ForUser(ctx context.Context, userID uuid.UUID) ([]Role, error)
	Members(ctx context.Context, roleID uuid.UUID) ([]Member, error)
}

// CreateInput carries the fields for a new role.
type CreateInput struct {
	Name        string
	Description string
	Permissions []string
}

// UpdateInput carries the optional fields of a role patch.
type UpdateInput struct {
	Name        *string
	Description *string
	Permissions *[]string
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns roles within the pagination window.
func (s *Service) List(ctx context.Context, p shared.Pagination) ([]Role, error) {
	return s.repo.List(ctx, p)
}

// Get fetches a role by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Role, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByName fetches a role by name.
func (s *Service) GetByName(ctx context.Context, name string) (Role, error) {
	return s.repo.FindByName(ctx, name)
}

// Create inserts a new role with a fresh id.
func (s *Service) Create(ctx context.Context, input CreateInput) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", httpx.ErrValidation)
	}
	return s.repo.Create(ctx, Role{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Permissions: normalizePermissions(input.Permissions),
	})
}

// Update applies a partial update to an existing role.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Role, error) {
	role, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Role{}, fmt.Errorf("%w: role name required", httpx.ErrValidation)
		}
		role.Name = name
	}
	if input.Description != nil {
		role.Description = strings.TrimSpace(*input.Description)
	}
	if input.Permissions != nil {
		role.Permissions = normalizePermissions(*input.Permissions)
	}
	return s.repo.Update(ctx, role)
}

// Delete removes a role.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// ForUser lists the roles assigned to a user.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) ([]Role, error) {
	return s.repo.ForUser(ctx, userID)
}

// Members lists the users holding a role.
func (s *Service) Members(ctx context.Context, roleID uuid.UUID) ([]Member, error) {
	if _, err := s.repo.FindByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.Members(ctx, roleID)
}

func normalizePermissions(perms []string) []string {
	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
