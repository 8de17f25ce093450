package rbac

import (
	"context"

	"github.com/google/uuid"

	"github.com/keystone-id/keystone/internal/identity"
	"github.com/keystone-id/keystone/internal/shared"
)

// RepositoryPort defines data access methods for assignments.
type RepositoryPort interface {
	UserExists(ctx context.Context, userID uuid.UUID) (bool, error)
	RoleExists(ctx context.Context, roleID uuid.UUID) (bool, error)
	RoleNameExists(ctx context.Context, name string) (bool, error)
	InsertAssignment(ctx context.Context, userID, roleID uuid.UUID) error
	DeleteAssignment(ctx context.Context, userID, roleID uuid.UUID) (bool, error)
	UserGrants(ctx context.Context, userID uuid.UUID) (Grants, error)
	FindSubject(ctx context.Context, userID uuid.UUID) (identity.Subject, error)
}

// Service orchestrates assignment mutations and principal resolution data.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Assign links a role to a user. Assigning an already-assigned role is a
// no-op success; a missing user or role is shared.ErrNotFound.
func (s *Service) Assign(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := s.requirePair(ctx, userID, roleID); err != nil {
		return err
	}
	return s.repo.InsertAssignment(ctx, userID, roleID)
}

// Unassign removes a role from a user. A missing user, missing role, or
// missing assignment all report shared.ErrNotFound.
func (s *Service) Unassign(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := s.requirePair(ctx, userID, roleID); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteAssignment(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if !deleted {
		return shared.ErrNotFound
	}
	return nil
}

// EffectivePermissions returns the deduplicated permission union across all
// of the user's assigned roles.
func (s *Service) EffectivePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	grants, err := s.repo.UserGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	return grants.Permissions, nil
}

// RoleExistsByName reports whether a role with the given name exists.
func (s *Service) RoleExistsByName(ctx context.Context, name string) (bool, error) {
	return s.repo.RoleNameExists(ctx, name)
}

// Lookup implements identity.Directory: the user row plus its grants.
func (s *Service) Lookup(ctx context.Context, userID uuid.UUID) (identity.Subject, error) {
	subject, err := s.repo.FindSubject(ctx, userID)
	if err != nil {
		return identity.Subject{}, err
	}
	grants, err := s.repo.UserGrants(ctx, userID)
	if err != nil {
		return identity.Subject{}, err
	}
	subject.RoleNames = grants.RoleNames
	subject.Permissions = grants.Permissions
	return subject, nil
}

func (s *Service) requirePair(ctx context.Context, userID, roleID uuid.UUID) error {
	userOK, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !userOK {
		return shared.ErrNotFound
	}
	roleOK, err := s.repo.RoleExists(ctx, roleID)
	if err != nil {
		return err
	}
	if !roleOK {
		return shared.ErrNotFound
	}
	return nil
}

var _ identity.Directory = (*Service)(nil)
