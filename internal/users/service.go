package users

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/keystone-id/keystone/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, p shared.Pagination) ([]User, error)
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Username  string
	Email     string
	Password  string
	IsActive  bool
	Superuser bool
}

// UpdateInput carries the optional fields of a user patch.
type UpdateInput struct {
	Username *string
	Email    *string
	IsActive *bool
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	hasher Hasher
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, hasher Hasher) *Service {
	return &Service{repo: repo, hasher: hasher}
}

// List returns users within the pagination window.
func (s *Service) List(ctx context.Context, p shared.Pagination) ([]User, error) {
	return s.repo.List(ctx, p)
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// GetByUsername fetches a user by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (User, error) {
	return s.repo.FindByUsername(ctx, username)
}

// Create hashes the password and inserts the account. Uniqueness of
// username and email is enforced by the store, not checked here.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return User{}, err
	}
	return s.repo.Create(ctx, User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(input.Username),
		Email:        strings.TrimSpace(input.Email),
		PasswordHash: hash,
		IsActive:     input.IsActive,
		IsSuperuser:  input.Superuser,
	})
}

// Update applies a partial update to an existing user.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if input.Username != nil {
		user.Username = strings.TrimSpace(*input.Username)
	}
	if input.Email != nil {
		user.Email = strings.TrimSpace(*input.Email)
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	return s.repo.Update(ctx, user)
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

// Authenticate verifies username/password credentials. It does not check
// the active flag; the login boundary reports inactive accounts separately.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return User{}, shared.ErrInvalidCredentials
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return User{}, shared.ErrInvalidCredentials
	}
	return user, nil
}
