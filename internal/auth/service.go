package auth

import (
	"context"

	"github.com/keystone-id/keystone/internal/identity"
	"github.com/keystone-id/keystone/internal/shared"
	"github.com/keystone-id/keystone/internal/token"
	"github.com/keystone-id/keystone/internal/users"
)

// Authenticator verifies username/password credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (users.User, error)
	Create(ctx context.Context, input users.CreateInput) (users.User, error)
}

// Service handles login, refresh and self-registration.
type Service struct {
	users    Authenticator
	issuer   *token.Issuer
	resolver *identity.Resolver
	throttle *Throttle
}

// NewService builds Service instance.
func NewService(userSvc Authenticator, issuer *token.Issuer, resolver *identity.Resolver, throttle *Throttle) *Service {
	return &Service{users: userSvc, issuer: issuer, resolver: resolver, throttle: throttle}
}

// Login verifies the credentials and mints a fresh token pair. Inactive
// accounts are reported distinctly from bad credentials.
func (s *Service) Login(ctx context.Context, username, password, ip string) (token.Pair, error) {
	if !s.throttle.Allow(ctx, username, ip) {
		return token.Pair{}, shared.ErrTooManyAttempts
	}

	user, err := s.users.Authenticate(ctx, username, password)
	if err != nil {
		return token.Pair{}, err
	}
	if !user.IsActive {
		return token.Pair{}, shared.ErrInactiveAccount
	}

	pair, err := s.issuer.Pair(user.ID.String())
	if err != nil {
		return token.Pair{}, err
	}
	s.throttle.Reset(ctx, username, ip)
	return pair, nil
}

// Refresh validates a refresh token and mints a new pair. The presented
// token stays usable until its own expiry.
func (s *Service) Refresh(ctx context.Context, raw string) (token.Pair, error) {
	principal, err := s.resolver.ResolveRefresh(ctx, raw)
	if err != nil {
		return token.Pair{}, err
	}
	return s.issuer.Pair(principal.UserID.String())
}

// Register creates a regular active account.
func (s *Service) Register(ctx context.Context, username, email, password string) (users.User, error) {
	return s.users.Create(ctx, users.CreateInput{
		Username: username,
		Email:    email,
		Password: password,
		IsActive: true,
	})
}
