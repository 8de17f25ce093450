package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/keystone-id/keystone/internal/shared"
	"github.com/keystone-id/keystone/internal/token"
)

// Subject is the stored account view the resolver needs: the user row plus
// the union of permission tokens across all assigned roles.
type Subject struct {
	ID          uuid.UUID
	Username    string
	Active      bool
	Superuser   bool
	RoleNames   []string
	Permissions []string
}

// Directory looks up a subject by id. Implementations return
// shared.ErrNotFound when no such user exists.
type Directory interface {
	Lookup(ctx context.Context, userID uuid.UUID) (Subject, error)
}

// Resolver validates bearer tokens and produces principals.
type Resolver struct {
	codec     *token.Codec
	directory Directory
	now       func() time.Time
}

// NewResolver constructs a Resolver.
func NewResolver(codec *token.Codec, directory Directory) *Resolver {
	return &Resolver{codec: codec, directory: directory, now: time.Now}
}

// WithNow overrides the resolver clock for testing.
func (r *Resolver) WithNow(fn func() time.Time) {
	if fn != nil {
		r.now = fn
	}
}

// ResolveAccess validates an access token and returns its principal.
func (r *Resolver) ResolveAccess(ctx context.Context, raw string) (*Principal, error) {
	return r.resolve(ctx, raw, token.TypeAccess)
}

// ResolveRefresh validates a refresh token and returns its principal.
func (r *Resolver) ResolveRefresh(ctx context.Context, raw string) (*Principal, error) {
	return r.resolve(ctx, raw, token.TypeRefresh)
}

// resolve applies the validation steps in order, short-circuiting on the
// first failure: signature/structure, token type, expiry, subject lookup,
// active flag.
func (r *Resolver) resolve(ctx context.Context, raw string, want token.Type) (*Principal, error) {
	claims, err := r.codec.Decode(raw)
	if err != nil {
		if errors.Is(err, token.ErrInvalidSignature) {
			return nil, unauthenticated(ReasonInvalidSignature)
		}
		return nil, unauthenticated(ReasonMalformed)
	}

	if claims.Type != want {
		return nil, unauthenticated(ReasonWrongTokenType)
	}

	if !claims.ExpiresAt.After(r.now()) {
		return nil, unauthenticated(ReasonExpired)
	}

	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, unauthenticated(ReasonUnknownSubject)
	}

	subject, err := r.directory.Lookup(ctx, subjectID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, unauthenticated(ReasonUnknownSubject)
		}
		return nil, err
	}

	if !subject.Active {
		return nil, unauthenticated(ReasonInactive)
	}

	return &Principal{
		UserID:      subject.ID,
		Username:    subject.Username,
		Active:      subject.Active,
		Superuser:   subject.Superuser,
		RoleNames:   subject.RoleNames,
		Permissions: subject.Permissions,
	}, nil
}
