package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/keystone-id/keystone/internal/shared"
	"github.com/keystone-id/keystone/internal/token"
)

type fakeDirectory struct {
	subjects map[uuid.UUID]Subject
}

func (d *fakeDirectory) Lookup(_ context.Context, userID uuid.UUID) (Subject, error) {
	subject, ok := d.subjects[userID]
	if !ok {
		return Subject{}, shared.ErrNotFound
	}
	return subject, nil
}

func testFixture(t *testing.T) (*token.Codec, *token.Issuer, *fakeDirectory, *Resolver) {
	t.Helper()
	codec, err := token.NewCodec([]byte("resolver-test-secret"), "HS256")
	require.NoError(t, err)
	issuer := token.NewIssuer(codec, 30*time.Minute, 168*time.Hour)
	dir := &fakeDirectory{subjects: map[uuid.UUID]Subject{}}
	return codec, issuer, dir, NewResolver(codec, dir)
}

func TestResolveAccessSuccess(t *testing.T) {
	_, issuer, dir, resolver := testFixture(t)

	userID := uuid.New()
	dir.subjects[userID] = Subject{
		ID:          userID,
		Username:    "alice",
		Active:      true,
		RoleNames:   []string{"admin"},
		Permissions: []string{"user:manage", "role:manage"},
	}

	pair, err := issuer.Pair(userID.String())
	require.NoError(t, err)

	principal, err := resolver.ResolveAccess(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, userID, principal.UserID)
	require.Equal(t, "alice", principal.Username)
	require.True(t, principal.HasPermission("user:manage"))
	require.True(t, principal.HasRole("admin"))
	require.False(t, principal.HasPermission("other:perm"))
}

func TestResolveAccessRejectsRefreshToken(t *testing.T) {
	_, issuer, dir, resolver := testFixture(t)

	userID := uuid.New()
	dir.subjects[userID] = Subject{ID: userID, Active: true}

	pair, err := issuer.Pair(userID.String())
	require.NoError(t, err)

	_, err = resolver.ResolveAccess(context.Background(), pair.RefreshToken)
	var uerr *UnauthenticatedError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ReasonWrongTokenType, uerr.Reason)

	_, err = resolver.ResolveRefresh(context.Background(), pair.AccessToken)
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ReasonWrongTokenType, uerr.Reason)
}

func TestResolveAccessExpired(t *testing.T) {
	_, issuer, dir, resolver := testFixture(t)

	userID := uuid.New()
	dir.subjects[userID] = Subject{ID: userID, Active: true}

	pair, err := issuer.Pair(userID.String())
	require.NoError(t, err)

	// Move the resolver clock past the access expiry.
	resolver.WithNow(func() time.Time { return time.Now().Add(31 * time.Minute) })

	_, err = resolver.ResolveAccess(context.Background(), pair.AccessToken)
	var uerr *UnauthenticatedError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ReasonExpired, uerr.Reason)
}

func TestResolveAccessSignatureAndStructure(t *testing.T) {
	_, _, _, resolver := testFixture(t)

	otherCodec, err := token.NewCodec([]byte("different-secret"), "HS256")
	require.NoError(t, err)
	otherIssuer := token.NewIssuer(otherCodec, time.Minute, time.Hour)
	pair, err := otherIssuer.Pair(uuid.NewString())
	require.NoError(t, err)

	_, err = resolver.ResolveAccess(context.Background(), pair.AccessToken)
	var uerr *UnauthenticatedError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ReasonInvalidSignature, uerr.Reason)

	_, err = resolver.ResolveAccess(context.Background(), "garbage")
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ReasonMalformed, uerr.Reason)
}

func TestResolveAccessUnknownSubject(t *testing.T) {
	_, issuer, _, resolver := testFixture(t)

	pair, err := issuer.Pair(uuid.NewString())
	require.NoError(t, err)

	_, err = resolver.ResolveAccess(context.Background(), pair.AccessToken)
	var uerr *UnauthenticatedError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ReasonUnknownSubject, uerr.Reason)
}

func TestResolveAccessNonUUIDSubject(t *testing.T) {
	_, issuer, _, resolver := testFixture(t)

	pair, err := issuer.Pair("not-a-uuid")
	require.NoError(t, err)

	_, err = resolver.ResolveAccess(context.Background(), pair.AccessToken)
	var uerr *UnauthenticatedError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ReasonUnknownSubject, uerr.Reason)
}

func TestResolveAccessInactive(t *testing.T) {
	_, issuer, dir, resolver := testFixture(t)

	userID := uuid.New()
	dir.subjects[userID] = Subject{ID: userID, Active: false}

	pair, err := issuer.Pair(userID.String())
	require.NoError(t, err)

	_, err = resolver.ResolveAccess(context.Background(), pair.AccessToken)
	var uerr *UnauthenticatedError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, ReasonInactive, uerr.Reason)
}

func TestSuperuserBypassesGrants(t *testing.T) {
	_, issuer, dir, resolver := testFixture(t)

	userID := uuid.New()
	dir.subjects[userID] = Subject{ID: userID, Active: true, Superuser: true}

	pair, err := issuer.Pair(userID.String())
	require.NoError(t, err)

	principal, err := resolver.ResolveAccess(context.Background(), pair.AccessToken)
	require.NoError(t, err)
	require.True(t, principal.HasPermission("anything:at:all"))
	require.True(t, principal.HasRole("any-role"))
}
