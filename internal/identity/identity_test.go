package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanMutate(t *testing.T) {
	owner := Identity{UserID: "u-1", Role: RoleUser}
	other := Identity{UserID: "u-2", Role: RoleUser}
	admin := Identity{UserID: "u-3", Role: RoleAdmin}

	assert.True(t, owner.CanMutate("u-1"))
	assert.False(t, other.CanMutate("u-1"))
	assert.True(t, admin.CanMutate("u-1"))
	assert.False(t, Identity{}.CanMutate(""))
}

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, err := FromContext(ctx)
	assert.ErrorIs(t, err, ErrNoIdentityInContext)

	ctx = WithIdentity(ctx, Identity{UserID: "u-1", Role: RoleAdmin})
	ctx = WithRequestID(ctx, "req-1")

	id, err := FromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.UserID)
	assert.True(t, id.IsAdmin())

	reqID, err := RequestIDFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "req-1", reqID)
}

func TestTokenIssuer_IssueAndParse(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	token, err := issuer.Issue(Identity{UserID: "u-1", Email: "agent@example.com", Role: RoleAdmin}, time.Hour)
	require.NoError(t, err)

	id, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", id.UserID)
	assert.Equal(t, "agent@example.com", id.Email)
	assert.Equal(t, RoleAdmin, id.Role)
}

func TestTokenIssuer_RejectsForeignSignature(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)
	other, err := NewTokenIssuer("other")
	require.NoError(t, err)

	token, err := other.Issue(Identity{UserID: "u-1", Role: RoleUser}, time.Hour)
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_RejectsExpired(t *testing.T) {
	issuer, err := NewTokenIssuer("secret")
	require.NoError(t, err)

	token, err := issuer.Issue(Identity{UserID: "u-1"}, -time.Minute)
	require.NoError(t, err)

	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("")
	assert.Error(t, err)
}
