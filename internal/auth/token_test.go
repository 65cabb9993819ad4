package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer() *Issuer {
	return NewIssuer("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour, NewMemoryStore())
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	iss := newTestIssuer()
	ctx := context.Background()

	for _, payload := range []TokenPayload{
		{UserID: "user-1", Role: "admin", Email: "admin@example.com"},
		{UserID: "user-2", Role: "user"}, // no email
	} {
		pair, err := iss.Issue(payload)
		require.NoError(t, err)
		assert.Equal(t, 900, pair.ExpiresIn)
		assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

		got := iss.Verify(ctx, pair.AccessToken, KindAccess)
		require.NotNil(t, got)
		assert.Equal(t, payload, *got)

		got = iss.Verify(ctx, pair.RefreshToken, KindRefresh)
		require.NotNil(t, got)
		assert.Equal(t, payload, *got)
	}
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	iss := newTestIssuer()
	ctx := context.Background()

	pair, err := iss.Issue(TokenPayload{UserID: "u", Role: "user"})
	require.NoError(t, err)

	// A refresh token must not pass as an access token and vice versa:
	// the kinds are signed with distinct secrets.
	assert.Nil(t, iss.Verify(ctx, pair.RefreshToken, KindAccess))
	assert.Nil(t, iss.Verify(ctx, pair.AccessToken, KindRefresh))
}

func TestVerifyCollapsesFailures(t *testing.T) {
	iss := newTestIssuer()
	ctx := context.Background()

	// Malformed input.
	assert.Nil(t, iss.Verify(ctx, "", KindAccess))
	assert.Nil(t, iss.Verify(ctx, "not-a-jwt", KindAccess))

	// Wrong secret.
	other := NewIssuer("other-a", "other-r", time.Minute, time.Hour, nil)
	pair, err := other.Issue(TokenPayload{UserID: "u", Role: "user"})
	require.NoError(t, err)
	assert.Nil(t, iss.Verify(ctx, pair.AccessToken, KindAccess))

	// Wrong issuer/audience even with the right secret.
	forged := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u",
		"role": "user",
		"iss":  "someone-else",
		"aud":  TokenAudience,
		"exp":  time.Now().Add(time.Minute).Unix(),
	})
	s, err := forged.SignedString([]byte("access-secret"))
	require.NoError(t, err)
	assert.Nil(t, iss.Verify(ctx, s, KindAccess))

	// Expired.
	expired := NewIssuer("access-secret", "refresh-secret", -time.Minute, time.Hour, nil)
	pair, err = expired.Issue(TokenPayload{UserID: "u", Role: "user"})
	require.NoError(t, err)
	assert.Nil(t, iss.Verify(ctx, pair.AccessToken, KindAccess))
}

func TestRevokeInvalidatesUnexpiredToken(t *testing.T) {
	iss := newTestIssuer()
	ctx := context.Background()

	pair, err := iss.Issue(TokenPayload{UserID: "u", Role: "user"})
	require.NoError(t, err)
	require.NotNil(t, iss.Verify(ctx, pair.AccessToken, KindAccess))

	require.NoError(t, iss.Revoke(ctx, pair.AccessToken))
	assert.Nil(t, iss.Verify(ctx, pair.AccessToken, KindAccess))

	// Other tokens are unaffected.
	assert.NotNil(t, iss.Verify(ctx, pair.RefreshToken, KindRefresh))
}

func TestRotateIsSingleUse(t *testing.T) {
	iss := newTestIssuer()
	ctx := context.Background()

	payload := TokenPayload{UserID: "u", Role: "user", Email: "u@example.com"}
	pair, err := iss.Issue(payload)
	require.NoError(t, err)

	newPair, got := iss.Rotate(ctx, pair.RefreshToken)
	require.NotNil(t, newPair)
	require.NotNil(t, got)
	assert.Equal(t, payload, *got)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	// Replaying the rotated token must fail.
	replay, _ := iss.Rotate(ctx, pair.RefreshToken)
	assert.Nil(t, replay)

	// The freshly issued pair still works.
	assert.NotNil(t, iss.Verify(ctx, newPair.AccessToken, KindAccess))
	assert.NotNil(t, iss.Verify(ctx, newPair.RefreshToken, KindRefresh))
}

func TestRotateRejectsGarbage(t *testing.T) {
	iss := newTestIssuer()
	pair, got := iss.Rotate(context.Background(), "bogus")
	assert.Nil(t, pair)
	assert.Nil(t, got)
}

func TestMemoryStoreTTL(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Revoke(ctx, "t1", 0)) // forever
	require.NoError(t, s.Revoke(ctx, "t2", -time.Second))
	require.NoError(t, s.Revoke(ctx, "t3", time.Hour))

	assert.True(t, s.IsRevoked(ctx, "t1"))
	assert.True(t, s.IsRevoked(ctx, "t2")) // non-positive ttl means no deadline
	assert.True(t, s.IsRevoked(ctx, "t3"))
	assert.False(t, s.IsRevoked(ctx, "unknown"))
}
