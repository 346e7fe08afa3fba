package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/ispkb/store"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewTokenIssuer("secret", 30*time.Minute)
	token, err := issuer.Issue(&store.User{ID: 3, Username: "alice", Role: store.RoleAdmin})
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int32(3), claims.UserID)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, store.RoleAdmin, claims.Role)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestParseExpired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	issuer.now = func() time.Time { return issued }
	token, err := issuer.Issue(&store.User{ID: 1, Username: "bob"})
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.Parse(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestParseRejectsForeignTokens(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)

	_, err := issuer.Parse("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = issuer.Parse("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewTokenIssuer("other-secret", time.Minute).Issue(&store.User{ID: 1, Username: "bob"})
	require.NoError(t, err)
	_, err = issuer.Parse(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "ispkb", Subject: "bob"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractToken(t *testing.T) {
	assert.Equal(t, "abc", ExtractToken("Bearer abc", ""))
	assert.Equal(t, "abc", ExtractToken("bearer  abc ", "xyz"))
	assert.Equal(t, "xyz", ExtractToken("", "xyz"))
	assert.Equal(t, "xyz", ExtractToken("Basic dXNlcg==", "xyz"))
	assert.Empty(t, ExtractToken("", ""))
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("admin123")
	require.NoError(t, err)
	assert.NotEqual(t, "admin123", hash)
	assert.True(t, CheckPassword(hash, "admin123"))
	assert.False(t, CheckPassword(hash, "admin124"))
	assert.False(t, CheckPassword("", "admin123"))
}
