package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	iss, err := NewTokenIssuer(TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	})
	require.NoError(t, err)
	return iss
}

var alice = UserClaims{ID: 42, Username: "alice", Email: "a@x.com", FullName: "Alice A", Role: "tenant"}

func TestNewTokenIssuerRequiresSecrets(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{AccessSecret: "a"})
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewTokenIssuer(TokenConfig{RefreshSecret: "r"})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestNewTokenIssuerRejectsSharedSecret(t *testing.T) {
	_, err := NewTokenIssuer(TokenConfig{AccessSecret: "same", RefreshSecret: "same"})
	assert.ErrorIs(t, err, ErrSharedSecret)
}

func TestNewTokenIssuerDefaultsTTL(t *testing.T) {
	iss, err := NewTokenIssuer(TokenConfig{AccessSecret: "a", RefreshSecret: "r"})
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, iss.AccessTTL())
	assert.Equal(t, 7*24*time.Hour, iss.RefreshTTL())
}

func TestAccessTokenRoundTrip(t *testing.T) {
	iss := newTestIssuer(t)

	tok, err := iss.IssueAccessToken(alice)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tok.Exp, 2*time.Second)

	id, claims, err := iss.ParseAccessToken(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "a@x.com", claims.Email)
	assert.Equal(t, "Alice A", claims.FullName)
	assert.Equal(t, "tenant", claims.Role)
}

func TestRefreshTokenCarriesOnlySubject(t *testing.T) {
	iss := newTestIssuer(t)

	tok, err := iss.IssueRefreshToken(42)
	require.NoError(t, err)

	id, err := iss.ParseRefreshToken(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)

	parsed, _, err := jwt.NewParser().ParseUnverified(tok.Token, jwt.MapClaims{})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.NotContains(t, claims, "username")
	assert.NotContains(t, claims, "email")
	assert.NotContains(t, claims, "role")
}

func TestSecretsAreNotInterchangeable(t *testing.T) {
	iss := newTestIssuer(t)
	pair, err := iss.IssuePair(alice)
	require.NoError(t, err)

	_, err = iss.ParseRefreshToken(pair.Access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = iss.ParseAccessToken(pair.Refresh.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPairsAreUnique(t *testing.T) {
	frozen := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	iss := newTestIssuer(t).WithClock(func() time.Time { return frozen })

	a, err := iss.IssuePair(alice)
	require.NoError(t, err)
	b, err := iss.IssuePair(alice)
	require.NoError(t, err)

	assert.NotEqual(t, a.Refresh.Token, b.Refresh.Token)
	assert.NotEqual(t, a.Access.Token, b.Access.Token)
}

func TestExpiredTokensAreRejected(t *testing.T) {
	start := time.Now().UTC()
	iss := newTestIssuer(t).WithClock(func() time.Time { return start })

	pair, err := iss.IssuePair(alice)
	require.NoError(t, err)

	later := iss.WithClock(func() time.Time { return start.Add(2 * time.Minute) })
	_, _, err = later.ParseAccessToken(pair.Access.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = later.ParseRefreshToken(pair.Refresh.Token)
	assert.NoError(t, err)

	muchLater := iss.WithClock(func() time.Time { return start.Add(2 * time.Hour) })
	_, err = muchLater.ParseRefreshToken(pair.Refresh.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsTamperedAndForeignTokens(t *testing.T) {
	iss := newTestIssuer(t)
	tok, err := iss.IssueAccessToken(alice)
	require.NoError(t, err)

	parts := strings.Split(tok.Token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA"
	_, _, err = iss.ParseAccessToken(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = iss.ParseAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "42",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, _, err = iss.ParseAccessToken(none)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseRejectsMissingSubject(t *testing.T) {
	iss := newTestIssuer(t)
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("refresh-secret-for-tests"))
	require.NoError(t, err)

	_, err = iss.ParseRefreshToken(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
