package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newAuth(t *testing.T, secret string) (*Authenticator, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(epoch)
	a, err := NewAuthenticator(Config{JWTSecret: secret, TokenTTL: time.Hour}, clk)
	require.NoError(t, err)
	return a, clk
}

func TestIssueAndParse(t *testing.T) {
	a, _ := newAuth(t, "0123456789abcdef0123")

	token, expires, err := a.Issue("session-1")
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Hour), expires)

	claims, err := a.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "session-1", claims.SessionID())
	assert.Equal(t, Issuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejects(t *testing.T) {
	a, clk := newAuth(t, "0123456789abcdef0123")
	other, _ := newAuth(t, "fedcba9876543210fedc")

	token, _, err := a.Issue("session-1")
	require.NoError(t, err)

	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Parse("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "session-1", "iss": Issuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = a.Parse(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clk.Advance(2 * time.Hour)
	_, err = a.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewAuthenticatorValidation(t *testing.T) {
	_, err := NewAuthenticator(Config{JWTSecret: "short", TokenTTL: time.Hour}, clock.NewManual(epoch))
	assert.Error(t, err)

	_, err = NewAuthenticator(Config{JWTSecret: "0123456789abcdef0123"}, clock.NewManual(epoch))
	assert.Error(t, err)
}

func TestFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/session", nil)
	_, err := FromRequest(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Bearer abc.def.ghi")
	token, err := FromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	r.Header.Set("Authorization", "Basic abc")
	_, err = FromRequest(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	ws := httptest.NewRequest("GET", "/api/stream?token=xyz", nil)
	token, err = FromRequest(ws)
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)
}
