package authsvc

import (
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken_RoundTrip(t *testing.T) {
	s := New("test-secret")
	token, err := s.GenerateToken("user-1", "Jane Doe")
	require.NoError(t, err)

	user, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
	assert.Equal(t, "Jane Doe", user.UserName)
}

func TestValidateToken_WrongSecretRejected(t *testing.T) {
	s := New("test-secret")
	token, err := s.GenerateToken("user-1", "Jane Doe")
	require.NoError(t, err)

	other := New("different-secret")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenExpirySevenDays(t *testing.T) {
	s := New("test-secret")
	token, err := s.GenerateToken("user-1", "name")
	require.NoError(t, err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, claims)
	require.NoError(t, err)

	delta := claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time)
	assert.InDelta(t, 7*24*time.Hour, delta, float64(time.Minute))
	assert.Equal(t, JWTIssuer, claims.Issuer)
}

func TestHashSecret_NeverEqualsPlaintext(t *testing.T) {
	h := hashSecret("plaintext-secret", "deadbeef")
	assert.NotEqual(t, "plaintext-secret", h)
	assert.Len(t, h, 64) // hex-encoded sha256
}

func TestAPIKeyFormat(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{12}\.[A-Za-z0-9]{32}$`)
	id, _ := randomHex(6)
	secret, _ := randomAlnum(32)
	assert.Regexp(t, re, id+"."+secret)
}
