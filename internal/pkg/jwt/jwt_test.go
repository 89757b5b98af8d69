package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("secret")
	token, err := GenerateToken("u1", "alice@example.com", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, Issuer, claims.Issuer)
}

func TestParseToken_Rejects(t *testing.T) {
	secret := []byte("secret")

	expired, err := GenerateTokenAt("u1", "", secret, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	require.ErrorIs(t, err, ErrInvalidToken)

	token, err := GenerateToken("u1", "", secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("other"))
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("garbage", secret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateToken_EmptySecret(t *testing.T) {
	_, err := GenerateToken("u1", "", nil, time.Hour)
	require.Error(t, err)
}
