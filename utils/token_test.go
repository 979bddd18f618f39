package authUtils

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	now := time.Now()
	tok, err := GenerateToken("s3cret", "user-1", time.Hour, now)
	require.NoError(t, err)

	uid, exp, err := ParseToken("s3cret", tok)
	require.NoError(t, err)
	require.Equal(t, "user-1", uid)
	require.Equal(t, now.Add(time.Hour).Unix(), exp.Unix())
}

func TestParseToken_Rejects(t *testing.T) {
	tok, err := GenerateToken("s3cret", "user-1", time.Hour, time.Now())
	require.NoError(t, err)

	_, _, err = ParseToken("other", tok)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := GenerateToken("s3cret", "user-1", time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	_, _, err = ParseToken("s3cret", expired)
	require.ErrorIs(t, err, ErrInvalidToken)

	noUser := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
	raw, err := noUser.SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, _, err = ParseToken("s3cret", raw)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateToken_NoSecret(t *testing.T) {
	_, err := GenerateToken("", "user-1", time.Hour, time.Now())
	require.Error(t, err)
}
