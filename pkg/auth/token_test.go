package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestNewTokenValidator_RejectsShortSecret(t *testing.T) {
	_, err := NewTokenValidator("too-short", "")
	assert.ErrorIs(t, err, ErrShortSecret)
}

func TestValidateToken_RoundTrip(t *testing.T) {
	v, err := NewTokenValidator(testSecret, "seclens")
	require.NoError(t, err)

	signed := signToken(t, testSecret, Claims{
		UserID: "user-1",
		OrgKey: "org-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "seclens",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	claims, err := v.ValidateToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "org-1", claims.OrgKey)
}

func TestValidateToken_Expired(t *testing.T) {
	v, err := NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	signed := signToken(t, testSecret, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	_, err = v.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	v, err := NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	signed := signToken(t, "another-secret-another-secret-32", Claims{UserID: "user-1"})

	_, err = v.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongIssuer(t *testing.T) {
	v, err := NewTokenValidator(testSecret, "seclens")
	require.NoError(t, err)

	signed := signToken(t, testSecret, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	_, err = v.ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	v, err := NewTokenValidator(testSecret, "")
	require.NoError(t, err)

	_, err = v.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
