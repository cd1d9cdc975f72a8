// Package auth verifies bearer tokens issued by the dashboard's
// authentication service. Identity, users, and sessions live entirely in
// that external service; this package only checks that a presented token is
// genuine and unexpired.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrShortSecret  = errors.New("secret must be at least 32 characters")
)

// Claims are the token claims the engine cares about.
type Claims struct {
	UserID string `json:"user_id"`
	OrgKey string `json:"org_key"`
	jwt.RegisteredClaims
}

// TokenValidator validates HS256 bearer tokens against a shared secret.
type TokenValidator struct {
	secretKey []byte
	issuer    string
}

// NewTokenValidator creates a validator. Returns an error if the secret is
// shorter than 32 characters (security requirement).
func NewTokenValidator(secret, issuer string) (*TokenValidator, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	return &TokenValidator{secretKey: []byte(secret), issuer: issuer}, nil
}

// ValidateToken parses and verifies a bearer token, returning its claims.
func (v *TokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			return v.secretKey, nil
		}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
