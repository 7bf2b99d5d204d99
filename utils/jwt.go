package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("access token missing")
	ErrExpiredToken = errors.New("access token expired")
)

// AccessClaims are the claims the API server puts in terminal access tokens.
// The agent never holds the signing secret, so tokens are only decoded to
// decide whether a credential is usable, never to trust their content.
type AccessClaims struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	TenantSlug string `json:"tenant_slug,omitempty"`
	jwt.RegisteredClaims
}

// ParseAccessToken decodes tokenString without verifying its signature.
func ParseAccessToken(tokenString string) (*AccessClaims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// TokenUsable reports whether tokenString decodes and is not expired at now.
// Tokens without an exp claim are treated as usable.
func TokenUsable(tokenString string, now time.Time) error {
	claims, err := ParseAccessToken(tokenString)
	if err != nil {
		return err
	}
	if claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time) {
		return ErrExpiredToken
	}
	return nil
}

// SignTestToken mints an HS256 token; the fake API server in testutil uses it.
func SignTestToken(secret []byte, userID, role, tenant string, ttl time.Duration) (string, error) {
	claims := &AccessClaims{
		UserID:     userID,
		Role:       role,
		TenantSlug: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "RestaurantWebApp",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
