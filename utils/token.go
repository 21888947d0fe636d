package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims are the claims the client cares about in a backend-issued token
type TokenClaims struct {
	Subject   string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// ParseTokenClaims reads the claims of a JWT without verifying its signature.
// The signing key lives on the backend; the client only peeks at exp so it
// can drop a dead token without a round trip.
func ParseTokenClaims(tokenString string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	out := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("invalid exp claim: %w", err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}

// TokenExpired reports whether the token's exp claim is before now.
// Tokens that are not JWTs, or that have no exp, are never considered expired.
func TokenExpired(tokenString string, now time.Time) bool {
	claims, err := ParseTokenClaims(tokenString)
	if err != nil || claims.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(claims.ExpiresAt)
}
