// Package auth provides JWT session tokens and the middleware that turns
// them into a viewer identity.
//
// SESSION FLOW:
// 1. The mobile client signs in with the identity provider and exchanges
//    that for a session JWT from this server.
// 2. Subsequent API calls carry the JWT in an Authorization: Bearer
//    header; the middleware validates it and puts the uid in the request
//    context.
// 3. Reads stay open to anonymous clients, which identify themselves for
//    like-tracking with an X-Device-ID header instead.
//
// WHY JWT?
// The token is stateless — uid and expiry live inside the signed payload,
// so validation needs no session store, only the HMAC secret.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "askwall"

// TokenService signs and verifies session tokens. The same HMAC secret
// does both; it should be at least 32 bytes of random data in production
// (JWT_SECRET=$(openssl rand -hex 32)).
type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// claims is the JWT payload. The uid travels in "sub", the standard
// claim for who the token belongs to.
type claims struct {
	jwt.RegisteredClaims
}

// Generate issues a session token for the uid. Lifetime is 7 days —
// these are mobile sessions, not browser tabs, and the client silently
// re-exchanges its provider credential when one expires.
func (s *TokenService) Generate(uid string) (string, error) {
	return s.GenerateWithDuration(uid, 7*24*time.Hour)
}

// GenerateWithDuration issues a token with a custom expiry. Used by
// tests to mint already-expired tokens.
func (s *TokenService) GenerateWithDuration(uid string, d time.Duration) (string, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string and returns its uid.
//
// The library checks signature, expiry, and issuer. Pinning the
// algorithm with WithValidMethods matters: without it an attacker could
// try an algorithm-confusion token ("alg":"none") and hope the parser
// accepts it.
func (s *TokenService) Validate(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}
