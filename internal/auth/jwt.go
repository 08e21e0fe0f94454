// Package auth handles sign-in and sessions for the repository directory.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User visits /auth/github/login and is redirected to GitHub
//  2. GitHub calls back /auth/github/callback with a code
//  3. Server exchanges the code for the GitHub profile + access token, upserts the user
//  4. Server issues a JWT and stores it in an HttpOnly cookie
//  5. On later API calls, middleware validates the JWT, resolves the user from the DB
//     and puts a *model.Identity in the request context
//
// WHY JWT?
// The token carries who the caller is (user id + username) and is signed, so nobody can
// change it without the secret. What the caller is ALLOWED to do (isAdmin) is NOT in
// the token: it is read from the database on every request, so a demoted admin loses
// access immediately instead of when their token expires.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"userID","username":"octocat","exp":1234567890}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "repohub"

// DefaultSessionTTL is used when NewTokenService is given a zero TTL.
const DefaultSessionTTL = 24 * time.Hour

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and session lifetime.
// The secret should be at least 32 bytes of random data in production
// (config.Validate enforces that).
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// Claims is the JWT payload.
//
// "sub" (Subject) holds the internal user ID. Username is carried as well so the
// session resolver can re-create a user row that has gone missing.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// TTL is the lifetime of tokens from Generate. The auth handler uses it as the cookie MaxAge.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Generate creates and signs a session token for the given user.
//
// Signing algorithm: HS256 (HMAC-SHA256), symmetric, same key signs and verifies.
func (s *TokenService) Generate(userID, username string) (string, error) {
	return s.GenerateWithDuration(userID, username, s.ttl)
}

// GenerateWithDuration creates a token with a custom expiry duration.
// Used in tests (negative durations give already-expired tokens).
func (s *TokenService) GenerateWithDuration(userID, username string, d time.Duration) (string, error) {
	now := time.Now()

	c := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a JWT string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "repohub" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// ALGORITHM CONFUSION ATTACK:
// Without checking the algorithm, an attacker could send a token signed with
// "none" and the library might accept it. jwt.WithValidMethods prevents this.
func (s *TokenService) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
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
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}

	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}
	if c.Username == "" {
		return nil, fmt.Errorf("auth: token has no username")
	}

	return c, nil
}
