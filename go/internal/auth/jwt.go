// Package auth issues and verifies bearer tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller carried in the token.
type Identity struct {
	UserID   uuid.UUID `json:"sub"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// tokenClaims is the internal claims type used for JWT parsing.
type tokenClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Tokens signs and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewTokens(secret string, ttl time.Duration, clock clockwork.Clock) *Tokens {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clock,
	}
}

// Issue returns a signed token for id.
func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.clock.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
		Username: id.Username,
		Email:    id.Email,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and returns the identity it carries.
func (t *Tokens) Verify(raw string) (Identity, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return Identity{
		UserID:   userID,
		Username: claims.Username,
		Email:    claims.Email,
	}, nil
}
