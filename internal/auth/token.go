// Package auth implements the identity verifier: HS256 JWTs carrying the
// user id and role, matching the credentials minted by the account service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mediconnect/realtime/internal/domain"
)

var (
	ErrNoCredential = errors.New("no credential provided")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the payload signed into each access token.
type Claims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Verify parses and validates a bearer credential and resolves the
// identity it names. Any failure is terminal for the connection.
func (v *TokenVerifier) Verify(credential string) (domain.Identity, error) {
	if credential == "" {
		return domain.Identity{}, ErrNoCredential
	}
	token, err := jwt.ParseWithClaims(credential, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.secret, nil
	})
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" {
		return domain.Identity{}, ErrInvalidToken
	}
	return domain.Identity{ID: domain.UserID(claims.ID), Role: domain.Role(claims.Role)}, nil
}

// Issue signs an access token for a user. Used by the dev token endpoint
// and tests; production credentials come from the account service.
func (v *TokenVerifier) Issue(id domain.UserID, role domain.Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		ID:   string(id),
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "mediconnect",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
