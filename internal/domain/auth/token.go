package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 7 * 24 * time.Hour

// TokenSigner issues the HS256 access tokens handed out on register/login.
type TokenSigner struct {
	key []byte
	ttl time.Duration
}

func NewTokenSigner(key []byte, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenSigner{key: key, ttl: ttl}
}

func (t *TokenSigner) Sign(credentials Credentials) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       credentials.ID.String(),
		"email":    credentials.Email,
		"username": credentials.Username,
		"exp":      time.Now().Add(t.ttl).Unix(),
	})
	signed, err := token.SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}
