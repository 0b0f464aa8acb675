// Package auth authenticates moderators against the configured bcrypt
// password hash and issues HMAC session tokens for the admin API.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidCredentials is returned when the admin password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotConfigured is returned when no admin password hash is set.
	ErrNotConfigured = errors.New("admin access not configured")
)

// Service provides moderator authentication.
type Service struct {
	passwordHash string
	jwtConfig    *JWTConfig
}

// NewService creates a new moderator auth service.
func NewService(passwordHash string, jwtConfig *JWTConfig) *Service {
	return &Service{
		passwordHash: passwordHash,
		jwtConfig:    jwtConfig,
	}
}

// Login checks the password against the configured hash and returns a
// session token.
func (s *Service) Login(password string) (string, error) {
	if s.passwordHash == "" {
		return "", ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := GenerateToken(s.jwtConfig)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// ValidateToken validates a session token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return ValidateToken(s.jwtConfig, tokenString)
}

// HashPassword produces the bcrypt hash the moderator config expects.
// Cost 10 keeps a login check well under interactive latency.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
