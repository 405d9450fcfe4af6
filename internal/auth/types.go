package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for operator usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// minPasswordLength is the minimum accepted password length.
const minPasswordLength = 8

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 1-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// IsValidPassword checks if a password meets the minimum length requirement.
func IsValidPassword(password string) bool {
	return len(password) >= minPasswordLength
}

// Operator represents an authenticated account that runs scans. Every
// artifact records the operator who captured it, so accounts are part of
// the chain of custody and are never hard-deleted.
type Operator struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrWeakPassword       = errors.New("password does not meet minimum length")
	ErrTokenInvalid       = errors.New("invalid token")
)
