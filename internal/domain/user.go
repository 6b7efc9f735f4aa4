package domain

import (
	"fmt"
	"time"
)

// User represents an account that owns documents.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session represents an issued bearer token. Tokens are stored hashed;
// the raw token is only returned once at login.
type Session struct {
	ID        string
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ValidateUser validates a User instance
func ValidateUser(u *User) error {
	if u == nil {
		return fmt.Errorf("user cannot be nil")
	}
	if len(u.Username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("user password hash is required")
	}
	return nil
}
