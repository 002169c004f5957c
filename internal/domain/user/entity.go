// Package user defines the account entity
package user

import (
	"errors"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidUsername  = errors.New("username must be 3-30 letters, digits or underscores")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must not exceed 72 bytes")
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,30}$`)

// User represents an account
type User struct {
	id           int64
	username     string
	passwordHash string
	createdAt    time.Time
}

// NewUser validates the credentials and hashes the password
func NewUser(username, password string, cost int) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}

	return &User{
		username:     username,
		passwordHash: string(hash),
		createdAt:    time.Now().UTC(),
	}, nil
}

// Reconstruct rebuilds a user from storage
func Reconstruct(id int64, username, passwordHash string, createdAt time.Time) *User {
	return &User{id: id, username: username, passwordHash: passwordHash, createdAt: createdAt}
}

// ID returns the user ID
func (u *User) ID() int64 {
	return u.id
}

// Username returns the username
func (u *User) Username() string {
	return u.username
}

// PasswordHash returns the bcrypt hash
func (u *User) PasswordHash() string {
	return u.passwordHash
}

// CreatedAt returns when the account was created
func (u *User) CreatedAt() time.Time {
	return u.createdAt
}

// CheckPassword reports whether password matches the stored hash
func (u *User) CheckPassword(password string) bool {
	return PasswordMatches(u.passwordHash, password)
}

// PasswordMatches compares a plaintext password with a bcrypt hash.
// Malformed hashes count as a mismatch.
func PasswordMatches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidateUsername checks the username format
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	// bcrypt ignores everything past 72 bytes
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
