package domain

import (
	"strings"
	"time"
)

// Role represents a named user role. Role names are convention-prefixed
// ("ROLE_ADMIN") so they can be matched against token claims verbatim.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

const (
	RoleAdmin = "ROLE_ADMIN"
	RoleGuest = "ROLE_GUEST"
)

// DefaultRoles are seeded at startup if absent.
var DefaultRoles = []string{RoleAdmin, RoleGuest}

// User represents a user account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize password
	Name         string    `json:"name"`
	Roles        []Role    `json:"roles"`
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleNames returns the role names for embedding into token claims.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// HasRole reports whether the user currently holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// NormalizeEmail lowercases an email address. Email uniqueness is
// case-insensitive, so every lookup and write goes through this.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
