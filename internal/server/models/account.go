// Package models defines the server-side records persisted by repositories
// and passed between services.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization role carried by an account and its tokens.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole accepts role names in any case.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Provider tags where an account's identity came from.
type Provider string

const (
	ProviderLocal  Provider = "LOCAL"
	ProviderGoogle Provider = "GOOGLE"
)

// Account is a local or federated identity. Username and Email are stored
// normalized (see NormalizeIdentifier). PasswordHash may be empty for
// federated accounts.
type Account struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	PhoneNumber  string
	ImageURL     string

	Provider   Provider
	ProviderID string
	Role       Role

	Enabled               bool
	EmailVerified         bool
	AccountNonLocked      bool
	CredentialsNonExpired bool
	AccountNonExpired     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLocal reports whether the account authenticates with a local password.
func (a *Account) IsLocal() bool {
	return a.Provider == ProviderLocal
}

// IsAdmin reports whether the account holds the ADMIN role.
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// DisplayName is used in notifications.
func (a *Account) DisplayName() string {
	name := strings.TrimSpace(a.FirstName + " " + a.LastName)
	if name == "" {
		return a.Username
	}
	return name
}

// NormalizeIdentifier trims and lower-cases a username or email.
func NormalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
