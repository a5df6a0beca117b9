package models

import (
	"fmt"
	"strings"
	"time"
)

// Role identifies the surface an account belongs to. It is fixed at creation.
type Role string

const (
	RoleUser  Role = "user"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

// Roles lists every role in route registration order.
var Roles = []Role{RoleUser, RoleHost, RoleAdmin}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleHost, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// ParseRole converts a path segment or claim value into a Role.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q: %w", s, ErrValidation)
	}
	return role, nil
}

// VerificationState tracks administrative review of a host account.
type VerificationState string

const (
	VerificationNotApplicable VerificationState = "not_applicable"
	VerificationUnverified    VerificationState = "unverified"
	VerificationPendingReview VerificationState = "pending_review"
	VerificationVerified      VerificationState = "verified"
	VerificationRejected      VerificationState = "rejected"
)

// DefaultVerificationState is the state a new account of role starts in.
func DefaultVerificationState(role Role) VerificationState {
	if role == RoleHost {
		return VerificationUnverified
	}
	return VerificationNotApplicable
}

// User is a credential-bearing account for any role.
type User struct {
	ID                     string            `json:"id"`
	Email                  string            `json:"email"`
	Name                   string            `json:"name"`
	PasswordHash           string            `json:"-"` // empty for accounts created through OAuth
	Role                   Role              `json:"role"`
	IsBlocked              bool              `json:"is_blocked"`
	VerificationState      VerificationState `json:"verification_state"`
	EmailVerified          bool              `json:"email_verified"`
	ExternalIdentityLinked bool              `json:"external_identity_linked"`
	PasswordChangedAt      *time.Time        `json:"-"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// NormalizeEmail lowercases and trims an address before any lookup or insert.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
