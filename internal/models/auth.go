package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the JWT payload. Subject carries the user ID and ID the token's JTI.
type TokenClaims struct {
	Type string `json:"type"`
	Role Role   `json:"role"`
	jwt.RegisteredClaims
}

func (c *TokenClaims) UserID() string {
	return c.Subject
}

// IssuedToken is a signed token along with its identifier and expiry.
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// RefreshTokenState records the one refresh token currently honored for a user.
// Deleting it invalidates every outstanding refresh token for that user.
type RefreshTokenState struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
	UpdatedAt time.Time
}

// ExternalIdentity is the profile returned by an OAuth provider.
type ExternalIdentity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}
