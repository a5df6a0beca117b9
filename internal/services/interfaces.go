package services

import (
	"context"
	"time"

	"github.com/BradenHooton/stayhub/internal/models"
)

// UserRepository persists accounts of every role.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	MarkEmailVerified(ctx context.Context, id string) error
	LinkExternalIdentity(ctx context.Context, id string) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
	TransitionVerificationState(ctx context.Context, id string, from []models.VerificationState, to models.VerificationState) (*models.User, error)
	ListByVerificationStates(ctx context.Context, states []models.VerificationState, limit, offset int) ([]*models.User, error)
}

// OTPRepository holds at most one one-time code per email.
type OTPRepository interface {
	Replace(ctx context.Context, email, code string) (*models.OneTimeCode, error)
	GetByEmail(ctx context.Context, email string) (*models.OneTimeCode, error)
	IncrementAttempts(ctx context.Context, id string, max int) (int, error)
	Delete(ctx context.Context, id string) error
}

// RefreshTokenRepository holds the single honored refresh token per user.
type RefreshTokenRepository interface {
	Save(ctx context.Context, state *models.RefreshTokenState) error
	Rotate(ctx context.Context, consumedTokenID string, next *models.RefreshTokenState) error
	GetByUserID(ctx context.Context, userID string) (*models.RefreshTokenState, error)
	Invalidate(ctx context.Context, userID string) error
}

// AuditRepository reads the persisted audit trail.
type AuditRepository interface {
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.AuditRecord, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID string, role models.Role) (string, error)
	GenerateRefreshToken(userID string, role models.Role) (*models.IssuedToken, error)
	ValidateToken(tokenString string) (*models.TokenClaims, error)
}

// InputValidator rejects malformed inputs with *models.ValidationError.
type InputValidator interface {
	Struct(s any) error
	Password(password string) error
	SanitizeName(name string) string
}

type CodeGenerator interface {
	Generate() (string, error)
}

// OAuthProvider turns an authorization code into a verified external profile.
type OAuthProvider interface {
	Exchange(ctx context.Context, code string) (*models.ExternalIdentity, error)
}

// Delayer pads failed credential checks to a uniform duration.
type Delayer interface {
	WaitFrom(start time.Time, success bool)
}
