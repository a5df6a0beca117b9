package services

import (
	"time"

	"github.com/BradenHooton/stayhub/internal/models"
)

// UserResponse is the public view of an account.
type UserResponse struct {
	ID                     string                   `json:"id"`
	Email                  string                   `json:"email"`
	Name                   string                   `json:"name"`
	Role                   models.Role              `json:"role"`
	EmailVerified          bool                     `json:"email_verified"`
	VerificationState      models.VerificationState `json:"verification_state"`
	ExternalIdentityLinked bool                     `json:"external_identity_linked"`
	HasPassword            bool                     `json:"has_password"`
	CreatedAt              time.Time                `json:"created_at"`
}

// AuthResponse is returned by every flow that opens a session.
type AuthResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type"`
	ExpiresAt    time.Time     `json:"refresh_expires_at"`
	User         *UserResponse `json:"user"`
}

// SignupResult reports the new account and whether its verification code was mailed.
type SignupResult struct {
	User             *UserResponse `json:"user"`
	VerificationSent bool          `json:"verification_sent"`
}

func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:                     user.ID,
		Email:                  user.Email,
		Name:                   user.Name,
		Role:                   user.Role,
		EmailVerified:          user.EmailVerified,
		VerificationState:      user.VerificationState,
		ExternalIdentityLinked: user.ExternalIdentityLinked,
		HasPassword:            user.HasPassword(),
		CreatedAt:              user.CreatedAt,
	}
}
