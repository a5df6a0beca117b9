package handlers

import (
	"context"
	"net/http"

	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/BradenHooton/stayhub/internal/services"
	pkghttp "github.com/BradenHooton/stayhub/pkg/http"
)

type CredentialServiceInterface interface {
	Signin(ctx context.Context, role models.Role, in services.SigninInput) (*services.AuthResponse, error)
	Signup(ctx context.Context, role models.Role, in services.SignupInput) (*services.SignupResult, error)
	VerifyEmail(ctx context.Context, role models.Role, in services.VerifyEmailInput) error
	ResendOTP(ctx context.Context, role models.Role, in services.ResendOTPInput) error
}

type PasswordResetServiceInterface interface {
	ForgotPassword(ctx context.Context, role models.Role, in services.ForgotPasswordInput) error
	ResetPassword(ctx context.Context, role models.Role, in services.ResetPasswordInput) error
}

type OAuthServiceInterface interface {
	Exec(ctx context.Context, role models.Role, in services.OAuthInput) (*services.AuthResponse, error)
}

// AuthHandler serves the credential endpoints of one role surface. Every role
// gets its own instance mounted under /<role>/auth.
type AuthHandler struct {
	role        models.Role
	credentials CredentialServiceInterface
	resets      PasswordResetServiceInterface
	oauth       OAuthServiceInterface
	ipConfig    *pkghttp.IPConfig
}

func NewAuthHandler(role models.Role, credentials CredentialServiceInterface, resets PasswordResetServiceInterface, oauth OAuthServiceInterface, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		role:        role,
		credentials: credentials,
		resets:      resets,
		oauth:       oauth,
		ipConfig:    ipConfig,
	}
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Signin handles POST /<role>/auth/signin
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var in services.SigninInput
	if err := pkghttp.DecodeJSON(w, r, &in); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	in.IPAddress = pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.credentials.Signin(r.Context(), h.role, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Signup handles POST /<role>/auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var in services.SignupInput
	if err := pkghttp.DecodeJSON(w, r, &in); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	in.IPAddress = pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.credentials.Signup(r.Context(), h.role, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// VerifyEmail handles POST /<role>/auth/verify-email
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in services.VerifyEmailInput
	if err := pkghttp.DecodeJSON(w, r, &in); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.credentials.VerifyEmail(r.Context(), h.role, in); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "email verified"})
}

// ResendOTP handles POST /<role>/auth/resend-otp. The answer is identical whether
// or not the address has an account.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var in services.ResendOTPInput
	if err := pkghttp.DecodeJSON(w, r, &in); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.credentials.ResendOTP(r.Context(), h.role, in); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusAccepted, MessageResponse{Message: "if the account needs verification, a new code has been sent"})
}

// ForgotPassword handles POST /<role>/auth/forgot-password
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in services.ForgotPasswordInput
	if err := pkghttp.DecodeJSON(w, r, &in); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	in.IPAddress = pkghttp.ExtractClientIP(r, h.ipConfig)

	if err := h.resets.ForgotPassword(r.Context(), h.role, in); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusAccepted, MessageResponse{Message: "password reset link sent"})
}

// ResetPassword handles POST /<role>/auth/reset-password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var in services.ResetPasswordInput
	if err := pkghttp.DecodeJSON(w, r, &in); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	in.IPAddress = pkghttp.ExtractClientIP(r, h.ipConfig)

	if err := h.resets.ResetPassword(r.Context(), h.role, in); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "password updated, sign in again"})
}

// GoogleOAuth handles POST /<role>/auth/oauth/google with the authorization code
// the client received on its redirect.
func (h *AuthHandler) GoogleOAuth(w http.ResponseWriter, r *http.Request) {
	var in services.OAuthInput
	if err := pkghttp.DecodeJSON(w, r, &in); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}
	in.IPAddress = pkghttp.ExtractClientIP(r, h.ipConfig)

	resp, err := h.oauth.Exec(r.Context(), h.role, in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
