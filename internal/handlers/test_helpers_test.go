package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/stayhub/internal/auth"
	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/BradenHooton/stayhub/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewTestRequest builds a request with body encoded as JSON.
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithUserContext attaches an authenticated account the way AuthMiddleware does.
func WithUserContext(req *http.Request, id string, role models.Role) *http.Request {
	user := &models.User{ID: id, Role: role}
	claims := &models.TokenClaims{Type: models.TokenTypeAccess, Role: role}
	claims.Subject = id
	return req.WithContext(auth.WithUser(req.Context(), user, claims))
}

func WithURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks the status and decodes the body into target.
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "body: %s", w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	if target != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), target))
	}
}

type MockCredentialService struct {
	SigninFunc      func(ctx context.Context, role models.Role, in services.SigninInput) (*services.AuthResponse, error)
	SignupFunc      func(ctx context.Context, role models.Role, in services.SignupInput) (*services.SignupResult, error)
	VerifyEmailFunc func(ctx context.Context, role models.Role, in services.VerifyEmailInput) error
	ResendOTPFunc   func(ctx context.Context, role models.Role, in services.ResendOTPInput) error
}

func (m *MockCredentialService) Signin(ctx context.Context, role models.Role, in services.SigninInput) (*services.AuthResponse, error) {
	if m.SigninFunc != nil {
		return m.SigninFunc(ctx, role, in)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCredentialService) Signup(ctx context.Context, role models.Role, in services.SignupInput) (*services.SignupResult, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, role, in)
	}
	return nil, models.ErrInternalServer
}

func (m *MockCredentialService) VerifyEmail(ctx context.Context, role models.Role, in services.VerifyEmailInput) error {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, role, in)
	}
	return nil
}

func (m *MockCredentialService) ResendOTP(ctx context.Context, role models.Role, in services.ResendOTPInput) error {
	if m.ResendOTPFunc != nil {
		return m.ResendOTPFunc(ctx, role, in)
	}
	return nil
}

type MockPasswordResetService struct {
	ForgotPasswordFunc func(ctx context.Context, role models.Role, in services.ForgotPasswordInput) error
	ResetPasswordFunc  func(ctx context.Context, role models.Role, in services.ResetPasswordInput) error
}

func (m *MockPasswordResetService) ForgotPassword(ctx context.Context, role models.Role, in services.ForgotPasswordInput) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, role, in)
	}
	return nil
}

func (m *MockPasswordResetService) ResetPassword(ctx context.Context, role models.Role, in services.ResetPasswordInput) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, role, in)
	}
	return nil
}

type MockOAuthService struct {
	ExecFunc func(ctx context.Context, role models.Role, in services.OAuthInput) (*services.AuthResponse, error)
}

func (m *MockOAuthService) Exec(ctx context.Context, role models.Role, in services.OAuthInput) (*services.AuthResponse, error) {
	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, role, in)
	}
	return nil, models.ErrUnauthorized
}

type MockSessionService struct {
	RefreshFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	LogoutFunc  func(ctx context.Context, userID string) error
}

func (m *MockSessionService) Refresh(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockSessionService) Logout(ctx context.Context, userID string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, userID)
	}
	return nil
}

type MockHostVerificationService struct {
	StatusFunc          func(ctx context.Context, hostID string) (*services.UserResponse, error)
	SubmitForReviewFunc func(ctx context.Context, hostID string) (*services.UserResponse, error)
	ApproveFunc         func(ctx context.Context, adminID, hostID string) (*services.UserResponse, error)
	RejectFunc          func(ctx context.Context, adminID, hostID string) (*services.UserResponse, error)
	ListPendingFunc     func(ctx context.Context, adminID string, limit, offset int) ([]*services.UserResponse, error)
}

func (m *MockHostVerificationService) Status(ctx context.Context, hostID string) (*services.UserResponse, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, hostID)
	}
	return nil, models.ErrNotFound
}

func (m *MockHostVerificationService) SubmitForReview(ctx context.Context, hostID string) (*services.UserResponse, error) {
	if m.SubmitForReviewFunc != nil {
		return m.SubmitForReviewFunc(ctx, hostID)
	}
	return nil, models.ErrNotFound
}

func (m *MockHostVerificationService) Approve(ctx context.Context, adminID, hostID string) (*services.UserResponse, error) {
	if m.ApproveFunc != nil {
		return m.ApproveFunc(ctx, adminID, hostID)
	}
	return nil, models.ErrNotFound
}

func (m *MockHostVerificationService) Reject(ctx context.Context, adminID, hostID string) (*services.UserResponse, error) {
	if m.RejectFunc != nil {
		return m.RejectFunc(ctx, adminID, hostID)
	}
	return nil, models.ErrNotFound
}

func (m *MockHostVerificationService) ListPending(ctx context.Context, adminID string, limit, offset int) ([]*services.UserResponse, error) {
	if m.ListPendingFunc != nil {
		return m.ListPendingFunc(ctx, adminID, limit, offset)
	}
	return []*services.UserResponse{}, nil
}

type MockAdminService struct {
	BlockFunc   func(ctx context.Context, adminID, userID string) (*services.UserResponse, error)
	UnblockFunc func(ctx context.Context, adminID, userID string) (*services.UserResponse, error)
}

func (m *MockAdminService) Block(ctx context.Context, adminID, userID string) (*services.UserResponse, error) {
	if m.BlockFunc != nil {
		return m.BlockFunc(ctx, adminID, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminService) Unblock(ctx context.Context, adminID, userID string) (*services.UserResponse, error) {
	if m.UnblockFunc != nil {
		return m.UnblockFunc(ctx, adminID, userID)
	}
	return nil, models.ErrNotFound
}

type MockAuditService struct {
	ListForUserFunc func(ctx context.Context, adminID, userID string, limit, offset int) ([]*models.AuditRecord, error)
}

func (m *MockAuditService) ListForUser(ctx context.Context, adminID, userID string, limit, offset int) ([]*models.AuditRecord, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, adminID, userID, limit, offset)
	}
	return nil, models.ErrNotFound
}
