package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/stayhub/internal/auth"
	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/BradenHooton/stayhub/internal/validation"
	pkgauth "github.com/BradenHooton/stayhub/pkg/auth"
	pkglogger "github.com/BradenHooton/stayhub/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const testPassword = "Str0ng!Passw0rd"

// fakeUserRepository is an in-memory UserRepository keyed by ID.
type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*models.User
	now   func() time.Time

	GetByEmailErr error
	CreateErr     error
}

func newFakeUserRepository(users ...*models.User) *fakeUserRepository {
	r := &fakeUserRepository{users: map[string]*models.User{}, now: time.Now}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepository) get(id string) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		c := *u
		return &c
	}
	return nil
}

func (r *fakeUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u := r.get(id); u != nil {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if r.GetByEmailErr != nil {
		return nil, r.GetByEmailErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			c := *u
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (r *fakeUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return nil, fmt.Errorf("%w: idx_users_email_lower", models.ErrConflict)
		}
	}
	c := *user
	c.ID = uuid.NewString()
	c.CreatedAt = r.now()
	c.UpdatedAt = c.CreatedAt
	r.users[c.ID] = &c
	out := c
	return &out, nil
}

func (r *fakeUserRepository) update(id string, fn func(u *models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return models.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = r.now()
	return nil
}

func (r *fakeUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return r.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.PasswordChangedAt = &changedAt
	})
}

func (r *fakeUserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.update(id, func(u *models.User) { u.EmailVerified = true })
}

func (r *fakeUserRepository) LinkExternalIdentity(ctx context.Context, id string) error {
	return r.update(id, func(u *models.User) {
		u.ExternalIdentityLinked = true
		u.EmailVerified = true
	})
}

func (r *fakeUserRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	return r.update(id, func(u *models.User) { u.IsBlocked = blocked })
}

func (r *fakeUserRepository) TransitionVerificationState(ctx context.Context, id string, from []models.VerificationState, to models.VerificationState) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.Role != models.RoleHost || !slices.Contains(from, u.VerificationState) {
		return nil, models.ErrNotFound
	}
	u.VerificationState = to
	c := *u
	return &c, nil
}

func (r *fakeUserRepository) ListByVerificationStates(ctx context.Context, states []models.VerificationState, limit, offset int) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, u := range r.users {
		if u.Role == models.RoleHost && slices.Contains(states, u.VerificationState) {
			c := *u
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *models.User) int { return a.UpdatedAt.Compare(b.UpdatedAt) })
	if offset >= len(out) {
		return []*models.User{}, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

// fakeOTPRepository is an in-memory OTPRepository keyed by email.
type fakeOTPRepository struct {
	mu    sync.Mutex
	codes map[string]*models.OneTimeCode
	now   func() time.Time
}

func newFakeOTPRepository() *fakeOTPRepository {
	return &fakeOTPRepository{codes: map[string]*models.OneTimeCode{}, now: time.Now}
}

func (r *fakeOTPRepository) Replace(ctx context.Context, email, code string) (*models.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	otp := &models.OneTimeCode{ID: uuid.NewString(), Email: email, Code: code, CreatedAt: r.now()}
	r.codes[email] = otp
	c := *otp
	return &c, nil
}

func (r *fakeOTPRepository) GetByEmail(ctx context.Context, email string) (*models.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if otp, ok := r.codes[email]; ok {
		c := *otp
		return &c, nil
	}
	return nil, models.ErrNotFound
}

func (r *fakeOTPRepository) IncrementAttempts(ctx context.Context, id string, max int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, otp := range r.codes {
		if otp.ID == id {
			if otp.Attempts >= max {
				return -1, nil
			}
			otp.Attempts++
			return otp.Attempts, nil
		}
	}
	return -1, nil
}

func (r *fakeOTPRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for email, otp := range r.codes {
		if otp.ID == id {
			delete(r.codes, email)
			return nil
		}
	}
	return models.ErrNotFound
}

// age moves the stored code for email into the past.
func (r *fakeOTPRepository) age(email string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if otp, ok := r.codes[email]; ok {
		otp.CreatedAt = otp.CreatedAt.Add(-d)
	}
}

func (r *fakeOTPRepository) current(email string) *models.OneTimeCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	if otp, ok := r.codes[email]; ok {
		c := *otp
		return &c
	}
	return nil
}

type fakeRefreshTokenRepository struct {
	mu     sync.Mutex
	states map[string]*models.RefreshTokenState

	InvalidateErr error
	// afterGet runs once GetByUserID has read the state, outside the lock.
	afterGet func()
}

func newFakeRefreshTokenRepository() *fakeRefreshTokenRepository {
	return &fakeRefreshTokenRepository{states: map[string]*models.RefreshTokenState{}}
}

func (r *fakeRefreshTokenRepository) Save(ctx context.Context, state *models.RefreshTokenState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *state
	r.states[state.UserID] = &c
	return nil
}

func (r *fakeRefreshTokenRepository) Rotate(ctx context.Context, consumedTokenID string, next *models.RefreshTokenState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.states[next.UserID]
	if !ok || cur.TokenID != consumedTokenID {
		return models.ErrUnauthorized
	}
	c := *next
	r.states[next.UserID] = &c
	return nil
}

func (r *fakeRefreshTokenRepository) GetByUserID(ctx context.Context, userID string) (*models.RefreshTokenState, error) {
	r.mu.Lock()
	s, ok := r.states[userID]
	var c models.RefreshTokenState
	if ok {
		c = *s
	}
	hook := r.afterGet
	r.mu.Unlock()

	if hook != nil {
		hook()
	}
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (r *fakeRefreshTokenRepository) Invalidate(ctx context.Context, userID string) error {
	if r.InvalidateErr != nil {
		return r.InvalidateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
	return nil
}

// MockEmailService records deliveries and fails when SendErr is set.
type MockEmailService struct {
	mu      sync.Mutex
	SendErr error
	Codes   []string
	Links   []string
}

func (m *MockEmailService) SendOTP(ctx context.Context, to, code string, expiresIn time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Codes = append(m.Codes, code)
	return nil
}

func (m *MockEmailService) SendPasswordReset(ctx context.Context, to, link string, expiresIn time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Links = append(m.Links, link)
	return nil
}

type MockOAuthProvider struct {
	ExchangeFunc func(ctx context.Context, code string) (*models.ExternalIdentity, error)
}

func (m *MockOAuthProvider) Exchange(ctx context.Context, code string) (*models.ExternalIdentity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, code)
	}
	return nil, auth.ErrOAuthNotConfigured
}

// sequenceGenerator hands out codes in order, then repeats the last one.
type sequenceGenerator struct {
	mu    sync.Mutex
	codes []string
	next  int
}

func (g *sequenceGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[min(g.next, len(g.codes)-1)]
	g.next++
	return code, nil
}

// fakeAuditStore is both the audit sink and the AuditRepository.
type fakeAuditStore struct {
	mu      sync.Mutex
	records []*models.AuditRecord
}

func (f *fakeAuditStore) Record(ctx context.Context, event pkglogger.AuditEvent, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := &models.AuditRecord{
		ID:        uuid.NewString(),
		EventType: event.EventType,
		Success:   event.Success,
		Metadata:  event.Metadata,
		CreatedAt: at,
	}
	if event.UserID != "" {
		rec.UserID = &event.UserID
	}
	if event.ActorID != "" {
		rec.ActorID = &event.ActorID
	}
	if event.Email != "" {
		rec.Email = &event.Email
	}
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeAuditStore) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AuditRecord
	for i := len(f.records) - 1; i >= 0; i-- {
		if r := f.records[i]; r.UserID != nil && *r.UserID == userID {
			out = append(out, r)
		}
	}
	if offset >= len(out) {
		return []*models.AuditRecord{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAuditStore) eventTypes(userID string) []string {
	recs, _ := f.ListByUserID(context.Background(), userID, len(f.records)+1, 0)
	types := make([]string, len(recs))
	for i, r := range recs {
		types[i] = r.EventType
	}
	return types
}

type noDelay struct{}

func (noDelay) WaitFrom(time.Time, bool) {}

// testEnv wires every service over the in-memory fakes.
type testEnv struct {
	users   *fakeUserRepository
	otps    *fakeOTPRepository
	refresh *fakeRefreshTokenRepository
	mailer  *MockEmailService
	oauth   *MockOAuthProvider
	tokens  *auth.TokenManager
	hasher  *pkgauth.BcryptHasher
	trail   *fakeAuditStore

	otp         *OTPService
	sessions    *SessionService
	credentials *CredentialService
	resets      *PasswordResetService
	oauthSvc    *OAuthService
	hosts       *HostVerificationService
	admin       *AdminService
	audit       *AuditService
}

const (
	testClientURL = "https://app.stayhub.test"
	testOTPExpiry = 10 * time.Minute
	testResetLink = 15 * time.Minute
)

func newTestEnv(t *testing.T, users ...*models.User) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	trail := &fakeAuditStore{}
	audit := pkglogger.NewAuditLogger(logger).WithSink(trail)
	v := validation.New()

	env := &testEnv{
		users:   newFakeUserRepository(users...),
		otps:    newFakeOTPRepository(),
		refresh: newFakeRefreshTokenRepository(),
		mailer:  &MockEmailService{},
		oauth:   &MockOAuthProvider{},
		tokens:  auth.NewTokenManager("test-secret-that-is-at-least-32-bytes-long", 15*time.Minute, 24*time.Hour),
		hasher:  pkgauth.NewBcryptHasher(bcrypt.MinCost),
		trail:   trail,
	}

	env.otp = NewOTPService(env.otps, auth.NewCodeGenerator(), env.mailer, DefaultOTPMaxAttempts, logger, audit)
	env.sessions = NewSessionService(env.users, env.refresh, env.tokens, logger, audit)
	env.credentials = NewCredentialService(env.users, env.hasher, v, env.otp, env.sessions, noDelay{}, testOTPExpiry, logger, audit)
	env.resets = NewPasswordResetService(env.users, env.hasher, v, env.otp, env.sessions, env.mailer, testClientURL, testResetLink, logger, audit)
	env.oauthSvc = NewOAuthService(env.users, env.oauth, v, env.sessions, logger, audit)
	env.hosts = NewHostVerificationService(env.users, logger, audit)
	env.admin = NewAdminService(env.users, env.sessions, logger, audit)
	env.audit = NewAuditService(env.trail, env.users, logger)
	return env
}

// NewTestUser builds a verified account of role with testPassword.
func NewTestUser(t *testing.T, role models.Role, email string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash test password: %v", err)
	}
	now := time.Now().Add(-time.Hour)
	return &models.User{
		ID:                uuid.NewString(),
		Email:             email,
		Name:              "Test " + string(role),
		PasswordHash:      string(hash),
		Role:              role,
		EmailVerified:     true,
		VerificationState: models.DefaultVerificationState(role),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func NewTestHost(t *testing.T, email string, state models.VerificationState) *models.User {
	u := NewTestUser(t, models.RoleHost, email)
	u.VerificationState = state
	return u
}
