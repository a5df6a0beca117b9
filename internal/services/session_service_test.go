package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/stayhub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signinForTest(t *testing.T, env *testEnv, user *models.User) *AuthResponse {
	t.Helper()
	resp, err := env.credentials.Signin(context.Background(), user.Role, SigninInput{Email: user.Email, Password: testPassword})
	require.NoError(t, err)
	return resp
}

func TestSessionService_RefreshRotates(t *testing.T) {
	ctx := context.Background()
	user := NewTestUser(t, models.RoleUser, "guest@example.com")
	env := newTestEnv(t, user)
	first := signinForTest(t, env, user)

	second, err := env.sessions.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = env.sessions.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized, "rotated token is no longer honored")

	_, err = env.sessions.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestSessionService_NewSigninSupersedesOldRefresh(t *testing.T) {
	ctx := context.Background()
	user := NewTestUser(t, models.RoleUser, "guest@example.com")
	env := newTestEnv(t, user)
	first := signinForTest(t, env, user)
	signinForTest(t, env, user)

	_, err := env.sessions.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSessionService_RefreshRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("access token", func(t *testing.T) {
		user := NewTestUser(t, models.RoleUser, "guest@example.com")
		env := newTestEnv(t, user)
		resp := signinForTest(t, env, user)

		_, err := env.sessions.Refresh(ctx, resp.AccessToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("garbage", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.sessions.Refresh(ctx, "not-a-jwt")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("after logout", func(t *testing.T) {
		user := NewTestUser(t, models.RoleUser, "guest@example.com")
		env := newTestEnv(t, user)
		resp := signinForTest(t, env, user)

		require.NoError(t, env.sessions.Logout(ctx, user.ID))
		_, err := env.sessions.Refresh(ctx, resp.RefreshToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("blocked account", func(t *testing.T) {
		user := NewTestUser(t, models.RoleUser, "guest@example.com")
		env := newTestEnv(t, user)
		resp := signinForTest(t, env, user)
		require.NoError(t, env.users.SetBlocked(ctx, user.ID, true))

		_, err := env.sessions.Refresh(ctx, resp.RefreshToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("password changed after issue", func(t *testing.T) {
		user := NewTestUser(t, models.RoleUser, "guest@example.com")
		env := newTestEnv(t, user)
		resp := signinForTest(t, env, user)
		require.NoError(t, env.users.UpdatePassword(ctx, user.ID, user.PasswordHash, time.Now().Add(2*time.Second)))

		_, err := env.sessions.Refresh(ctx, resp.RefreshToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}

// pauseAfterRefreshRead holds every Refresh right after it reads the stored state
// until release is closed. reached receives once per paused call.
func pauseAfterRefreshRead(env *testEnv) (reached <-chan struct{}, release chan struct{}) {
	r := make(chan struct{}, 4)
	release = make(chan struct{})
	env.refresh.afterGet = func() {
		r <- struct{}{}
		<-release
	}
	return r, release
}

func TestSessionService_RefreshRacingPasswordReset(t *testing.T) {
	ctx := context.Background()
	user := NewTestUser(t, models.RoleUser, "guest@example.com")
	env := newTestEnv(t, user)
	session := signinForTest(t, env, user)

	require.NoError(t, env.resets.ForgotPassword(ctx, models.RoleUser, ForgotPasswordInput{Email: user.Email}))
	token := tokenFromLink(t, env.mailer.Links[0])

	reached, release := pauseAfterRefreshRead(env)
	var refreshErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, refreshErr = env.sessions.Refresh(ctx, session.RefreshToken)
	}()
	<-reached

	require.NoError(t, env.resets.ResetPassword(ctx, models.RoleUser, ResetPasswordInput{Email: user.Email, Token: token, Password: newPassword}))
	close(release)
	<-done

	assert.ErrorIs(t, refreshErr, models.ErrUnauthorized)
	_, err := env.refresh.GetByUserID(ctx, user.ID)
	assert.ErrorIs(t, err, models.ErrNotFound, "no session survives the reset")
}

func TestSessionService_ConcurrentReplayRotatesOnce(t *testing.T) {
	ctx := context.Background()
	user := NewTestUser(t, models.RoleUser, "guest@example.com")
	env := newTestEnv(t, user)
	session := signinForTest(t, env, user)

	reached, release := pauseAfterRefreshRead(env)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.sessions.Refresh(ctx, session.RefreshToken)
		}()
	}
	<-reached
	<-reached
	close(release)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	}
	assert.Equal(t, 1, succeeded)
}
