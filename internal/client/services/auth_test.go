package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheharfix/civicsync/internal/client/client"
	"github.com/sheharfix/civicsync/internal/client/models"
	"github.com/sheharfix/civicsync/internal/client/repositories/metadata"
	"github.com/sheharfix/civicsync/internal/common"
)

func getMeta(t *testing.T, r metadata.Repository, k string) []byte {
	t.Helper()
	v, err := r.Get(context.Background(), k)
	require.NoError(t, err)
	return v
}

func TestLogin_EmptyCredentials(t *testing.T) {
	env := newEnv(t, envConfig{})

	for _, c := range []struct{ email, password string }{{"", testPassword}, {testEmail, ""}, {"   ", "x"}} {
		_, err := env.auth.Login(context.Background(), c.email, c.password, models.RoleCitizen)
		require.ErrorIs(t, err, common.ErrAuth)
	}
	assert.Zero(t, env.backend.count("POST /auth/login"))

	_, err := env.auth.Login(context.Background(), testEmail, testPassword, "mayor")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestLogin_OnlineStoresSession(t *testing.T) {
	env := newEnv(t, envConfig{})
	ctx := context.Background()

	sess, err := env.auth.Login(ctx, testEmail, testPassword, models.RoleCitizen)
	require.NoError(t, err)
	assert.Equal(t, testToken, sess.Token)
	assert.Equal(t, "u-1", sess.User.ID)
	assert.Equal(t, 1, env.backend.count("POST /auth/login"))

	assert.Equal(t, testToken, env.session.Token(ctx))
	assert.Equal(t, []byte(testEmail), getMeta(t, env.slot, metadata.KeyOfflineEmail))
	assert.Len(t, getMeta(t, env.slot, metadata.KeyOfflineSalt), 32)
	assert.NotEmpty(t, getMeta(t, env.slot, metadata.KeyOfflineHash))

	u, err := env.auth.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, models.RoleCitizen, u.Role)
}

func TestLogin_RejectedCredentials(t *testing.T) {
	env := newEnv(t, envConfig{})
	ctx := context.Background()

	_, err := env.auth.Login(ctx, testEmail, "wrong", models.RoleCitizen)
	require.ErrorIs(t, err, common.ErrAuth)
	assert.Empty(t, env.session.Token(ctx))

	u, err := env.auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestLogin_ServerErrorIsNotOffline(t *testing.T) {
	env := newEnv(t, envConfig{})
	env.backend.loginErr = 500

	_, err := env.auth.Login(context.Background(), testEmail, testPassword, models.RoleCitizen)
	require.ErrorIs(t, err, common.ErrNetwork)
	require.NotErrorIs(t, err, common.ErrAuth)
}

func TestLogin_FallsBackToOfflineVerifier(t *testing.T) {
	env := newEnv(t, envConfig{})
	ctx := context.Background()

	_, err := env.auth.Login(ctx, testEmail, testPassword, models.RoleCitizen)
	require.NoError(t, err)

	env.server.Close()

	sess, err := env.auth.Login(ctx, testEmail, testPassword, models.RoleCitizen)
	require.NoError(t, err)
	assert.Equal(t, "u-1", sess.User.ID, "cached user is reused")
	assert.Empty(t, sess.Token)
	assert.Empty(t, env.session.Token(ctx))

	_, err = env.auth.Login(ctx, testEmail, "wrong", models.RoleCitizen)
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestOfflineLogin_DemoProfiles(t *testing.T) {
	env := newEnv(t, envConfig{mode: client.ModeMockOnly})
	ctx := context.Background()

	sess, err := env.auth.Login(ctx, "citizen@example.in", "pw", models.RoleCitizen)
	require.NoError(t, err)
	assert.Equal(t, "Priya Sharma", sess.User.Name)
	assert.Equal(t, 1247, sess.User.Points)
	assert.Equal(t, 5, sess.User.Level)
	assert.Equal(t, []string{"Street Guardian", "Voice of Change"}, sess.User.Badges)
	assert.Contains(t, sess.User.Avatar, "seed=citizen%40example.in")
	assert.NotEmpty(t, sess.User.ID)

	sess, err = env.auth.Login(ctx, "admin@example.in", "pw", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Rajesh Kumar", sess.User.Name)
	assert.Zero(t, sess.User.Points)
	assert.Nil(t, sess.User.Badges)

	u, err := env.auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Zero(t, env.backend.count("POST /auth/login"))
}

func TestSignup(t *testing.T) {
	env := newEnv(t, envConfig{})
	ctx := context.Background()

	sess, err := env.auth.Signup(ctx, "Asha", "asha@example.in", "pw", "+91 98", models.RoleCitizen)
	require.NoError(t, err)
	assert.Equal(t, "tok-new", sess.Token)
	assert.Equal(t, "+91 98", sess.User.Phone)
	assert.Equal(t, "tok-new", env.session.Token(ctx))

	_, err = env.auth.Signup(ctx, "", "a@b.c", "pw", "", models.RoleCitizen)
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestLogout_AlwaysClearsSession(t *testing.T) {
	env := newEnv(t, envConfig{})
	ctx := context.Background()

	_, err := env.auth.Login(ctx, testEmail, testPassword, models.RoleCitizen)
	require.NoError(t, err)

	env.backend.down = true
	require.NoError(t, env.auth.Logout(ctx))
	assert.Equal(t, 1, env.backend.count("POST /auth/logout"))

	assert.Empty(t, env.session.Token(ctx))
	u, err := env.auth.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	assert.NotNil(t, getMeta(t, env.slot, metadata.KeyOfflineHash), "offline verifier survives logout")
	require.NoError(t, env.session.ClearOfflineData(ctx))
	assert.Nil(t, getMeta(t, env.slot, metadata.KeyOfflineHash))
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return tok
}

func TestSession_Token(t *testing.T) {
	env := newEnv(t, envConfig{})
	ctx := context.Background()

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"opaque", "tok-opaque", "tok-opaque"},
		{"valid jwt", signed(t, time.Now().Add(time.Hour)), ""},
		{"expired jwt", signed(t, time.Now().Add(-time.Minute)), ""},
	}
	tests[1].want = tests[1].token

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, env.slot.Set(ctx, metadata.KeyAuthToken, []byte(tt.token)))
			assert.Equal(t, tt.want, env.session.Token(ctx))
			if tt.want == "" {
				assert.Nil(t, getMeta(t, env.slot, metadata.KeyAuthToken), "expired token is dropped")
			}
		})
	}
}

func TestSession_RedisSlot(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	slot := metadata.NewRedisRepository(rc, "kiosk")
	session := NewSession(slot, nil, nil)
	ctx := context.Background()

	require.NoError(t, session.store(ctx, models.Session{User: models.User{ID: "u-9", Role: models.RoleAdmin}, Token: "tok"}, nil))
	assert.Equal(t, "tok", session.Token(ctx))

	u, err := session.User(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u-9", u.ID)

	require.NoError(t, session.Clear(ctx))
	assert.Empty(t, session.Token(ctx))
}
