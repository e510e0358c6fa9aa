package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/creditconsole/internal/client/client"
	"github.com/dmitrijs2005/creditconsole/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/creditconsole/internal/client/session"
	"github.com/dmitrijs2005/creditconsole/internal/common"
)

// fakeClient implements client.Client on top of a real session store.
type fakeClient struct {
	store *session.Store

	LoginErr    error
	ValidateRet *client.TokenInfo

	LastLoginUser     string
	LastLoginPassword string
	LogoutCalls       int
}

func (f *fakeClient) Send(context.Context, *client.Request) (*client.Response, error) {
	return nil, errors.New("not used")
}

func (f *fakeClient) Login(ctx context.Context, username, password string) (*session.User, error) {
	f.LastLoginUser, f.LastLoginPassword = username, password
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	u := &session.User{ID: "u-1", Username: username}
	if err := f.store.SetSession(ctx, "access", "refresh", u); err != nil {
		return nil, err
	}
	return u, nil
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.LogoutCalls++
	return f.store.Clear(ctx)
}

func (f *fakeClient) Validate(context.Context) (*client.TokenInfo, error) {
	return f.ValidateRet, nil
}

func newAuth(t *testing.T) (AuthService, *fakeClient, credentials.Repository) {
	t.Helper()
	repo := credentials.NewDiskvRepository(filepath.Join(t.TempDir(), "session"))
	store := session.NewStore(repo)
	fc := &fakeClient{store: store}
	return NewAuthService(fc, store), fc, repo
}

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestAuthService_LoginLogout(t *testing.T) {
	ctx := context.Background()
	svc, fc, _ := newAuth(t)

	user, err := svc.Login(ctx, "admin", []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, "pw", fc.LastLoginPassword)
	assert.True(t, svc.LoggedIn())

	require.NoError(t, svc.Logout(ctx))
	assert.False(t, svc.LoggedIn())
	assert.Equal(t, 1, fc.LogoutCalls)

	assert.ErrorIs(t, svc.Logout(ctx), common.ErrNotLoggedIn)
	assert.Equal(t, 1, fc.LogoutCalls)
}

func TestAuthService_LoginError(t *testing.T) {
	svc, fc, _ := newAuth(t)
	fc.LoginErr = &client.APIError{Kind: client.KindUnauthorized, StatusCode: 401}

	_, err := svc.Login(context.Background(), "admin", []byte("bad"))
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.False(t, svc.LoggedIn())
}

func TestAuthService_Restore(t *testing.T) {
	ctx := context.Background()
	svc, _, repo := newAuth(t)

	_, err := svc.Restore(ctx)
	assert.ErrorIs(t, err, common.ErrNotLoggedIn)

	prev := session.NewStore(repo)
	require.NoError(t, prev.SetSession(ctx, "tok", "ref", &session.User{Username: "saved"}))

	user, err := svc.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "saved", user.Username)
	assert.True(t, svc.LoggedIn())
}

func TestAuthService_Validate(t *testing.T) {
	ctx := context.Background()
	svc, fc, _ := newAuth(t)

	_, err := svc.Validate(ctx)
	assert.ErrorIs(t, err, common.ErrNotLoggedIn)

	fc.ValidateRet = &client.TokenInfo{Valid: true, Username: "admin"}
	_, err = svc.Login(ctx, "admin", []byte("pw"))
	require.NoError(t, err)

	info, err := svc.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, info.Valid)
}

func TestAuthService_WhoAmI(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	prev := timeNow
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = prev })

	tests := []struct {
		name        string
		token       string
		wantExpiry  bool
		wantExpired bool
	}{
		{"valid jwt", signed(t, jwt.MapClaims{"exp": fixed.Add(time.Hour).Unix()}), true, false},
		{"expired jwt", signed(t, jwt.MapClaims{"exp": fixed.Add(-time.Minute).Unix()}), true, true},
		{"jwt without exp", signed(t, jwt.MapClaims{"sub": "u-1"}), false, false},
		{"opaque token", "not-a-jwt", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, repo := newAuth(t)
			require.NoError(t, session.NewStore(repo).SetSession(ctx, tt.token, "r", &session.User{Username: "admin"}))
			_, err := svc.Restore(ctx)
			require.NoError(t, err)

			id, err := svc.WhoAmI(ctx)
			require.NoError(t, err)
			assert.Equal(t, "admin", id.User.Username)
			assert.Equal(t, tt.wantExpiry, id.ExpiresAt != nil)
			assert.Equal(t, tt.wantExpired, id.Expired)
		})
	}
}

func TestAuthService_WhoAmINotLoggedIn(t *testing.T) {
	svc, _, _ := newAuth(t)
	_, err := svc.WhoAmI(context.Background())
	assert.ErrorIs(t, err, common.ErrNotLoggedIn)
}
