// Package services contains the console's application services: session
// lifecycle (AuthService) and the catalog of list resources (ListService).
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/creditconsole/internal/client/client"
	"github.com/dmitrijs2005/creditconsole/internal/client/session"
	"github.com/dmitrijs2005/creditconsole/internal/common"
)

var timeNow = time.Now

// AuthService defines authentication operations for the console.
//
// Contract:
//   - Login: authenticate against the server and persist the session.
//   - Logout: revoke server-side where possible and forget the session.
//   - Restore: rehydrate the session saved by a previous run.
//   - Validate: ask the server about the current credential.
//   - WhoAmI: describe the local session without a round trip.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) (*session.User, error)
	Logout(ctx context.Context) error
	Restore(ctx context.Context) (*session.User, error)
	Validate(ctx context.Context) (*client.TokenInfo, error)
	WhoAmI(ctx context.Context) (*Identity, error)
	LoggedIn() bool
}

// Identity is the local view of the session.
type Identity struct {
	User *session.User
	// ExpiresAt is nil when the access token carries no readable expiry.
	ExpiresAt *time.Time
	Expired   bool
}

type authService struct {
	client client.Client
	store  *session.Store
}

func NewAuthService(c client.Client, store *session.Store) AuthService {
	return &authService{client: c, store: store}
}

func (a *authService) Login(ctx context.Context, username string, password []byte) (*session.User, error) {
	user, err := a.client.Login(ctx, username, string(password))
	if err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}
	return user, nil
}

func (a *authService) Logout(ctx context.Context) error {
	if !a.store.LoggedIn() {
		return common.ErrNotLoggedIn
	}
	return a.client.Logout(ctx)
}

// Restore loads the persisted session. It returns common.ErrNotLoggedIn
// when there is none.
func (a *authService) Restore(ctx context.Context) (*session.User, error) {
	if err := a.store.Load(ctx); err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if !a.store.LoggedIn() {
		return nil, common.ErrNotLoggedIn
	}
	return a.store.User(), nil
}

func (a *authService) Validate(ctx context.Context) (*client.TokenInfo, error) {
	if !a.store.LoggedIn() {
		return nil, common.ErrNotLoggedIn
	}
	return a.client.Validate(ctx)
}

// WhoAmI reads the expiry from the access token's claims without verifying
// the signature; the server remains the authority on validity.
func (a *authService) WhoAmI(_ context.Context) (*Identity, error) {
	snap := a.store.Snapshot()
	if snap.AccessToken == "" {
		return nil, common.ErrNotLoggedIn
	}

	id := &Identity{User: snap.User}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(snap.AccessToken, claims); err != nil {
		return id, nil
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return id, nil
	}

	t := exp.Time
	id.ExpiresAt = &t
	id.Expired = !timeNow().Before(t)
	return id, nil
}

func (a *authService) LoggedIn() bool {
	return a.store.LoggedIn()
}
