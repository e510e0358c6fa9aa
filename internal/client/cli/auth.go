package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/creditconsole/internal/client/client"
	"github.com/dmitrijs2005/creditconsole/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Login prompts for credentials and authenticates. The password is wiped
// before returning. Failures the HTTP client already reported to the user
// are only logged here.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.authService.Login(ctx, userName, password)
	if err != nil {
		a.log.Info(ctx, "login unsuccessful", "username", userName, "error", err)
		return err
	}

	a.setUser(user.Username)
	fmt.Fprintf(a.out, "Logged in as %s\n", user.Username)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	err := a.authService.Logout(ctx)
	a.OnSessionExpired(ctx)
	if err != nil && !errors.Is(err, common.ErrNotLoggedIn) {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.authService.WhoAmI(ctx)
	if err != nil {
		fmt.Fprintln(a.out, "Not logged in")
		return err
	}

	if id.User != nil {
		fmt.Fprintf(a.out, "User:    %s (%s)\n", id.User.Username, id.User.UserType)
		if id.User.RealName != "" {
			fmt.Fprintf(a.out, "Name:    %s\n", id.User.RealName)
		}
	}
	switch {
	case id.ExpiresAt == nil:
		fmt.Fprintln(a.out, "Expires: unknown")
	case id.Expired:
		fmt.Fprintf(a.out, "Expires: %s (expired, will refresh on next request)\n", id.ExpiresAt.Format(time.RFC3339))
	default:
		fmt.Fprintf(a.out, "Expires: %s\n", id.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func (a *App) Validate(ctx context.Context) error {
	info, err := a.authService.Validate(ctx)
	if err != nil {
		if errors.Is(err, common.ErrNotLoggedIn) {
			fmt.Fprintln(a.out, "Not logged in")
		}
		return err
	}
	if !info.Valid {
		fmt.Fprintf(a.out, "Token is not valid: %s\n", info.Message)
		return client.ErrUnauthorized
	}
	fmt.Fprintf(a.out, "Token is valid for %s (%s)\n", info.Username, info.UserType)
	return nil
}
