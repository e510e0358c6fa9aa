package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/creditconsole/internal/client/session"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	User         *session.User `json:"user"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type validateRequest struct {
	Token string `json:"token"`
}

// TokenInfo is the server's view of the current access credential.
type TokenInfo struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	UserType string `json:"user_type"`
	Message  string `json:"message"`
}

// Login authenticates and replaces the session with the returned
// credentials. A 401 here means bad credentials and never triggers a refresh.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (*session.User, error) {
	resp, err := c.Send(ctx, &Request{
		Method: http.MethodPost,
		Path:   LoginPath,
		Body:   loginRequest{Username: username, Password: password},
	})
	if err != nil {
		return nil, err
	}

	var lr loginResponse
	if err := resp.Decode(&lr); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if lr.Token == "" {
		return nil, fmt.Errorf("login: %w: missing token", ErrMalformedResponse)
	}

	if err := c.session.SetSession(ctx, lr.Token, lr.RefreshToken, lr.User); err != nil {
		return nil, err
	}
	return c.session.User(), nil
}

// Logout tells the server to revoke the credential, ignoring any failure,
// then clears the local session.
func (c *HTTPClient) Logout(ctx context.Context) error {
	if token := c.session.AccessToken(); token != "" {
		resp, err := c.dispatch(ctx, &Request{Method: http.MethodPost, Path: LogoutPath}, token)
		if err != nil {
			c.log.Warn(ctx, "logout request failed", "error", err)
		} else if resp.StatusCode >= 300 {
			c.log.Warn(ctx, "logout rejected", "status", resp.StatusCode)
		}
	}
	return c.session.Clear(ctx)
}

// Validate asks the server whether the current access credential is valid.
func (c *HTTPClient) Validate(ctx context.Context) (*TokenInfo, error) {
	resp, err := c.Send(ctx, &Request{
		Method: http.MethodPost,
		Path:   ValidatePath,
		Body:   validateRequest{Token: c.session.AccessToken()},
	})
	if err != nil {
		return nil, err
	}

	var info TokenInfo
	if err := resp.Decode(&info); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}
	return &info, nil
}
