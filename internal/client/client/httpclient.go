package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/creditconsole/internal/client/notify"
	"github.com/dmitrijs2005/creditconsole/internal/client/session"
	"github.com/dmitrijs2005/creditconsole/internal/common"
	"github.com/dmitrijs2005/creditconsole/internal/logging"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout = 10 * time.Second

	LoginPath    = "/auth/login"
	RefreshPath  = "/auth/refresh-token"
	LogoutPath   = "/auth/logout"
	ValidatePath = "/auth/validate-token"

	refreshKey = "refresh"

	// maxBodySize caps how much of a response body is buffered.
	maxBodySize = 16 << 20
)

// Sender is the part of the client used by list controllers.
type Sender interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// Client is the full API contract used by the console services.
type Client interface {
	Sender
	Login(ctx context.Context, username, password string) (*session.User, error)
	Logout(ctx context.Context) error
	Validate(ctx context.Context) (*TokenInfo, error)
}

var _ Client = (*HTTPClient)(nil)

// HTTPClient is the single shared API client. It attaches the session's
// access credential to every request, surfaces failures through a
// notify.Notifier and recovers from an expired credential with at most one
// refresh in flight. Safe for concurrent use.
type HTTPClient struct {
	baseURL          string
	http             *http.Client
	session          *session.Store
	notifier         notify.Notifier
	log              logging.Logger
	refreshGroup     singleflight.Group
	onSessionExpired func(ctx context.Context)
	newRequestID     func() string
}

type Option func(*HTTPClient)

// WithTimeout sets the per-dispatch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *HTTPClient) { c.notifier = n }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// WithSessionExpiredHandler registers fn to be called after the session
// was cleared because the credential could not be refreshed.
func WithSessionExpiredHandler(fn func(ctx context.Context)) Option {
	return func(c *HTTPClient) { c.onSessionExpired = fn }
}

func New(baseURL string, store *session.Store, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:          strings.TrimRight(baseURL, "/"),
		http:             &http.Client{Timeout: DefaultTimeout},
		session:          store,
		notifier:         notify.Discard,
		log:              logging.Discard(),
		onSessionExpired: func(context.Context) {},
		newRequestID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the store the client reads credentials from.
func (c *HTTPClient) Session() *session.Store {
	return c.session
}

// Send dispatches req. A 2xx response is returned unchanged. Any other
// outcome is returned as an *APIError after the user has been notified,
// except that a 401 first goes through the credential refresh protocol.
//
// Cancellation of ctx is returned as the context error and not notified.
func (c *HTTPClient) Send(ctx context.Context, req *Request) (*Response, error) {
	token := c.session.AccessToken()

	resp, err := c.dispatch(ctx, req, token)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		apiErr := c.newError(req, notify.StatusNoResponse, nil, err)
		c.notifier.Notify(ctx, apiErr.Message)
		return nil, apiErr
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	apiErr := c.newError(req, resp.StatusCode, resp.Body, nil)
	if apiErr.Kind != KindUnauthorized {
		c.notifier.Notify(ctx, apiErr.Message)
		return nil, apiErr
	}

	return c.recover(ctx, req, token, apiErr)
}

// recover handles a 401 for req, which was sent with sentToken.
func (c *HTTPClient) recover(ctx context.Context, req *Request, sentToken string, original *APIError) (*Response, error) {
	if req.Path == LoginPath {
		// bad credentials, not an expired session
		if original.Message == notify.MsgSessionExpired {
			original.Message = notify.MsgBadCredentials
		}
		c.notifier.Notify(ctx, original.Message)
		return nil, original
	}

	if req.retried {
		c.expire(ctx, "retried request rejected")
		return nil, original
	}

	// The flight outlives any single caller, so it must not inherit one
	// caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	_, err, shared := c.refreshGroup.Do(refreshKey, func() (any, error) {
		return nil, c.ensureFresh(flightCtx, sentToken)
	})
	if err != nil {
		return nil, original
	}
	c.log.Debug(ctx, "retrying with refreshed credential", "shared", shared, "path", req.Path)

	return c.Send(ctx, req.retry())
}

// ensureFresh makes sure the session holds a credential newer than
// sentToken, refreshing it if needed. It runs inside the single flight.
func (c *HTTPClient) ensureFresh(ctx context.Context, sentToken string) error {
	current := c.session.AccessToken()
	switch {
	case current != "" && current != sentToken:
		// refreshed by an earlier flight
		return nil
	case current == "" && sentToken != "":
		// ended by an earlier flight
		return common.ErrSessionExpired
	}

	refreshToken := c.session.RefreshToken()
	if refreshToken == "" {
		c.expire(ctx, "no refresh token")
		return common.ErrSessionExpired
	}

	if err := c.refresh(ctx, refreshToken); err != nil {
		c.log.Warn(ctx, "credential refresh failed", "error", err)
		c.expire(ctx, "refresh failed")
		return err
	}
	return nil
}

// refresh exchanges refreshToken for a new access credential and stores it.
// It bypasses Send so a failing refresh never recurses into the protocol.
func (c *HTTPClient) refresh(ctx context.Context, refreshToken string) error {
	req := &Request{
		Method: http.MethodPost,
		Path:   RefreshPath,
		Body:   refreshRequest{RefreshToken: refreshToken},
	}

	resp, err := c.dispatch(ctx, req, "")
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.newError(req, resp.StatusCode, resp.Body, nil)
	}

	var tokens tokenPair
	if err := resp.Decode(&tokens); err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	if tokens.Token == "" {
		return fmt.Errorf("refresh: %w: missing token", ErrMalformedResponse)
	}
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}

	return c.session.SetSession(ctx, tokens.Token, tokens.RefreshToken, c.session.User())
}

// expire ends the session: it is cleared, the user is told once and the
// registered handler is invoked.
func (c *HTTPClient) expire(ctx context.Context, reason string) {
	c.log.Info(ctx, "session expired", "reason", reason)
	if err := c.session.Clear(ctx); err != nil {
		c.log.Error(ctx, "failed to clear session", "error", err)
	}
	c.notifier.Notify(ctx, notify.MsgSessionExpired)
	c.onSessionExpired(ctx)
}

func (c *HTTPClient) dispatch(ctx context.Context, req *Request, token string) (*Response, error) {
	body, err := req.encodeBody()
	if err != nil {
		return nil, err
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	requestID := c.newRequestID()
	httpReq.Header.Set(common.RequestIDHeaderName, requestID)

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug(ctx, "request failed", "method", req.Method, "path", req.Path, "request_id", requestID, "error", err)
		return nil, err
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug(ctx, "request completed",
		"method", req.Method,
		"path", req.Path,
		"status", httpResp.StatusCode,
		"request_id", requestID,
		"retried", req.retried,
		"duration", time.Since(start),
	)

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: raw}, nil
}

func (c *HTTPClient) newError(req *Request, status int, payload []byte, cause error) *APIError {
	return &APIError{
		Kind:       Classify(status),
		StatusCode: status,
		Method:     req.Method,
		Path:       req.Path,
		Message:    notify.Message(status, payload),
		Payload:    payload,
		Err:        cause,
	}
}

// retry returns a copy of r marked as the post-refresh replay.
func (r *Request) retry() *Request {
	cp := *r
	cp.retried = true
	return &cp
}
