package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/creditconsole/internal/client/notify"
	"github.com/dmitrijs2005/creditconsole/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/creditconsole/internal/client/session"
)

type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Notify(_ context.Context, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

type fixture struct {
	client   *HTTPClient
	store    *session.Store
	notes    *recorder
	expired  atomic.Int32
	refreshN atomic.Int32
}

func newFixture(t *testing.T, mux *http.ServeMux) *fixture {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	f := &fixture{
		store: session.NewStore(credentials.NewDiskvRepository(filepath.Join(t.TempDir(), "session"))),
		notes: &recorder{},
	}
	f.client = New(srv.URL+"/api", f.store,
		WithNotifier(f.notes),
		WithTimeout(5*time.Second),
		WithSessionExpiredHandler(func(context.Context) { f.expired.Add(1) }),
	)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func envelope(data any) map[string]any {
	return map[string]any{"code": 200, "message": "success", "data": data}
}

func (f *fixture) handleRefresh(mux *http.ServeMux, newToken string, status int) {
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.refreshN.Add(1)
		time.Sleep(20 * time.Millisecond)
		if status != http.StatusOK {
			writeJSON(w, status, map[string]any{"code": status, "message": "invalid refresh token"})
			return
		}
		writeJSON(w, http.StatusOK, envelope(map[string]string{"token": newToken}))
	})
}

func TestSend_AttachesCredentialAndRequestID(t *testing.T) {
	mux := http.NewServeMux()
	var gotAuth, gotID, gotQuery string
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get("X-Request-ID")
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, envelope([]string{"x"}))
	})
	f := newFixture(t, mux)
	require.NoError(t, f.store.SetSession(context.Background(), "tok", "ref", nil))

	resp, err := f.client.Send(context.Background(), &Request{
		Method: http.MethodGet,
		Path:   "/users",
		Query:  url.Values{"page": {"2"}},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.NotEmpty(t, gotID)
	assert.Equal(t, "page=2", gotQuery)
	assert.JSONEq(t, `["x"]`, string(resp.Data()))
	assert.Empty(t, f.notes.messages())
}

func TestSend_NoCredentialNoHeader(t *testing.T) {
	mux := http.NewServeMux()
	var present bool
	mux.HandleFunc("GET /api/ping", func(w http.ResponseWriter, r *http.Request) {
		_, present = r.Header["Authorization"]
		writeJSON(w, http.StatusOK, envelope(nil))
	})
	f := newFixture(t, mux)

	_, err := f.client.Send(context.Background(), &Request{Method: http.MethodGet, Path: "ping"})
	require.NoError(t, err)
	assert.False(t, present)
}

func TestSend_JSONBody(t *testing.T) {
	mux := http.NewServeMux()
	var got map[string]any
	var contentType string
	mux.HandleFunc("POST /api/activities", func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusCreated, envelope(nil))
	})
	f := newFixture(t, mux)

	_, err := f.client.Send(context.Background(), &Request{
		Method: http.MethodPost,
		Path:   "/activities",
		Body:   map[string]any{"name": "hackathon"},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, map[string]any{"name": "hackathon"}, got)
}

func TestSend_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		kind     Kind
		sentinel error
		message  string
	}{
		{http.StatusForbidden, `{}`, KindForbidden, ErrForbidden, notify.MsgForbidden},
		{http.StatusNotFound, `{"code":404,"message":"activity not found"}`, KindNotFound, ErrNotFound, "activity not found"},
		{http.StatusConflict, `{}`, KindConflict, ErrConflict, notify.MsgConflict},
		{http.StatusUnprocessableEntity, `{"errors":{"name":"required"}}`, KindValidation, ErrValidation, "name: required"},
		{http.StatusTooManyRequests, ``, KindRateLimited, ErrRateLimited, notify.MsgRateLimited},
		{http.StatusServiceUnavailable, `not json`, KindServer, ErrServer, notify.MsgServer},
		{http.StatusBadRequest, `{"error":"bad page"}`, KindUnknown, ErrUnknown, "bad page"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /api/thing", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			f := newFixture(t, mux)

			resp, err := f.client.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/thing"})
			require.Error(t, err)
			assert.Nil(t, resp)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, []string{tt.message}, f.notes.messages())
			assert.Zero(t, f.refreshN.Load())
		})
	}
}

func TestSend_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	notes := &recorder{}
	store := session.NewStore(credentials.NewDiskvRepository(filepath.Join(t.TempDir(), "s")))
	c := New(base, store, WithNotifier(notes))

	_, err := c.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/users"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Equal(t, []string{notify.MsgNetwork}, notes.messages())
}

func TestSend_CanceledContextNotNotified(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/slow", func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	f := newFixture(t, mux)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := f.client.Send(ctx, &Request{Method: http.MethodGet, Path: "/slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, f.notes.messages())
}

func TestSend_LoginThenRefreshScenario(t *testing.T) {
	mux := http.NewServeMux()
	f := newFixture(t, mux)
	var refreshBody map[string]string
	var seen []string
	var mu sync.Mutex

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope(map[string]any{
			"token":         "a",
			"refresh_token": "b",
			"user":          map[string]string{"uuid": "u-1", "username": "admin", "user_type": "admin"},
		}))
	})
	mux.HandleFunc("POST /api/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.refreshN.Add(1)
		_ = json.NewDecoder(r.Body).Decode(&refreshBody)
		writeJSON(w, http.StatusOK, envelope(map[string]string{"token": "c"}))
	})
	mux.HandleFunc("GET /api/applications", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer c" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "message": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, envelope([]string{"retried"}))
	})

	ctx := context.Background()

	user, err := f.client.Login(ctx, "admin", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "a", f.store.AccessToken())
	assert.Equal(t, "b", f.store.RefreshToken())

	resp, err := f.client.Send(ctx, &Request{Method: http.MethodGet, Path: "/applications"})
	require.NoError(t, err)

	assert.JSONEq(t, `["retried"]`, string(resp.Data()))
	assert.Equal(t, int32(1), f.refreshN.Load())
	assert.Equal(t, map[string]string{"refresh_token": "b"}, refreshBody)
	assert.Equal(t, []string{"Bearer a", "Bearer c"}, seen)
	assert.Equal(t, "c", f.store.AccessToken())
	assert.Equal(t, "b", f.store.RefreshToken(), "refresh token kept when not rotated")
	assert.Equal(t, "admin", f.store.User().Username)
	assert.Empty(t, f.notes.messages())
	assert.Zero(t, f.expired.Load())
}

func TestSend_ConcurrentUnauthorizedRefreshesOnce(t *testing.T) {
	const n = 8

	mux := http.NewServeMux()
	arrived := atomic.Int32{}
	allArrived := make(chan struct{})

	mux.HandleFunc("GET /api/activities", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "Bearer fresh" {
			writeJSON(w, http.StatusOK, envelope([]string{"ok"}))
			return
		}
		if arrived.Add(1) == n {
			close(allArrived)
		}
		select {
		case <-allArrived:
		case <-time.After(2 * time.Second):
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "message": "token expired"})
	})
	f := newFixture(t, mux)
	f.handleRefresh(mux, "fresh", http.StatusOK)
	require.NoError(t, f.store.SetSession(context.Background(), "stale", "r1", nil))

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.client.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/activities"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), f.refreshN.Load())
	assert.Equal(t, "fresh", f.store.AccessToken())
	assert.Empty(t, f.notes.messages())
	assert.Zero(t, f.expired.Load())
}

func TestSend_ConcurrentRefreshFailure(t *testing.T) {
	const n = 6

	mux := http.NewServeMux()
	arrived := atomic.Int32{}
	allArrived := make(chan struct{})
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		if arrived.Add(1) == n {
			close(allArrived)
		}
		select {
		case <-allArrived:
		case <-time.After(2 * time.Second):
		}
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "message": "token expired"})
	})
	f := newFixture(t, mux)
	f.handleRefresh(mux, "", http.StatusUnauthorized)
	require.NoError(t, f.store.SetSession(context.Background(), "stale", "r1", &session.User{Username: "admin"}))

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.client.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/users"})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "/users", apiErr.Path, "original error, not the refresh error")
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
		assert.ErrorIs(t, err, ErrUnauthorized)
	}
	assert.Equal(t, int32(1), f.refreshN.Load())
	assert.Equal(t, int32(1), f.expired.Load())
	assert.Equal(t, []string{notify.MsgSessionExpired}, f.notes.messages())
	assert.False(t, f.store.LoggedIn())
	assert.Nil(t, f.store.User())
}

func TestSend_RetriedRequestDoesNotRefreshTwice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/applications/7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "message": "revoked"})
	})
	f := newFixture(t, mux)
	f.handleRefresh(mux, "next", http.StatusOK)
	require.NoError(t, f.store.SetSession(context.Background(), "a", "b", nil))

	_, err := f.client.Send(context.Background(), &Request{Method: http.MethodDelete, Path: "/applications/7"})

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), f.refreshN.Load())
	assert.Equal(t, int32(1), f.expired.Load())
	assert.False(t, f.store.LoggedIn())
	assert.Equal(t, []string{notify.MsgSessionExpired}, f.notes.messages())
}

func TestSend_UnauthorizedWithoutRefreshToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	f := newFixture(t, mux)
	f.handleRefresh(mux, "x", http.StatusOK)
	require.NoError(t, f.store.SetSession(context.Background(), "a", "", nil))

	_, err := f.client.Send(context.Background(), &Request{Method: http.MethodGet, Path: "/users"})

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, f.refreshN.Load())
	assert.Equal(t, int32(1), f.expired.Load())
	assert.False(t, f.store.LoggedIn())
}

func TestLogin_BadCredentialsDoNotRefresh(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	f := newFixture(t, mux)
	f.handleRefresh(mux, "x", http.StatusOK)
	require.NoError(t, f.store.SetSession(context.Background(), "old", "r", nil))

	_, err := f.client.Login(context.Background(), "admin", "wrong")

	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Zero(t, f.refreshN.Load())
	assert.Zero(t, f.expired.Load())
	assert.Equal(t, []string{notify.MsgBadCredentials}, f.notes.messages())
}

func TestLogin_MissingToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, envelope(map[string]any{"user": map[string]string{"username": "x"}}))
	})
	f := newFixture(t, mux)

	_, err := f.client.Login(context.Background(), "x", "y")
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.False(t, f.store.LoggedIn())
}

func TestLogout_ClearsEvenWhenServerFails(t *testing.T) {
	mux := http.NewServeMux()
	var called atomic.Bool
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		called.Store(true)
		w.WriteHeader(http.StatusInternalServerError)
	})
	f := newFixture(t, mux)
	require.NoError(t, f.store.SetSession(context.Background(), "a", "b", nil))

	require.NoError(t, f.client.Logout(context.Background()))

	assert.True(t, called.Load())
	assert.False(t, f.store.LoggedIn())
	assert.Empty(t, f.notes.messages())
}

func TestValidate(t *testing.T) {
	mux := http.NewServeMux()
	var sent map[string]string
	mux.HandleFunc("POST /api/auth/validate-token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&sent)
		writeJSON(w, http.StatusOK, envelope(map[string]any{
			"valid": true, "user_id": "u-1", "username": "admin", "user_type": "admin",
		}))
	})
	f := newFixture(t, mux)
	require.NoError(t, f.store.SetSession(context.Background(), "tok", "ref", nil))

	info, err := f.client.Validate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"token": "tok"}, sent)
	assert.Equal(t, &TokenInfo{Valid: true, UserID: "u-1", Username: "admin", UserType: "admin"}, info)
}

func TestAPIError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &APIError{Kind: KindNetwork, Method: "GET", Path: "/x", Err: cause}

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "GET /x")
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"envelope", `{"code":200,"data":{"a":1}}`, `{"a":1}`},
		{"null data", `{"code":200,"data":null}`, `null`},
		{"no envelope", `{"a":1}`, `{"a":1}`},
		{"array", `[1,2]`, `[1,2]`},
		{"garbage", `<html>`, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(Unwrap([]byte(tt.body))))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, KindNetwork, Classify(0))
	assert.Equal(t, KindUnauthorized, Classify(401))
	assert.Equal(t, KindServer, Classify(504))
	assert.Equal(t, KindUnknown, Classify(418))
}
