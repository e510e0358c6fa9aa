// Package session holds the process-wide console session: the access
// credential, the refresh credential and the identity of the logged-in user.
//
// All mutation funnels through SetSession and Clear, which also persist the
// session through a credentials.Repository so it survives a restart. Tokens
// are opaque; nothing here inspects or validates them.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/creditconsole/internal/client/repositories/credentials"
	"github.com/dmitrijs2005/creditconsole/internal/common"
)

// User is the identity returned by the login endpoint.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	RealName string `json:"real_name,omitempty"`
	UserType string `json:"user_type,omitempty"`
	Status   string `json:"status,omitempty"`
}

// UnmarshalJSON accepts "id" as well as the "user_id" and "uuid" keys used
// by the auth service.
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var aux struct {
		plain
		UserID string `json:"user_id"`
		UUID   string `json:"uuid"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	*u = User(aux.plain)
	for _, id := range []string{aux.UserID, aux.UUID} {
		if u.ID == "" {
			u.ID = id
		}
	}
	return nil
}

// Session is a point-in-time copy of the store contents. Empty strings
// stand for absent credentials.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *User
}

// Store is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	repo    credentials.Repository
	current Session
}

func NewStore(repo credentials.Repository) *Store {
	return &Store{repo: repo}
}

// Load rehydrates the session from durable storage. A missing or corrupt
// user entry leaves User nil but keeps the tokens.
func (s *Store) Load(ctx context.Context) error {
	access, err := s.repo.Get(ctx, common.AccessTokenKey)
	if err != nil {
		return err
	}
	refresh, err := s.repo.Get(ctx, common.RefreshTokenKey)
	if err != nil {
		return err
	}
	rawUser, err := s.repo.Get(ctx, common.UserKey)
	if err != nil {
		return err
	}

	var user *User
	if len(rawUser) > 0 {
		var u User
		if json.Unmarshal(rawUser, &u) == nil {
			user = &u
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Session{AccessToken: string(access), RefreshToken: string(refresh), User: user}
	return nil
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.RefreshToken
}

// User returns a copy of the logged-in identity, or nil.
func (s *Store) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current.User == nil {
		return nil
	}
	u := *s.current.User
	return &u
}

// Snapshot returns a copy of the whole session.
func (s *Store) Snapshot() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.current
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	return snap
}

// LoggedIn reports whether an access credential is present.
func (s *Store) LoggedIn() bool {
	return s.AccessToken() != ""
}

// SetSession replaces the session and persists it. An empty refresh token
// or nil user removes the corresponding durable entry.
func (s *Store) SetSession(ctx context.Context, access, refresh string, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := map[string][]byte{common.AccessTokenKey: []byte(access)}
	var stale []string
	if refresh != "" {
		entries[common.RefreshTokenKey] = []byte(refresh)
	} else {
		stale = append(stale, common.RefreshTokenKey)
	}
	if user != nil {
		b, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		entries[common.UserKey] = b
	} else {
		stale = append(stale, common.UserKey)
	}

	if err := s.repo.SetAll(ctx, entries); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	for _, key := range stale {
		if err := s.repo.Delete(ctx, key); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}

	var u *User
	if user != nil {
		cp := *user
		u = &cp
	}
	s.current = Session{AccessToken: access, RefreshToken: refresh, User: u}
	return nil
}

// Clear forgets the session in memory and in durable storage. The
// in-memory session is cleared even if the storage call fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = Session{}
	if err := s.repo.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
