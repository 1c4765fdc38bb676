// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/credential"
	"github.com/jeranaias/vaulthub-tui/internal/util"
)

// ErrNotAuthenticated is returned when a user snapshot is offered while no
// token is held.
var ErrNotAuthenticated = errors.New("session: not authenticated")

// Event describes a session transition.
type Event int

const (
	EventLogin Event = iota
	EventLogout
)

func (e Event) String() string {
	if e == EventLogin {
		return "login"
	}
	return "logout"
}

// State is the in-memory reflection of the credential store.
type State struct {
	mu    sync.RWMutex
	store credential.Store
	token string
	user  *api.UserInfo
	log   *zap.Logger

	subMu sync.Mutex
	subs  []func(Event)
}

// New returns an empty state backed by store. Call Load to seed it.
func New(store credential.Store, log *zap.Logger) *State {
	if log == nil {
		log = zap.NewNop()
	}
	return &State{store: store, log: log.Named("session")}
}

// Load seeds the state from the credential store. It is called once at
// startup.
func (s *State) Load(ctx context.Context) error {
	token, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.user = nil
	s.mu.Unlock()
	s.log.Debug("session loaded", zap.Bool("authenticated", token != ""), zap.String("token", util.Fingerprint(token)))
	return nil
}

// Login persists token and marks the session authenticated. Any previous
// user snapshot is dropped.
func (s *State) Login(ctx context.Context, token string) error {
	if err := s.store.Set(ctx, token); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	stored, err := s.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	s.mu.Lock()
	s.token = stored
	s.user = nil
	s.mu.Unlock()

	s.log.Info("logged in", zap.String("token", util.Fingerprint(stored)))
	s.publish(EventLogin)
	return nil
}

// LoginAs is Login followed by caching the user returned with the token.
func (s *State) LoginAs(ctx context.Context, token string, user *api.UserInfo) error {
	if err := s.Login(ctx, token); err != nil {
		return err
	}
	if user != nil {
		return s.SetCurrentUser(user)
	}
	return nil
}

// Logout clears the credential store and the in-memory token and user. The
// in-memory state is cleared even when the store fails. Logging out twice is
// harmless.
func (s *State) Logout(ctx context.Context) error {
	storeErr := s.store.Clear(ctx)

	s.mu.Lock()
	was := s.token != ""
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	if storeErr != nil {
		s.log.Error("failed to clear credential", zap.Error(storeErr))
	}
	if was {
		s.log.Info("logged out")
		s.publish(EventLogout)
	}
	if storeErr != nil {
		return fmt.Errorf("logout: %w", storeErr)
	}
	return nil
}

// Resync applies a token change made outside this process, such as a
// logout from another terminal. Changes go through Login and Logout.
func (s *State) Resync(ctx context.Context, token string) error {
	current := s.Token()
	switch {
	case token == current:
		return nil
	case token == "":
		return s.Logout(ctx)
	default:
		return s.Login(ctx, token)
	}
}

// IsAuthenticated reports whether a token is held.
func (s *State) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token returns the held token, or "".
func (s *State) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// CurrentUser returns the cached user snapshot. It is nil when no token is
// held or no snapshot was fetched yet. The snapshot may be stale.
func (s *State) CurrentUser() *api.UserInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetCurrentUser caches a freshly fetched user snapshot.
func (s *State) SetCurrentUser(u *api.UserInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return ErrNotAuthenticated
	}
	if u == nil {
		s.user = nil
		return nil
	}
	cp := *u
	s.user = &cp
	return nil
}

// Subscribe registers fn to run after every login and every logout that
// ended an authenticated session.
func (s *State) Subscribe(fn func(Event)) {
	s.subMu.Lock()
	s.subs = append(s.subs, fn)
	s.subMu.Unlock()
}

func (s *State) publish(e Event) {
	s.subMu.Lock()
	subs := append([]func(Event){}, s.subs...)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(e)
	}
}
