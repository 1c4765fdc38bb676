// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/credential"
	"github.com/jeranaias/vaulthub-tui/internal/notice"
)

// =============================================================================
// FAKES
// =============================================================================

type fakeLookup struct {
	user    *api.UserInfo
	userErr error
	pin     *api.SecurityPinStatus
	pinErr  error

	userCalls atomic.Int32
	pinCalls  atomic.Int32
}

func (f *fakeLookup) CurrentUser(context.Context) (*api.UserInfo, error) {
	f.userCalls.Add(1)
	return f.user, f.userErr
}

func (f *fakeLookup) SecurityPinStatus(context.Context) (*api.SecurityPinStatus, error) {
	f.pinCalls.Add(1)
	return f.pin, f.pinErr
}

func enrolled() *api.SecurityPinStatus { return &api.SecurityPinStatus{HasSecurityPin: true} }
func notEnrolled() *api.SecurityPinStatus { return &api.SecurityPinStatus{HasSecurityPin: false} }

type guardHarness struct {
	guard   *Guard
	store   *credential.MemoryStore
	lookup  *fakeLookup
	notices *notice.Recorder
}

func newGuardHarness(t *testing.T, token string) *guardHarness {
	t.Helper()
	h := &guardHarness{
		store:   credential.NewMemoryStore(),
		lookup:  &fakeLookup{user: &api.UserInfo{Role: api.RoleUser}, pin: enrolled()},
		notices: &notice.Recorder{},
	}
	if token != "" {
		require.NoError(t, h.store.Set(context.Background(), token))
	}
	h.guard = NewGuard(DefaultTable(), h.store, h.lookup).WithNotifier(h.notices)
	return h
}

func (h *guardHarness) eval(t *testing.T, path string) Decision {
	t.Helper()
	route, ok := h.guard.Table().Lookup(path)
	require.True(t, ok, "route %s", path)
	return h.guard.Evaluate(context.Background(), route)
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestGuard_ScenarioA_NoTokenProtectedRoute(t *testing.T) {
	h := newGuardHarness(t, "")

	d := h.eval(t, PathVault)

	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, PathLogin, d.Target)
	assert.Equal(t, ReasonUnauthenticated, d.Reason)
	assert.Zero(t, h.lookup.userCalls.Load()+h.lookup.pinCalls.Load(), "no remote calls without a token")
}

func TestGuard_ScenarioB_TokenOnLogin(t *testing.T) {
	h := newGuardHarness(t, "tok")

	d := h.eval(t, PathLogin)

	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, PathVault, d.Target)
	assert.Equal(t, ReasonAlreadyAuthenticated, d.Reason)
}

func TestGuard_ScenarioC_RoleMismatch(t *testing.T) {
	h := newGuardHarness(t, "tok")
	h.lookup.user = &api.UserInfo{Role: api.RoleUser}

	d := h.eval(t, PathSystemConfig)

	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, PathVault, d.Target)
	assert.Equal(t, ReasonRoleMismatch, d.Reason)
	assert.Equal(t, []notice.Key{notice.KeyNoPagePermission}, h.notices.Keys())
	assert.Zero(t, h.lookup.pinCalls.Load(), "role check precedes the PIN check")
}

func TestGuard_ScenarioD_PinNotEnrolled(t *testing.T) {
	h := newGuardHarness(t, "tok")
	h.lookup.pin = notEnrolled()

	d := h.eval(t, PathVault)

	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, PathSetupSecurityPin, d.Target)
	assert.Equal(t, ReasonPinNotEnrolled, d.Reason)
	assert.Empty(t, h.notices.Notices())
}

// =============================================================================
// CHAIN DETAILS
// =============================================================================

func TestGuard_AdminAllowed(t *testing.T) {
	h := newGuardHarness(t, "tok")
	h.lookup.user = &api.UserInfo{Username: "root", Role: api.RoleAdmin}

	d := h.eval(t, PathSystemConfig)

	assert.True(t, d.Allowed())
	assert.Equal(t, int32(1), h.lookup.userCalls.Load())
	assert.Equal(t, int32(1), h.lookup.pinCalls.Load())
}

func TestGuard_RoleLookupFailure(t *testing.T) {
	h := newGuardHarness(t, "tok")
	h.lookup.userErr = &api.Error{Kind: api.KindNetwork}

	d := h.eval(t, PathSystemConfig)

	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, PathLogin, d.Target)
	assert.Equal(t, ReasonUserLookupFailed, d.Reason)
	assert.Equal(t, []notice.Key{notice.KeyUserInfoFailed}, h.notices.Keys())
}

func TestGuard_RoleLookupAuthFailureHasNoGuardNotice(t *testing.T) {
	h := newGuardHarness(t, "tok")
	h.lookup.userErr = &api.Error{Kind: api.KindAuthentication}

	d := h.eval(t, PathSystemConfig)

	assert.Equal(t, PathLogin, d.Target)
	assert.Empty(t, h.notices.Notices(), "the transport already announced the expired session")
}

func TestGuard_PinCheckFailsOpen(t *testing.T) {
	h := newGuardHarness(t, "tok")
	h.lookup.pinErr = &api.Error{Kind: api.KindNetwork, Err: errors.New("connection refused")}

	d := h.eval(t, PathVault)

	assert.True(t, d.Allowed())
	assert.True(t, d.PinCheckFailedOpen)
	assert.Empty(t, h.notices.Notices())
}

func TestGuard_PinCheckAuthFailureGoesToLogin(t *testing.T) {
	h := newGuardHarness(t, "tok")
	h.lookup.pinErr = &api.Error{Kind: api.KindAuthentication}

	d := h.eval(t, PathVault)

	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, PathLogin, d.Target)
	assert.Equal(t, ReasonSessionEnded, d.Reason)
}

func TestGuard_EnrollmentRouteSkipsPinCheck(t *testing.T) {
	h := newGuardHarness(t, "tok")
	h.lookup.pin = notEnrolled()

	d := h.eval(t, PathSetupSecurityPin)

	assert.True(t, d.Allowed())
	assert.Zero(t, h.lookup.pinCalls.Load())
}

func TestGuard_EnrollmentRouteNeverRedirectsToItself(t *testing.T) {
	// A table where the enrollment route does not declare the exemption.
	routes := DefaultRoutes()
	for i := range routes {
		if routes[i].Path == PathSetupSecurityPin {
			routes[i].Policy.SkipSecurityPinCheck = false
		}
	}
	table, err := NewTable(routes, DefaultSpecial())
	require.NoError(t, err)
	store := credential.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "tok"))
	lookup := &fakeLookup{pin: notEnrolled()}
	g := NewGuard(table, store, lookup)

	route, _ := table.Lookup(PathSetupSecurityPin)
	d := g.Evaluate(context.Background(), route)

	assert.True(t, d.Allowed())
	assert.Equal(t, int32(1), lookup.pinCalls.Load())
}

func TestGuard_PublicRoutesAllowedWithoutToken(t *testing.T) {
	h := newGuardHarness(t, "")
	for _, p := range []string{PathLogin, PathRegister, PathForgotPassword, PathResetPassword, PathResetSecurityPin} {
		assert.True(t, h.eval(t, p).Allowed(), p)
	}
}

func TestGuard_CachesUserSnapshot(t *testing.T) {
	h := newGuardHarness(t, "tok")
	h.lookup.user = &api.UserInfo{Username: "root", Role: api.RoleAdmin}
	cache := &recordingCache{}
	h.guard.WithUserCache(cache)

	h.eval(t, PathSystemConfig)

	require.NotNil(t, cache.user)
	assert.Equal(t, "root", cache.user.Username)
}

type recordingCache struct{ user *api.UserInfo }

func (r *recordingCache) SetCurrentUser(u *api.UserInfo) error {
	r.user = u
	return nil
}

type brokenStore struct{}

func (brokenStore) Get(context.Context) (string, error) { return "", errors.New("redis down") }

func TestGuard_CredentialReadFailureFailsClosed(t *testing.T) {
	g := NewGuard(DefaultTable(), brokenStore{}, &fakeLookup{})
	route, _ := g.Table().Lookup(PathVault)

	d := g.Evaluate(context.Background(), route)

	assert.Equal(t, PathLogin, d.Target)
}

// =============================================================================
// PROPERTIES OVER THE WHOLE TABLE
// =============================================================================

func TestGuard_ProtectedRoutesNeverAllowedWithoutToken(t *testing.T) {
	h := newGuardHarness(t, "")
	for _, r := range h.guard.Table().Routes() {
		if !r.Policy.RequiresAuth {
			continue
		}
		d := h.guard.Evaluate(context.Background(), r)
		assert.Equal(t, Redirect, d.Outcome, r.Path)
		assert.Equal(t, PathLogin, d.Target, r.Path)
	}
}

func TestGuard_AuthEntriesNeverAllowedWithToken(t *testing.T) {
	h := newGuardHarness(t, "tok")
	for _, p := range []string{PathLogin, PathRegister} {
		d := h.eval(t, p)
		assert.Equal(t, Redirect, d.Outcome, p)
		assert.Equal(t, PathVault, d.Target, p)
	}
}

// =============================================================================
// WITH THE REAL TRANSPORT
// =============================================================================

func TestGuard_FailOpenThroughTransportIsSilent(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	store := credential.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "tok"))
	notices := &notice.Recorder{}
	client := api.New(srv.URL, store).WithNotifier(notices)
	g := NewGuard(DefaultTable(), store, client).WithNotifier(notices)

	route, _ := g.Table().Lookup(PathVault)
	d := g.Evaluate(context.Background(), route)

	assert.True(t, d.Allowed())
	assert.True(t, d.PinCheckFailedOpen)
	assert.Empty(t, notices.Notices())
}

func TestGuard_RoleFailureThroughTransportHasOneNotice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	store := credential.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), "tok"))
	notices := &notice.Recorder{}
	client := api.New(srv.URL, store).WithNotifier(notices)
	g := NewGuard(DefaultTable(), store, client).WithNotifier(notices)

	route, _ := g.Table().Lookup(PathSystemConfig)
	d := g.Evaluate(context.Background(), route)

	assert.Equal(t, PathLogin, d.Target)
	assert.Equal(t, []notice.Key{notice.KeyUserInfoFailed}, notices.Keys())
}
