// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/config"
	"github.com/jeranaias/vaulthub-tui/internal/notice"
	"github.com/jeranaias/vaulthub-tui/internal/router"
	"github.com/jeranaias/vaulthub-tui/internal/storage"
)

// =============================================================================
// FAKE SERVICE
// =============================================================================

type fakeService struct {
	role      string
	pinSet    bool
	pinBroken bool
	expireAll atomic.Bool
	hits      atomic.Int32
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data any) {
	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(api.Envelope{Code: code, Message: message, Data: raw})
}

func (f *fakeService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "s3cret" {
			writeEnvelope(w, 400, "invalid username or password", nil)
			return
		}
		writeEnvelope(w, 200, "success", api.LoginResponse{
			Token: "tok-" + req.Username,
			User:  &api.UserInfo{Username: req.Username, Role: f.role},
		})
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "success", nil)
	})
	mux.HandleFunc("/api/v1/auth/current", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "success", api.UserInfo{Username: "alice", Role: f.role})
	})
	mux.HandleFunc("/api/v1/auth/security-pin-status", func(w http.ResponseWriter, r *http.Request) {
		if f.pinBroken {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
			return
		}
		writeEnvelope(w, 200, "success", api.SecurityPinStatus{HasSecurityPin: f.pinSet})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "success", api.RefreshResponse{Token: "tok-refreshed"})
	})
	mux.HandleFunc("/api/v1/secrets", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 401, "expired", nil)
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		if f.expireAll.Load() {
			writeEnvelope(w, 401, "expired", nil)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

type harness struct {
	app     *App
	cfg     *config.Config
	svc     *fakeService
	notices *notice.Recorder
}

func newHarness(t *testing.T, mutate func(*config.Config), opts ...func(*Options)) *harness {
	t.Helper()
	svc := &fakeService{role: api.RoleUser, pinSet: true}
	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL + "/api"
	cfg.Credential.Path = filepath.Join(dir, "token")
	cfg.Credential.Watch = false
	cfg.Journal.Path = filepath.Join(dir, "journal.db")
	cfg.Log.Path = ""
	if mutate != nil {
		mutate(cfg)
	}

	rec := &notice.Recorder{}
	o := Options{Config: cfg, Logger: zap.NewNop(), Notifier: rec}
	for _, fn := range opts {
		fn(&o)
	}
	a, err := New(context.Background(), o)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	return &harness{app: a, cfg: cfg, svc: svc, notices: rec}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.app.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
	h.notices.Reset()
}

func (h *harness) journal(t *testing.T, kind storage.Kind) []storage.Event {
	t.Helper()
	events, err := h.app.Journal.Recent(context.Background(), storage.Query{Kind: kind, Limit: 100})
	require.NoError(t, err)
	return events
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(context.Background(), Options{})
	assert.Error(t, err)
}

func TestNew_LoadsExistingToken(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "token"), []byte("persisted\n"), 0600))

	h := newHarness(t, func(c *config.Config) { c.Credential.Path = filepath.Join(dir, "token") })

	assert.True(t, h.app.Session.IsAuthenticated())
	assert.Equal(t, "persisted", h.app.Session.Token())
}

func TestNew_InvalidRouteConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Credential.Backend = "memory"
	cfg.Journal.Enabled = false
	cfg.Log.Path = ""
	cfg.Routes.Landing = "/nowhere"

	_, err := New(context.Background(), Options{Config: cfg, Logger: zap.NewNop()})
	assert.ErrorContains(t, err, "routes")
}

func TestNew_JournalDisabled(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Journal.Enabled = false })
	assert.Nil(t, h.app.Journal)
	h.login(t)
}

func TestClose_Idempotent(t *testing.T) {
	h := newHarness(t, nil)
	assert.NoError(t, h.app.Close())
	assert.NoError(t, h.app.Close())
}

// =============================================================================
// LOGIN AND LOGOUT
// =============================================================================

func TestLogin(t *testing.T) {
	h := newHarness(t, nil)

	user, err := h.app.Login(context.Background(), "alice", "s3cret")

	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "tok-alice", h.app.Session.Token())
	assert.Equal(t, []notice.Key{notice.KeyLoggedIn}, h.notices.Keys())

	stored, err := os.ReadFile(h.cfg.Credential.Path)
	require.NoError(t, err)
	assert.Equal(t, "tok-alice", string(stored))

	assert.Len(t, h.journal(t, storage.KindLogin), 1)
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.app.Login(context.Background(), "alice", "nope")

	assert.ErrorIs(t, err, api.ErrApplication)
	assert.Equal(t, "invalid username or password", api.MessageOf(err))
	assert.False(t, h.app.Session.IsAuthenticated())
	require.Len(t, h.notices.Notices(), 1)
	assert.Equal(t, "invalid username or password", h.notices.Notices()[0].Text)
}

func TestLogout(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	_, err := h.app.Navigate(context.Background(), router.PathVault)
	require.NoError(t, err)

	require.NoError(t, h.app.Logout(context.Background()))

	assert.False(t, h.app.Session.IsAuthenticated())
	assert.Equal(t, router.PathLogin, h.app.Navigator.Current())
	assert.Equal(t, []notice.Key{notice.KeyLoggedOut}, h.notices.Keys())
	_, err = os.Stat(h.cfg.Credential.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestLogout_ServiceUnreachable(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.API.BaseURL = "http://127.0.0.1:1/api" })
	require.NoError(t, h.app.Session.Login(context.Background(), "tok"))

	require.NoError(t, h.app.Logout(context.Background()))

	assert.False(t, h.app.Session.IsAuthenticated())
	assert.Equal(t, []notice.Key{notice.KeyLoggedOut}, h.notices.Keys(), "the failed revoke is quiet")
}

func TestRefresh(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)

	require.NoError(t, h.app.Refresh(context.Background()))

	assert.Equal(t, "tok-refreshed", h.app.Session.Token())
}

func TestIdleLogout(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Session.IdleTimeoutSecs = 600 })
	h.login(t)

	require.NoError(t, h.app.IdleLogout(context.Background()))

	assert.False(t, h.app.Session.IsAuthenticated())
	assert.Equal(t, []notice.Key{notice.KeyLoggedOut, notice.KeyIdleLogout}, h.notices.Keys())
}

// =============================================================================
// NAVIGATION
// =============================================================================

func TestNavigate_RoleCheckCachesUser(t *testing.T) {
	h := newHarness(t, nil)
	h.svc.role = api.RoleAdmin
	require.NoError(t, h.app.Session.Login(context.Background(), "tok"))
	require.Nil(t, h.app.Session.CurrentUser())

	tr, err := h.app.Navigate(context.Background(), router.PathSystemConfig)

	require.NoError(t, err)
	assert.Equal(t, router.PathSystemConfig, tr.To)
	require.NotNil(t, h.app.Session.CurrentUser())
	assert.Equal(t, api.RoleAdmin, h.app.Session.CurrentUser().Role)
}

func TestNavigate_PinEnrollment(t *testing.T) {
	h := newHarness(t, nil)
	h.svc.pinSet = false
	h.login(t)

	tr, err := h.app.Navigate(context.Background(), "/")

	require.NoError(t, err)
	assert.Equal(t, router.PathSetupSecurityPin, tr.To)

	navs := h.journal(t, storage.KindNavigation)
	require.Len(t, navs, 1)
	assert.Equal(t, string(router.ReasonPinNotEnrolled), navs[0].Reason)
	assert.Equal(t, "alice", navs[0].Username)
}

func TestNavigate_PinStatusUnavailableFailsOpen(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	h.svc.pinBroken = true

	tr, err := h.app.Navigate(context.Background(), "/vault")

	require.NoError(t, err)
	assert.Equal(t, router.PathVault, tr.To)
	assert.Empty(t, h.notices.Notices())
	assert.True(t, h.app.Session.IsAuthenticated())

	navs := h.journal(t, storage.KindNavigation)
	require.Len(t, navs, 1)
	assert.Equal(t, "pin_check_failed_open", navs[0].Reason)
}

// =============================================================================
// FORCED LOGOUT
// =============================================================================

func TestUnauthorizedEnvelope_ForcesLogout(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	_, err := h.app.Navigate(context.Background(), router.PathVault)
	require.NoError(t, err)

	_, err = h.app.Client.Send(context.Background(), http.MethodGet, "/v1/secrets", nil, nil)

	assert.ErrorIs(t, err, api.ErrAuthentication)
	tok, _ := h.app.Store.Get(context.Background())
	assert.Empty(t, tok)
	assert.False(t, h.app.Session.IsAuthenticated())
	assert.Equal(t, router.PathLogin, h.app.Navigator.Current())
	assert.Equal(t, []notice.Key{notice.KeySessionExpired}, h.notices.Keys())
	assert.Len(t, h.journal(t, storage.KindForcedLogout), 1)
}

func TestForcedLogout_ConcurrentUnauthorized(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	_, err := h.app.Navigate(context.Background(), router.PathVault)
	require.NoError(t, err)

	var mu sync.Mutex
	var forced int
	h.app.Navigator.OnChange(func(tr router.Transition) {
		if tr.Forced {
			mu.Lock()
			forced++
			mu.Unlock()
		}
	})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.app.Client.Send(context.Background(), http.MethodGet, "/v1/secrets", nil, nil)
			assert.ErrorIs(t, err, api.ErrAuthentication)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, forced, "one effective navigation")
	assert.Equal(t, []notice.Key{notice.KeySessionExpired}, h.notices.Keys(), "duplicate notices collapse")
	assert.Equal(t, router.PathLogin, h.app.Navigator.Current())
}

func TestForceLogout_Twice(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	_, err := h.app.Navigate(context.Background(), router.PathVault)
	require.NoError(t, err)

	h.app.ForceLogout(context.Background())
	h.app.ForceLogout(context.Background())

	assert.Equal(t, router.PathLogin, h.app.Navigator.Current())
	assert.Len(t, h.journal(t, storage.KindForcedLogout), 1)
}

func TestGuard_UnauthorizedPinLookupEndsSession(t *testing.T) {
	h := newHarness(t, nil)
	h.login(t)
	h.svc.expireAll.Store(true)

	tr, err := h.app.Navigate(context.Background(), router.PathVault)

	// The forced redirect lands first and supersedes the evaluation.
	if err != nil {
		assert.ErrorIs(t, err, router.ErrSuperseded)
	} else {
		assert.Equal(t, router.PathLogin, tr.To)
	}
	assert.Equal(t, router.PathLogin, h.app.Navigator.Current())
	assert.False(t, h.app.Session.IsAuthenticated())
	assert.Equal(t, []notice.Key{notice.KeySessionExpired}, h.notices.Keys())
}

// =============================================================================
// NOTIFIER
// =============================================================================

func TestSetNotifier(t *testing.T) {
	h := newHarness(t, nil)
	replacement := &notice.Recorder{}
	h.app.SetNotifier(replacement)

	h.app.Notify(notice.Warning(notice.KeyExternalLogout))

	assert.Empty(t, h.notices.Notices())
	assert.Equal(t, []notice.Key{notice.KeyExternalLogout}, replacement.Keys())
	assert.Len(t, h.journal(t, storage.KindNotice), 1)
}

func TestDispatcher_CollapsesSessionExpired(t *testing.T) {
	rec := &notice.Recorder{}
	d := newDispatcher(rec)
	now := time.Unix(0, 0)
	d.now = func() time.Time { return now }

	d.Notify(notice.Error(notice.KeySessionExpired))
	d.Notify(notice.Error(notice.KeySessionExpired))
	now = now.Add(2 * dedupeWindow)
	d.Notify(notice.Error(notice.KeySessionExpired))

	assert.Equal(t, []notice.Key{notice.KeySessionExpired, notice.KeySessionExpired}, rec.Keys())
	assert.Len(t, d.last, 1)
}

func TestDispatcher_RepeatedFailuresEachNotify(t *testing.T) {
	rec := &notice.Recorder{}
	d := newDispatcher(rec)
	d.now = func() time.Time { return time.Unix(0, 0) }

	d.Notify(notice.Error(notice.KeyTimeout))
	d.Notify(notice.Error(notice.KeyTimeout))
	d.Notify(notice.Remote("boom"))
	d.Notify(notice.Remote("boom"))

	assert.Equal(t, []notice.Key{
		notice.KeyTimeout, notice.KeyTimeout, notice.KeyRequestFailed, notice.KeyRequestFailed,
	}, rec.Keys())
	assert.Empty(t, d.last)
}

func TestLogin_RepeatedWrongPasswordNotifiesEachTime(t *testing.T) {
	h := newHarness(t, nil)

	_, err1 := h.app.Login(context.Background(), "alice", "nope")
	_, err2 := h.app.Login(context.Background(), "alice", "nope")

	require.Error(t, err1)
	require.Error(t, err2)
	assert.Equal(t, []notice.Key{notice.KeyRequestFailed, notice.KeyRequestFailed}, h.notices.Keys())
}

// =============================================================================
// CREDENTIAL WATCHER
// =============================================================================

func TestWatcher_ExternalLogout(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Credential.Watch = true })
	h.login(t)
	_, err := h.app.Navigate(context.Background(), router.PathVault)
	require.NoError(t, err)
	require.NotNil(t, h.app.watcher)

	require.NoError(t, os.Remove(h.cfg.Credential.Path))

	require.Eventually(t, func() bool {
		return !h.app.Session.IsAuthenticated() && h.app.Navigator.Current() == router.PathLogin
	}, 3*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, k := range h.notices.Keys() {
			if k == notice.KeyExternalLogout {
				return true
			}
		}
		return false
	}, time.Second, 20*time.Millisecond)
}

func TestWatcher_ExternalLogin(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Credential.Watch = true })
	require.False(t, h.app.Session.IsAuthenticated())

	require.NoError(t, os.WriteFile(h.cfg.Credential.Path, []byte("from-other-terminal"), 0600))

	require.Eventually(t, func() bool {
		return h.app.Session.Token() == "from-other-terminal"
	}, 3*time.Second, 20*time.Millisecond)
}
