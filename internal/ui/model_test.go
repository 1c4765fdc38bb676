// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/app"
	"github.com/jeranaias/vaulthub-tui/internal/config"
	"github.com/jeranaias/vaulthub-tui/internal/notice"
	"github.com/jeranaias/vaulthub-tui/internal/router"
	"github.com/jeranaias/vaulthub-tui/internal/session"
)

// =============================================================================
// FAKE SERVICE
// =============================================================================

const testPin = "12345678"

type fakeVault struct {
	role    string
	pinSet  bool
	expired atomic.Bool
}

func reply(w http.ResponseWriter, code int, message string, data any) {
	raw, _ := json.Marshal(data)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(api.Envelope{Code: code, Message: message, Data: raw})
}

func (f *fakeVault) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "s3cret" {
			reply(w, 400, "invalid username or password", nil)
			return
		}
		reply(w, 200, "success", api.LoginResponse{
			Token: "tok-" + req.Username,
			User:  &api.UserInfo{Username: req.Username, Role: f.role},
		})
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, "success", nil)
	})
	mux.HandleFunc("/api/v1/auth/current", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, "success", api.UserInfo{Username: "alice", Role: f.role})
	})
	mux.HandleFunc("/api/v1/auth/security-pin-status", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, "success", api.SecurityPinStatus{HasSecurityPin: f.pinSet})
	})
	mux.HandleFunc("/api/v1/secrets", func(w http.ResponseWriter, r *http.Request) {
		reply(w, 200, "success", api.SecretList{
			Secrets: []api.Secret{
				{SecretUUID: "s-1", SecretName: "prod-db", SecretType: api.SecretDBCredential, UpdatedAt: time.Now()},
				{SecretUUID: "s-2", SecretName: "github", SecretType: api.SecretToken, AccessCount: 3, UpdatedAt: time.Now()},
			},
			Total: 2, Page: 1, PageSize: 100, TotalPages: 1,
		})
	})
	mux.HandleFunc("/api/v1/secrets/s-1/decrypt", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["security_pin"] != testPin {
			reply(w, 400, "invalid security PIN", nil)
			return
		}
		reply(w, 200, "success", api.DecryptedSecret{
			Secret:    api.Secret{SecretUUID: "s-1", SecretName: "prod-db"},
			PlainData: "postgres://app:hunter2@db/prod",
		})
	})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if f.expired.Load() {
			reply(w, 401, "token expired", nil)
			return
		}
		mux.ServeHTTP(w, r)
	})
}

type testEnv struct {
	app     *app.App
	svc     *fakeVault
	model   *Model
	notices *notice.Recorder
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	svc := &fakeVault{role: api.RoleUser, pinSet: true}
	srv := httptest.NewServer(svc.handler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.API.BaseURL = srv.URL + "/api"
	cfg.Credential.Path = filepath.Join(dir, "token")
	cfg.Credential.Watch = false
	cfg.Journal.Enabled = false
	cfg.Log.Path = ""
	if mutate != nil {
		mutate(cfg)
	}

	rec := &notice.Recorder{}
	a, err := app.New(context.Background(), app.Options{Config: cfg, Logger: zap.NewNop(), Notifier: rec, NoWatch: true})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	m := NewModel(context.Background(), a, "")
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &testEnv{app: a, svc: svc, model: m, notices: rec}
}

// update feeds msg to the model and returns the command it produced.
func (e *testEnv) update(msg tea.Msg) tea.Cmd {
	_, cmd := e.model.Update(msg)
	return cmd
}

// navigate runs a guarded navigation to completion and returns the command
// of the screen that opened.
func (e *testEnv) navigate(t *testing.T, path string) tea.Cmd {
	t.Helper()
	cmd := e.update(navigateMsg{Path: path})
	require.NotNil(t, cmd)
	msg, ok := cmd().(navigatedMsg)
	require.True(t, ok)
	return e.update(msg)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	_, err := e.app.Login(context.Background(), "alice", "s3cret")
	require.NoError(t, err)
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func key(t tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: t} }

// =============================================================================
// NAVIGATION
// =============================================================================

func TestModel_UnauthenticatedLandsOnLogin(t *testing.T) {
	e := newTestEnv(t, nil)

	e.navigate(t, router.PathVault)

	assert.Equal(t, router.PathLogin, e.model.Route())
	_, ok := e.model.view.(*formView)
	assert.True(t, ok)
	assert.Contains(t, e.model.View(), "Log in to VaultHub")
	assert.Equal(t, 0, e.model.pending)
}

func TestModel_LoginFormNavigatesToLanding(t *testing.T) {
	e := newTestEnv(t, nil)
	e.navigate(t, router.PathLogin)

	e.update(keyRunes("alice"))
	e.update(key(tea.KeyTab))
	e.update(keyRunes("s3cret"))
	submit := e.update(key(tea.KeyEnter))
	require.NotNil(t, submit)

	done, ok := submit().(formDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)

	next := e.update(done)
	require.NotNil(t, next)
	nav, ok := next().(navigateMsg)
	require.True(t, ok)
	assert.Equal(t, router.PathVault, nav.Path)

	e.navigate(t, nav.Path)
	assert.Equal(t, router.PathVault, e.model.Route())
	assert.True(t, e.app.Session.IsAuthenticated())
}

func TestModel_LoginFormShowsServiceError(t *testing.T) {
	e := newTestEnv(t, nil)
	e.navigate(t, router.PathLogin)

	e.update(keyRunes("alice"))
	e.update(key(tea.KeyTab))
	e.update(keyRunes("wrong"))
	submit := e.update(key(tea.KeyEnter))
	require.NotNil(t, submit)

	e.update(submit())
	f := e.model.view.(*formView)
	assert.NotEmpty(t, f.err)
	assert.Empty(t, f.inputs[1].Value(), "password cleared")
	assert.Equal(t, router.PathLogin, e.model.Route())
}

func TestModel_TypingDoesNotQuit(t *testing.T) {
	e := newTestEnv(t, nil)
	e.navigate(t, router.PathLogin)

	e.update(keyRunes("q"))
	f := e.model.view.(*formView)
	assert.Equal(t, "q", f.inputs[0].Value())
}

func TestModel_PinEnrollmentRedirect(t *testing.T) {
	e := newTestEnv(t, nil)
	e.svc.pinSet = false
	e.login(t)

	e.navigate(t, router.PathVault)
	assert.Equal(t, router.PathSetupSecurityPin, e.model.Route())
	assert.Contains(t, e.model.View(), "Set up security PIN")
}

func TestModel_RoleMismatchStaysOnLanding(t *testing.T) {
	e := newTestEnv(t, nil)
	e.login(t)
	e.navigate(t, router.PathVault)

	e.navigate(t, router.PathSystemConfig)
	assert.Equal(t, router.PathVault, e.model.Route())
	assert.Contains(t, e.notices.Keys(), notice.KeyNoPagePermission)
}

func TestModel_UnknownRouteShowsToast(t *testing.T) {
	e := newTestEnv(t, nil)
	e.login(t)
	e.navigate(t, router.PathVault)

	e.navigate(t, "/nope")
	assert.Equal(t, router.PathVault, e.model.Route())
	toasts := e.model.toasts.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, notice.LevelError, toasts[0].Level)
	assert.Contains(t, toasts[0].Message, "unknown route")
}

// =============================================================================
// VAULT
// =============================================================================

func TestModel_VaultListAndReveal(t *testing.T) {
	e := newTestEnv(t, nil)
	e.login(t)

	load := e.navigate(t, router.PathVault)
	require.NotNil(t, load)
	e.update(load())

	v := e.model.view.(*vaultView)
	require.Len(t, v.secrets, 2)
	assert.Contains(t, e.model.View(), "prod-db")

	e.update(key(tea.KeyEnter))
	require.True(t, v.prompting)
	assert.True(t, v.Typing())

	e.update(keyRunes(testPin))
	reveal := e.update(key(tea.KeyEnter))
	require.NotNil(t, reveal)
	e.update(reveal())

	require.NotNil(t, v.revealed)
	assert.False(t, v.prompting)
	assert.Contains(t, e.model.View(), "hunter2")

	e.update(key(tea.KeyEsc))
	assert.Nil(t, v.revealed)
	assert.NotContains(t, e.model.View(), "hunter2")
}

func TestModel_VaultRevealFitsSmallTerminal(t *testing.T) {
	e := newTestEnv(t, nil)
	e.login(t)
	e.update(e.navigate(t, router.PathVault)())
	e.update(tea.WindowSizeMsg{Width: 80, Height: 24})

	v := e.model.view.(*vaultView)
	e.update(key(tea.KeyEnter))
	e.update(keyRunes(testPin))
	e.update(e.update(key(tea.KeyEnter))())
	require.NotNil(t, v.revealed)

	out := e.model.View()
	assert.Contains(t, out, "hunter2")
	assert.LessOrEqual(t, lipgloss.Height(out), 24)
}

func TestModel_VaultWrongPin(t *testing.T) {
	e := newTestEnv(t, nil)
	e.login(t)
	e.update(e.navigate(t, router.PathVault)())

	v := e.model.view.(*vaultView)
	e.update(key(tea.KeyEnter))
	e.update(keyRunes("00000000"))
	e.update(e.update(key(tea.KeyEnter))())

	assert.Nil(t, v.revealed)
	assert.True(t, v.prompting)
	assert.NotEmpty(t, v.err)
	assert.Empty(t, v.pin.Value())
}

func TestModel_ForcedLogoutReturnsToLogin(t *testing.T) {
	e := newTestEnv(t, nil)
	e.login(t)
	e.update(e.navigate(t, router.PathVault)())

	e.svc.expired.Store(true)
	v := e.model.view.(*vaultView)
	msg := v.load()()

	assert.False(t, e.app.Session.IsAuthenticated())
	assert.Equal(t, router.PathLogin, e.app.Navigator.Current())
	assert.Contains(t, e.notices.Keys(), notice.KeySessionExpired)

	e.update(msg)
	e.update(routeChangedMsg{Transition: router.Transition{To: router.PathLogin, Forced: true}})
	assert.Equal(t, router.PathLogin, e.model.Route())
	_, ok := e.model.view.(*formView)
	assert.True(t, ok)
}

// =============================================================================
// MENU, NOTICES, IDLE
// =============================================================================

func TestModel_MenuListsProtectedRoutes(t *testing.T) {
	e := newTestEnv(t, nil)

	e.update(key(tea.KeyCtrlN))
	assert.Nil(t, e.model.menu, "no menu before login")

	e.login(t)
	e.navigate(t, router.PathVault)
	e.update(key(tea.KeyCtrlN))
	require.NotNil(t, e.model.menu)

	var paths []string
	for _, entry := range e.model.menu.entries {
		paths = append(paths, entry.path)
	}
	assert.Contains(t, paths, router.PathAudit)
	assert.Contains(t, paths, router.PathSystemConfig)
	assert.NotContains(t, paths, router.PathLogin)
	assert.NotContains(t, paths, router.PathSetupSecurityPin)
	assert.Equal(t, logoutEntry, paths[len(paths)-1])
	assert.Contains(t, e.model.View(), "System config (admin)")

	e.update(key(tea.KeyDown))
	cmd := e.update(key(tea.KeyEnter))
	assert.Nil(t, e.model.menu)
	require.NotNil(t, cmd)
	nav, ok := cmd().(navigateMsg)
	require.True(t, ok)
	assert.Equal(t, router.PathUser, nav.Path)
}

func TestModel_MenuLogout(t *testing.T) {
	e := newTestEnv(t, nil)
	e.login(t)
	e.navigate(t, router.PathVault)

	e.update(key(tea.KeyCtrlN))
	e.model.menu.cursor = len(e.model.menu.entries) - 1
	cmd := e.update(key(tea.KeyEnter))
	require.NotNil(t, cmd)
	_, ok := cmd().(logoutMsg)
	require.True(t, ok)

	done := e.update(logoutMsg{})
	e.update(done())
	assert.False(t, e.app.Session.IsAuthenticated())
	assert.Equal(t, router.PathLogin, e.model.Route())
}

func TestModel_NoticeBecomesToast(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.UI.Language = "zh" })

	e.update(noticeMsg{Notice: notice.Error(notice.KeySessionExpired)})

	toasts := e.model.toasts.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "登录已过期，请重新登录", toasts[0].Message)

	// On the login screen x is typed text, not a dismissal.
	e.navigate(t, router.PathVault)
	e.update(keyRunes("x"))
	assert.Len(t, e.model.toasts.Toasts(), 1)
}

func TestModel_DismissToastOutsideInputs(t *testing.T) {
	e := newTestEnv(t, nil)
	e.login(t)
	e.update(e.navigate(t, router.PathVault)())

	e.update(noticeMsg{Notice: notice.Remote("saved")})
	require.Len(t, e.model.toasts.Toasts(), 1)
	e.update(keyRunes("x"))
	assert.Empty(t, e.model.toasts.Toasts())
}

func TestModel_IdleTimeoutLogsOut(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.Session.IdleTimeoutSecs = 60 })
	e.login(t)
	e.navigate(t, router.PathVault)

	e.update(session.IdleWarningMsg{Remaining: 12 * time.Second})
	toasts := e.model.toasts.Toasts()
	require.NotEmpty(t, toasts)
	assert.Equal(t, notice.LevelWarning, toasts[0].Level)
	assert.Contains(t, toasts[0].Message, "12s")

	cmd := e.update(session.IdleTimeoutMsg{Idle: time.Minute})
	require.NotNil(t, cmd)
	e.update(cmd())

	assert.False(t, e.app.Session.IsAuthenticated())
	assert.Equal(t, router.PathLogin, e.model.Route())
	assert.Contains(t, e.notices.Keys(), notice.KeyIdleLogout)
}

func TestModel_IdleIgnoredWhenLoggedOut(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) { c.Session.IdleTimeoutSecs = 60 })

	assert.Nil(t, e.update(session.IdleTimeoutMsg{}))
	e.update(session.IdleWarningMsg{Remaining: time.Second})
	assert.Empty(t, e.model.toasts.Toasts())
}

func TestModel_HeaderShowsUser(t *testing.T) {
	e := newTestEnv(t, nil)
	assert.Contains(t, e.model.View(), "not logged in")

	e.login(t)
	e.navigate(t, router.PathVault)
	view := e.model.View()
	assert.Contains(t, view, "alice")
	assert.True(t, strings.Contains(view, "ctrl+n menu"))
}
