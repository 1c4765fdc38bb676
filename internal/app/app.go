// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/config"
	"github.com/jeranaias/vaulthub-tui/internal/credential"
	"github.com/jeranaias/vaulthub-tui/internal/logging"
	"github.com/jeranaias/vaulthub-tui/internal/notice"
	"github.com/jeranaias/vaulthub-tui/internal/router"
	"github.com/jeranaias/vaulthub-tui/internal/session"
	"github.com/jeranaias/vaulthub-tui/internal/storage"
)

// watchDebounce coalesces bursts of writes to the token file.
const watchDebounce = 150 * time.Millisecond

// Options configures New. Only Config is required.
type Options struct {
	Config *config.Config

	// Logger overrides the logger built from Config.Log.
	Logger *zap.Logger

	// Verbose adds a console log core on stderr.
	Verbose bool

	// Notifier receives user-facing notices. It can be replaced later with
	// SetNotifier.
	Notifier notice.Notifier

	// Store overrides the credential backend selected by Config.
	Store credential.Store

	// HTTPClient overrides the transport's HTTP client.
	HTTPClient *http.Client

	// Routes overrides the default route table.
	Routes []router.Route

	// NoWatch disables the credential file watcher.
	NoWatch bool
}

// App is the lifecycle-scoped context of the client.
type App struct {
	Config    *config.Config
	Log       *zap.Logger
	Localizer *notice.Localizer
	Store     credential.Store
	Session   *session.State
	Client    *api.Client
	Guard     *router.Guard
	Navigator *router.Navigator

	// Journal is nil when the journal is disabled.
	Journal *storage.Journal

	notifier *dispatcher
	notify   notice.Notifier
	watcher  *credential.Watcher
	cancel   context.CancelFunc

	closeOnce sync.Once
	closers   []func() error
}

// New builds the App and loads the session from the credential store. The
// caller must Close it.
func New(ctx context.Context, opts Options) (_ *App, err error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}

	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// Logging
	a.Log = opts.Logger
	if a.Log == nil {
		a.Log, err = logging.New(logging.Options{
			Level:    cfg.Log.Level,
			Path:     cfg.Log.Path,
			Encoding: cfg.Log.Encoding,
			Verbose:  opts.Verbose,
		})
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		a.closers = append(a.closers, func() error {
			_ = a.Log.Sync()
			return nil
		})
	}

	a.Localizer, err = notice.NewLocalizer(cfg.UI.Language)
	if err != nil {
		return nil, err
	}

	// Credential store
	a.Store = opts.Store
	if a.Store == nil {
		a.Store, err = credential.Open(credential.Options{
			Backend:       cfg.Credential.Backend,
			Slot:          cfg.Credential.Slot,
			Path:          cfg.Credential.Path,
			RedisAddr:     cfg.Credential.RedisAddr,
			RedisDB:       cfg.Credential.RedisDB,
			RedisPassword: cfg.Credential.RedisPassword,
		})
		if err != nil {
			return nil, err
		}
		if c, ok := a.Store.(io.Closer); ok {
			a.closers = append(a.closers, c.Close)
		}
	}

	// Journal
	var sinks []notice.Notifier
	if cfg.Journal.Enabled {
		a.Journal, err = storage.Open(storage.Options{Path: cfg.Journal.Path, MaxEntries: cfg.Journal.MaxEntries})
		if err != nil {
			return nil, fmt.Errorf("journal: %w", err)
		}
		a.closers = append(a.closers, a.Journal.Close)
		sinks = append(sinks, journalNotifier{journal: a.Journal, loc: a.Localizer, log: a.Log})
	}
	a.notifier = newDispatcher(opts.Notifier)
	a.notify = notice.Fanout(append([]notice.Notifier{a.notifier}, sinks...)...)

	// Session
	a.Session = session.New(a.Store, a.Log)
	if err := a.Session.Load(ctx); err != nil {
		return nil, err
	}

	// Transport
	a.Client = api.New(cfg.API.BaseURL, a.Store).
		WithTimeout(cfg.API.Timeout()).
		WithUserAgent(cfg.API.UserAgent).
		WithMaxResponseSize(cfg.API.MaxResponseSize()).
		WithCodes(api.Codes{Success: cfg.API.SuccessCodes, Unauthorized: cfg.API.AuthCodes}).
		WithRateLimit(cfg.API.RequestsPerSecond, cfg.API.Burst).
		WithNotifier(a.notify).
		WithDeauthenticator(a).
		WithLogger(a.Log)
	if opts.HTTPClient != nil {
		a.Client.WithHTTPClient(opts.HTTPClient)
	}

	// Guard and navigator
	routes := opts.Routes
	if routes == nil {
		routes = router.DefaultRoutes()
	}
	table, err := router.NewTable(routes, router.Special{
		Login:      cfg.Routes.Login,
		Register:   cfg.Routes.Register,
		Landing:    cfg.Routes.Landing,
		Enrollment: cfg.Routes.Enrollment,
	})
	if err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}
	a.Guard = router.NewGuard(table, a.Store, a.Client).
		WithNotifier(a.notify).
		WithUserCache(a.Session).
		WithLogger(a.Log)
	a.Navigator = router.NewNavigator(a.Guard).WithLogger(a.Log)
	a.Navigator.OnChange(a.journalTransition)

	// Watcher
	if fs, ok := a.Store.(*credential.FileStore); ok && cfg.Credential.Watch && !opts.NoWatch {
		if err := a.startWatcher(fs); err != nil {
			// Cross-terminal sync is a convenience; the session still works.
			a.Log.Warn("credential watcher unavailable", zap.Error(err))
		}
	}

	a.Log.Info("app started",
		zap.String("base_url", cfg.API.BaseURL),
		zap.String("credential_backend", cfg.Credential.Backend),
		zap.Bool("authenticated", a.Session.IsAuthenticated()),
	)
	return a, nil
}

// SetNotifier replaces the presentation notifier.
func (a *App) SetNotifier(n notice.Notifier) {
	a.notifier.set(n)
}

// Notify sends n through the same channel the client and guard use.
func (a *App) Notify(n notice.Notice) {
	a.notify.Notify(n)
}

// Close stops the watcher and releases the store, journal and logger.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		if a.watcher != nil {
			if err := a.watcher.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

// =============================================================================
// SESSION ACTIONS
// =============================================================================

// Login authenticates with the service, stores the token and, when a
// navigator route is current, moves to the landing route.
func (a *App) Login(ctx context.Context, username, password string) (*api.UserInfo, error) {
	resp, err := a.Client.Login(ctx, api.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return nil, &api.Error{Kind: api.KindServer, Message: "login response carried no token", Path: "/v1/auth/login"}
	}
	if err := a.Session.LoginAs(ctx, resp.Token, resp.User); err != nil {
		return nil, err
	}

	name := username
	if resp.User != nil && resp.User.Username != "" {
		name = resp.User.Username
	}
	a.record(storage.Event{Kind: storage.KindLogin, Username: name})
	a.Notify(notice.Success(notice.KeyLoggedIn, name))
	return a.Session.CurrentUser(), nil
}

// Logout revokes the token on the service, best effort, then clears the
// session and returns to the login route. The local session ends even when
// the service cannot be reached.
func (a *App) Logout(ctx context.Context) error {
	if a.Session.IsAuthenticated() {
		if err := a.Client.Logout(api.Quiet(ctx)); err != nil {
			a.Log.Info("service logout failed", zap.Error(err))
		}
	}
	was := a.Session.IsAuthenticated()
	err := a.Session.Logout(ctx)
	a.Navigator.ForceRedirect(a.Guard.Table().Special().Login)
	if was {
		a.record(storage.Event{Kind: storage.KindLogout})
		a.Notify(notice.Success(notice.KeyLoggedOut))
	}
	return err
}

// Refresh swaps the held token for a fresh one.
func (a *App) Refresh(ctx context.Context) error {
	resp, err := a.Client.RefreshToken(ctx)
	if err != nil {
		return err
	}
	if resp.Token == "" {
		return &api.Error{Kind: api.KindServer, Message: "refresh response carried no token", Path: "/v1/auth/refresh"}
	}
	return a.Session.Login(ctx, resp.Token)
}

// ForceLogout ends the session after the service rejected the credential.
// Repeated calls clear an empty store and redirect to the current route,
// both of which do nothing.
func (a *App) ForceLogout(ctx context.Context) {
	was := a.Session.IsAuthenticated()
	if err := a.Session.Logout(ctx); err != nil {
		a.Log.Error("forced logout could not clear the credential", zap.Error(err))
	}
	moved := a.Navigator.ForceRedirect(a.Guard.Table().Special().Login)
	if was || moved {
		a.Log.Warn("forced logout", zap.Bool("was_authenticated", was), zap.Bool("redirected", moved))
		a.record(storage.Event{Kind: storage.KindForcedLogout, Target: a.Guard.Table().Special().Login})
	}
}

// Navigate runs the guard for path and commits the resulting route.
func (a *App) Navigate(ctx context.Context, path string) (router.Transition, error) {
	return a.Navigator.Navigate(ctx, path)
}

// IdleLogout logs out after the idle timeout elapsed.
func (a *App) IdleLogout(ctx context.Context) error {
	if !a.Session.IsAuthenticated() {
		return nil
	}
	err := a.Logout(ctx)
	a.Notify(notice.Warning(notice.KeyIdleLogout, int(a.Config.Session.IdleTimeout().Minutes())))
	return err
}

// =============================================================================
// INTERNALS
// =============================================================================

func (a *App) startWatcher(fs *credential.FileStore) error {
	w, err := credential.NewWatcher(fs, watchDebounce, a.Log)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := w.Start(ctx, a.onExternalChange); err != nil {
		cancel()
		w.Close()
		return err
	}
	a.watcher = w
	a.cancel = cancel
	return nil
}

// onExternalChange applies a token written or removed by another process.
func (a *App) onExternalChange(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.Client.Timeout())
	defer cancel()

	was := a.Session.IsAuthenticated()
	if err := a.Session.Resync(ctx, token); err != nil {
		a.Log.Warn("session resync failed", zap.Error(err))
		return
	}
	if token == "" && was {
		a.Log.Info("credential removed externally")
		a.Navigator.ForceRedirect(a.Guard.Table().Special().Login)
		a.record(storage.Event{Kind: storage.KindLogout, Reason: "external"})
		a.Notify(notice.Warning(notice.KeyExternalLogout))
	}
}

func (a *App) journalTransition(tr router.Transition) {
	e := storage.Event{
		Kind:   storage.KindNavigation,
		Route:  tr.Requested,
		Target: tr.To,
	}
	switch {
	case tr.Forced:
		e.Reason = "forced"
	default:
		for _, d := range tr.Decisions {
			if !d.Allowed() {
				e.Reason = string(d.Reason)
				break
			}
		}
		if e.Reason == "" {
			e.Reason = string(router.ReasonAllowed)
			if d, ok := tr.Final(); ok && d.PinCheckFailedOpen {
				e.Reason = "pin_check_failed_open"
			}
		}
	}
	if u := a.Session.CurrentUser(); u != nil {
		e.Username = u.Username
	}
	a.record(e)
}

func (a *App) record(e storage.Event) {
	if a.Journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := a.Journal.Record(ctx, e); err != nil {
		a.Log.Debug("journal write failed", zap.String("kind", string(e.Kind)), zap.Error(err))
	}
}
