// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/vaulthub-tui/internal/app"
	"github.com/jeranaias/vaulthub-tui/internal/config"
	"github.com/jeranaias/vaulthub-tui/internal/notice"
	"github.com/jeranaias/vaulthub-tui/internal/router"
)

// Runtime is what a command body receives.
type Runtime struct {
	Ctx    context.Context
	Env    *Env
	Cmd    *cobra.Command
	Config *config.Config

	// App is nil for commands built with wrapLocal.
	App *app.App
	Log *zap.Logger
}

// Out is stdout.
func (rt *Runtime) Out() io.Writer { return rt.Env.Streams.Out }

// Errf writes a human line to stderr.
func (rt *Runtime) Errf(format string, args ...any) {
	fmt.Fprintf(rt.Env.Streams.Err, format, args...)
}

// Emit prints data as JSON in --json mode and calls human otherwise.
func (rt *Runtime) Emit(data any, human func(w io.Writer)) error {
	if rt.Env.JSON {
		return NewJSONResponse(rt.Cmd.CommandPath(), data).Print(rt.Out())
	}
	human(rt.Out())
	return nil
}

// loadConfig loads the config file and applies flag overrides.
func (env *Env) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		var verrs config.ValidateErrors
		if errors.As(err, &verrs) {
			return nil, err
		}
		return nil, &ConfigError{Err: err}
	}
	if env.APIURL == "" && env.Lang == "" {
		return cfg, nil
	}
	if env.APIURL != "" {
		cfg.API.BaseURL = env.APIURL
	}
	if env.Lang != "" {
		cfg.UI.Language = env.Lang
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// wrap builds the App for a command, runs the guard for the command's route
// and then fn. The App is closed when fn returns.
func wrap(env *Env, fn func(rt *Runtime, args []string) error) func(*cobra.Command, []string) error {
	return run(env, true, fn)
}

// wrapLocal runs fn with the config only. Used by commands that never talk
// to the service.
func wrapLocal(env *Env, fn func(rt *Runtime, args []string) error) func(*cobra.Command, []string) error {
	return run(env, false, fn)
}

func run(env *Env, withApp bool, fn func(rt *Runtime, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		start := time.Now()
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := env.loadConfig()
		if err != nil {
			return err
		}
		rt := &Runtime{Ctx: ctx, Env: env, Cmd: cmd, Config: cfg, Log: zap.NewNop()}

		if withApp {
			a, err := app.New(ctx, app.Options{
				Config:     cfg,
				Verbose:    env.Verbose,
				Store:      env.Store,
				HTTPClient: env.HTTPClient,
				// One-shot commands exit before another terminal could
				// change the token.
				NoWatch: cmd.Name() != "tui" && cmd.Parent() != nil,
			})
			if err != nil {
				return &ConfigError{Err: err}
			}
			a.SetNotifier(newTermNotifier(env.Streams.Err, a.Localizer))
			defer a.Close()
			rt.App = a
			rt.Log = a.Log.With(zap.String("command", cmd.CommandPath()))
		}

		rt.Log.Info("command started", zap.Strings("args", redactArgs(cmd, args)))
		defer func() {
			if r := recover(); r != nil {
				rt.Log.Error("command panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = fmt.Errorf("internal error: %v", r)
			}
			if err != nil {
				rt.Log.Warn("command failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
			} else {
				rt.Log.Info("command finished", zap.Duration("duration", time.Since(start)))
			}
		}()

		if rt.App != nil {
			if route := cmd.Annotations[routeAnnotation]; route != "" {
				if err := rt.guard(route); err != nil {
					return err
				}
			}
		}
		return fn(rt, args)
	}
}

// guard navigates to route and fails unless the guard allowed it.
func (rt *Runtime) guard(route string) error {
	tr, err := rt.App.Navigate(rt.Ctx, route)
	if errors.Is(err, router.ErrSuperseded) {
		// The credential was rejected during the checks.
		return &GuardError{Route: route, Decision: router.Decision{
			Outcome: router.Redirect,
			Target:  rt.App.Guard.Table().Special().Login,
			Reason:  router.ReasonSessionEnded,
		}}
	}
	if err != nil {
		return err
	}
	if len(tr.Decisions) == 0 {
		return nil
	}
	d := tr.Decisions[0]
	if d.Allowed() {
		if d.PinCheckFailedOpen {
			rt.Log.Warn("security PIN status unknown; continuing")
		}
		return nil
	}
	return &GuardError{Route: route, Decision: d}
}

// redactArgs drops positional args of commands that take secrets.
func redactArgs(cmd *cobra.Command, args []string) []string {
	if cmd.Annotations["sensitive"] == "true" {
		return []string{"[redacted]"}
	}
	return args
}

// =============================================================================
// NOTICES
// =============================================================================

// termNotifier prints notices to a terminal stream.
type termNotifier struct {
	w   io.Writer
	loc *notice.Localizer
}

func newTermNotifier(w io.Writer, loc *notice.Localizer) *termNotifier {
	return &termNotifier{w: w, loc: loc}
}

func (t *termNotifier) Notify(n notice.Notice) {
	style, tag := noticeStyle(n.Level)
	fmt.Fprintf(t.w, "%s %s\n", RenderConditional(style, tag), n.Message(t.loc))
}
