// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/jeranaias/vaulthub-tui/internal/api"
	"github.com/jeranaias/vaulthub-tui/internal/notice"
)

// TokenSource reports the stored bearer token. "" means none.
type TokenSource interface {
	Get(ctx context.Context) (string, error)
}

// Lookup fetches the remote facts the guard needs. *api.Client satisfies it.
type Lookup interface {
	CurrentUser(ctx context.Context) (*api.UserInfo, error)
	SecurityPinStatus(ctx context.Context) (*api.SecurityPinStatus, error)
}

// UserCache receives the user snapshot fetched during a role check.
type UserCache interface {
	SetCurrentUser(u *api.UserInfo) error
}

// Outcome is the guard's verdict.
type Outcome int

const (
	Allow Outcome = iota
	Redirect
)

func (o Outcome) String() string {
	if o == Redirect {
		return "redirect"
	}
	return "allow"
}

// Reason says which check produced a decision.
type Reason string

const (
	ReasonAllowed              Reason = "allowed"
	ReasonUnauthenticated      Reason = "unauthenticated"
	ReasonAlreadyAuthenticated Reason = "already_authenticated"
	ReasonUserLookupFailed     Reason = "user_lookup_failed"
	ReasonRoleMismatch         Reason = "role_mismatch"
	ReasonPinNotEnrolled       Reason = "pin_not_enrolled"
	ReasonSessionEnded         Reason = "session_ended"
)

// Decision is the result of evaluating one transition.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	// Route is the route that was evaluated.
	Route Route `json:"route"`
	// Target is where to go instead when Outcome is Redirect.
	Target string `json:"target,omitempty"`
	Reason Reason `json:"reason"`
	// PinCheckFailedOpen is set when the PIN status could not be fetched
	// and the transition was allowed anyway.
	PinCheckFailedOpen bool `json:"pin_check_failed_open,omitempty"`
}

// Allowed reports whether the decision permits the transition.
func (d Decision) Allowed() bool { return d.Outcome == Allow }

// Guard evaluates transitions against route policies.
type Guard struct {
	table    *Table
	tokens   TokenSource
	lookup   Lookup
	users    UserCache
	notifier notice.Notifier
	log      *zap.Logger
}

// NewGuard returns a guard over table that reads tokens from tokens and
// remote facts from lookup.
func NewGuard(table *Table, tokens TokenSource, lookup Lookup) *Guard {
	return &Guard{
		table:    table,
		tokens:   tokens,
		lookup:   lookup,
		notifier: notice.Discard,
		log:      zap.NewNop(),
	}
}

// WithNotifier sets where guard notices go.
func (g *Guard) WithNotifier(n notice.Notifier) *Guard {
	if n != nil {
		g.notifier = n
	}
	return g
}

// WithUserCache stores user snapshots fetched by role checks.
func (g *Guard) WithUserCache(c UserCache) *Guard {
	g.users = c
	return g
}

// WithLogger sets the logger.
func (g *Guard) WithLogger(log *zap.Logger) *Guard {
	if log != nil {
		g.log = log.Named("guard")
	}
	return g
}

// Table returns the route table the guard enforces.
func (g *Guard) Table() *Table { return g.table }

// Evaluate runs the policy chain for route. Checks run in order and the
// first decisive one wins.
func (g *Guard) Evaluate(ctx context.Context, route Route) Decision {
	special := g.table.Special()
	policy := route.Policy
	hasToken := g.hasToken(ctx)

	allow := Decision{Outcome: Allow, Route: route, Reason: ReasonAllowed}
	redirect := func(target string, reason Reason) Decision {
		return Decision{Outcome: Redirect, Route: route, Target: target, Reason: reason}
	}

	if policy.RequiresAuth && !hasToken {
		return redirect(special.Login, ReasonUnauthenticated)
	}

	if hasToken && g.table.IsAuthEntry(route.Path) {
		return redirect(special.Landing, ReasonAlreadyAuthenticated)
	}

	if policy.RequiredRole != "" && hasToken {
		// The guard speaks for this failure itself, so the transport stays
		// quiet.
		user, err := g.lookup.CurrentUser(api.Quiet(ctx))
		if err != nil {
			g.log.Warn("current user lookup failed", zap.String("route", route.Path), zap.Error(err))
			if !errors.Is(err, api.ErrAuthentication) && ctx.Err() == nil {
				g.notifier.Notify(notice.Error(notice.KeyUserInfoFailed))
			}
			return redirect(special.Login, ReasonUserLookupFailed)
		}
		if g.users != nil {
			if err := g.users.SetCurrentUser(user); err != nil {
				g.log.Debug("user snapshot not cached", zap.Error(err))
			}
		}
		if user.Role != policy.RequiredRole {
			g.notifier.Notify(notice.Error(notice.KeyNoPagePermission))
			return redirect(special.Landing, ReasonRoleMismatch)
		}
	}

	if policy.RequiresAuth && !policy.SkipSecurityPinCheck && hasToken {
		status, err := g.lookup.SecurityPinStatus(api.Quiet(ctx))
		switch {
		case errors.Is(err, api.ErrAuthentication):
			return redirect(special.Login, ReasonSessionEnded)
		case err != nil:
			// Enrollment is a nudge; the service enforces PIN use on every
			// protected operation.
			g.log.Warn("security PIN status unavailable, allowing navigation",
				zap.String("route", route.Path), zap.Error(err))
			allow.PinCheckFailedOpen = true
		case !status.HasSecurityPin && route.Path != special.Enrollment:
			return redirect(special.Enrollment, ReasonPinNotEnrolled)
		}
	}

	return allow
}

func (g *Guard) hasToken(ctx context.Context) bool {
	token, err := g.tokens.Get(ctx)
	if err != nil {
		g.log.Warn("credential read failed, treating as logged out", zap.Error(err))
		return false
	}
	return token != ""
}
