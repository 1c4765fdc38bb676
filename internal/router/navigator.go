// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMaxRedirects bounds redirect chains.
	DefaultMaxRedirects = 5

	historyLimit = 50
)

var (
	// ErrRedirectLoop is returned when a chain exceeds the redirect limit.
	ErrRedirectLoop = errors.New("too many redirects")

	// ErrSuperseded is returned when a forced redirect happened while the
	// navigation was being evaluated. The forced route stays current.
	ErrSuperseded = errors.New("navigation superseded by forced redirect")
)

// Transition describes a committed or attempted route change.
type Transition struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Requested string `json:"requested"`
	// Decisions holds every guard decision of the chain, in order.
	Decisions []Decision `json:"decisions,omitempty"`
	// Forced is set for redirects that bypassed the guard.
	Forced bool `json:"forced,omitempty"`
	// Changed is false when To was already current.
	Changed bool      `json:"changed"`
	At      time.Time `json:"at"`
}

// Final returns the last guard decision, if any.
func (t Transition) Final() (Decision, bool) {
	if len(t.Decisions) == 0 {
		return Decision{}, false
	}
	return t.Decisions[len(t.Decisions)-1], true
}

// Redirected reports whether the user ended somewhere other than requested.
func (t Transition) Redirected() bool {
	return t.To != Normalize(t.Requested)
}

// Navigator owns the current route.
type Navigator struct {
	guard        *Guard
	table        *Table
	maxRedirects int
	log          *zap.Logger

	mu      sync.Mutex
	current string
	history []string
	epoch   uint64

	subMu sync.Mutex
	subs  []func(Transition)
}

// NewNavigator returns a navigator with no current route.
func NewNavigator(guard *Guard) *Navigator {
	return &Navigator{
		guard:        guard,
		table:        guard.Table(),
		maxRedirects: DefaultMaxRedirects,
		log:          zap.NewNop(),
	}
}

// WithLogger sets the logger.
func (n *Navigator) WithLogger(log *zap.Logger) *Navigator {
	if log != nil {
		n.log = log.Named("navigator")
	}
	return n
}

// Current returns the committed route, "" before the first navigation.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// History returns previously committed routes, oldest first.
func (n *Navigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}

// OnChange registers fn to run after every commit that changed the route.
func (n *Navigator) OnChange(fn func(Transition)) {
	n.subMu.Lock()
	n.subs = append(n.subs, fn)
	n.subMu.Unlock()
}

// Resolve runs the guard chain for path without committing anything.
func (n *Navigator) Resolve(ctx context.Context, path string) (Transition, error) {
	tr := Transition{Requested: path, At: time.Now()}
	target := Normalize(path)

	for hops := 0; ; hops++ {
		if hops > n.maxRedirects {
			return tr, fmt.Errorf("%w: %s", ErrRedirectLoop, path)
		}
		route, ok := n.table.Lookup(target)
		if !ok {
			return tr, fmt.Errorf("%w: %s", ErrUnknownRoute, target)
		}
		if route.RedirectTo != "" {
			target = route.RedirectTo
			continue
		}

		d := n.guard.Evaluate(ctx, route)
		if err := ctx.Err(); err != nil {
			return tr, err
		}
		tr.Decisions = append(tr.Decisions, d)
		if d.Allowed() {
			tr.To = route.Path
			return tr, nil
		}
		n.log.Debug("guard redirect",
			zap.String("route", route.Path),
			zap.String("target", d.Target),
			zap.String("reason", string(d.Reason)),
		)
		target = d.Target
	}
}

// Navigate evaluates path through the guard, following redirects, and
// commits the route that was finally allowed. Each call is independent; when
// two overlap, the one finishing last wins. Nothing is committed on error.
func (n *Navigator) Navigate(ctx context.Context, path string) (Transition, error) {
	n.mu.Lock()
	epoch := n.epoch
	n.mu.Unlock()

	tr, err := n.Resolve(ctx, path)
	if err != nil {
		n.log.Info("navigation failed", zap.String("path", path), zap.Error(err))
		return tr, err
	}

	n.mu.Lock()
	if n.epoch != epoch {
		current := n.current
		n.mu.Unlock()
		tr.From, tr.To = current, current
		return tr, ErrSuperseded
	}
	tr.From = n.current
	tr.Changed = n.commitLocked(tr.To)
	n.mu.Unlock()

	if tr.Changed {
		n.publish(tr)
	}
	return tr, nil
}

// ForceRedirect moves to path without consulting the guard and cancels the
// commit of any navigation still being evaluated. It reports false when path
// was already current, in which case nothing happens.
func (n *Navigator) ForceRedirect(path string) bool {
	path = Normalize(path)

	n.mu.Lock()
	n.epoch++
	tr := Transition{From: n.current, To: path, Requested: path, Forced: true, At: time.Now()}
	tr.Changed = n.commitLocked(path)
	n.mu.Unlock()

	if tr.Changed {
		n.log.Info("forced redirect", zap.String("from", tr.From), zap.String("to", path))
		n.publish(tr)
	}
	return tr.Changed
}

func (n *Navigator) commitLocked(path string) bool {
	if path == n.current {
		return false
	}
	if n.current != "" {
		n.history = append(n.history, n.current)
		if len(n.history) > historyLimit {
			n.history = n.history[len(n.history)-historyLimit:]
		}
	}
	n.current = path
	return true
}

func (n *Navigator) publish(tr Transition) {
	n.subMu.Lock()
	subs := append([]func(Transition){}, n.subs...)
	n.subMu.Unlock()
	for _, fn := range subs {
		fn(tr)
	}
}
