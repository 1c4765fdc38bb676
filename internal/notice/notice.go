// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notice is the user-visible message channel of the vaulthub client.
//
// Producers (the transport client, the navigation guard, the idle tracker)
// fire a Notice and move on. A Notifier decides how it is shown: a toast in
// the TUI, a colored line on stderr in the CLI, a row in the local journal.
package notice

import (
	"sync"
)

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// String returns the lowercase level name.
func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is one user-visible message.
//
// Key selects a catalog entry. Text, when set, is shown verbatim instead;
// it carries messages authored by the remote service.
type Notice struct {
	Level Level
	Key   Key
	Args  []any
	Text  string
}

// Error builds an error-level notice from a catalog key.
func Error(key Key, args ...any) Notice {
	return Notice{Level: LevelError, Key: key, Args: args}
}

// Warning builds a warning-level notice from a catalog key.
func Warning(key Key, args ...any) Notice {
	return Notice{Level: LevelWarning, Key: key, Args: args}
}

// Success builds a success-level notice from a catalog key.
func Success(key Key, args ...any) Notice {
	return Notice{Level: LevelSuccess, Key: key, Args: args}
}

// Remote builds an error notice carrying a server message. An empty message
// falls back to the generic request failure text.
func Remote(text string) Notice {
	if text == "" {
		return Error(KeyRequestFailed)
	}
	return Notice{Level: LevelError, Key: KeyRequestFailed, Text: text}
}

// Message renders n with the given localizer.
func (n Notice) Message(loc *Localizer) string {
	if n.Text != "" {
		return n.Text
	}
	if loc == nil {
		loc = DefaultLocalizer()
	}
	return loc.Sprintf(n.Key, n.Args...)
}

// =============================================================================
// NOTIFIERS
// =============================================================================

// Notifier receives notices. Notify must not block.
type Notifier interface {
	Notify(Notice)
}

// Func adapts a function to Notifier.
type Func func(Notice)

// Notify calls f.
func (f Func) Notify(n Notice) { f(n) }

// Discard drops every notice.
var Discard Notifier = Func(func(Notice) {})

// Fanout delivers each notice to every non-nil notifier in order.
func Fanout(notifiers ...Notifier) Notifier {
	var out []Notifier
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return Func(func(n Notice) {
		for _, target := range out {
			target.Notify(n)
		}
	})
}

// Recorder keeps every notice it receives. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

// Notify records n.
func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Keys returns the catalog keys of the recorded notices.
func (r *Recorder) Keys() []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]Key, len(r.notices))
	for i, n := range r.notices {
		keys[i] = n.Key
	}
	return keys
}

// Reset forgets recorded notices.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.notices = nil
	r.mu.Unlock()
}
