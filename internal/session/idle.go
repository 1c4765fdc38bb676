// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strconv"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// IDLE TRACKER
// =============================================================================

// IdleTracker watches for user inactivity. A zero timeout disables it.
type IdleTracker struct {
	mu sync.Mutex

	lastActivity  time.Time
	timeout       time.Duration
	warningBefore time.Duration
	warningShown  bool
	fired         bool

	now func() time.Time
}

// NewIdleTracker returns a tracker that expires after timeout and warns
// warningBefore ahead of that.
func NewIdleTracker(timeout, warningBefore time.Duration) *IdleTracker {
	if warningBefore >= timeout {
		warningBefore = timeout / 4
	}
	t := &IdleTracker{
		timeout:       timeout,
		warningBefore: warningBefore,
		now:           time.Now,
	}
	t.lastActivity = t.now()
	return t
}

// Enabled reports whether a timeout is configured.
func (t *IdleTracker) Enabled() bool {
	return t != nil && t.timeout > 0
}

// Timeout returns the configured idle limit.
func (t *IdleTracker) Timeout() time.Duration { return t.timeout }

// RecordActivity resets the idle clock.
func (t *IdleTracker) RecordActivity() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastActivity = t.now()
	t.warningShown = false
	t.fired = false
}

// RemainingTime returns the time left before expiry.
func (t *IdleTracker) RemainingTime() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	remaining := t.timeout - t.now().Sub(t.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Check returns which idle event, if any, is due. Each event is reported
// once per idle period.
func (t *IdleTracker) Check() tea.Msg {
	if !t.Enabled() {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	idle := t.now().Sub(t.lastActivity)
	if idle >= t.timeout {
		if t.fired {
			return nil
		}
		t.fired = true
		return IdleTimeoutMsg{Idle: idle}
	}
	if !t.warningShown && idle >= t.timeout-t.warningBefore {
		t.warningShown = true
		return IdleWarningMsg{Remaining: t.timeout - idle}
	}
	return nil
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// IdleTickMsg is sent every second while the tracker is enabled.
type IdleTickMsg struct {
	Time time.Time
}

// IdleWarningMsg means the session will end soon.
type IdleWarningMsg struct {
	Remaining time.Duration
}

// IdleTimeoutMsg means the idle limit was reached.
type IdleTimeoutMsg struct {
	Idle time.Duration
}

// TickCmd schedules the next idle check. It returns nil when the tracker is
// disabled.
func (t *IdleTracker) TickCmd() tea.Cmd {
	if !t.Enabled() {
		return nil
	}
	return tea.Tick(time.Second, func(now time.Time) tea.Msg {
		return IdleTickMsg{Time: now}
	})
}

// HandleTick checks for due events and keeps ticking.
func (t *IdleTracker) HandleTick() tea.Cmd {
	if !t.Enabled() {
		return nil
	}
	if msg := t.Check(); msg != nil {
		return tea.Batch(func() tea.Msg { return msg }, t.TickCmd())
	}
	return t.TickCmd()
}

// FormatDuration renders d as "45s", "3m" or "3m 20s".
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
