// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestTracker(timeout, warn time.Duration) (*IdleTracker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
	tr := NewIdleTracker(timeout, warn)
	tr.now = clock.now
	tr.lastActivity = clock.t
	return tr, clock
}

func TestIdleTracker_WarningThenTimeout(t *testing.T) {
	tr, clock := newTestTracker(10*time.Minute, 2*time.Minute)

	clock.t = clock.t.Add(7 * time.Minute)
	assert.Nil(t, tr.Check())

	clock.t = clock.t.Add(90 * time.Second)
	msg := tr.Check()
	warn, ok := msg.(IdleWarningMsg)
	assert.True(t, ok, "expected warning, got %#v", msg)
	assert.Equal(t, 90*time.Second, warn.Remaining)
	assert.Nil(t, tr.Check(), "warning fires once")

	clock.t = clock.t.Add(2 * time.Minute)
	_, ok = tr.Check().(IdleTimeoutMsg)
	assert.True(t, ok)
	assert.Nil(t, tr.Check(), "timeout fires once")
	assert.Equal(t, time.Duration(0), tr.RemainingTime())
}

func TestIdleTracker_ActivityResets(t *testing.T) {
	tr, clock := newTestTracker(time.Minute, 10*time.Second)

	clock.t = clock.t.Add(55 * time.Second)
	_, ok := tr.Check().(IdleWarningMsg)
	assert.True(t, ok)

	tr.RecordActivity()
	assert.Equal(t, time.Minute, tr.RemainingTime())

	clock.t = clock.t.Add(55 * time.Second)
	_, ok = tr.Check().(IdleWarningMsg)
	assert.True(t, ok, "warning re-arms after activity")
}

func TestIdleTracker_Disabled(t *testing.T) {
	tr := NewIdleTracker(0, 0)
	assert.False(t, tr.Enabled())
	assert.Nil(t, tr.Check())
	assert.Nil(t, tr.TickCmd())
	assert.Nil(t, tr.HandleTick())

	var nilTracker *IdleTracker
	assert.False(t, nilTracker.Enabled())
}

func TestIdleTracker_WarningClamped(t *testing.T) {
	tr := NewIdleTracker(time.Minute, 5*time.Minute)
	assert.Equal(t, 15*time.Second, tr.warningBefore)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "3m", FormatDuration(3*time.Minute))
	assert.Equal(t, "3m 20s", FormatDuration(200*time.Second))
}
