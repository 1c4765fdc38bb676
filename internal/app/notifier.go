// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/vaulthub-tui/internal/notice"
	"github.com/jeranaias/vaulthub-tui/internal/storage"
)

// dedupeWindow collapses the "session expired" notices raised when several
// in-flight calls hit the same 401. Every other notice is shown once per
// failure.
const dedupeWindow = time.Second

// dispatcher is the notifier handed to the client and guard. The
// presentation layer attaches its own notifier after startup.
type dispatcher struct {
	mu     sync.Mutex
	target notice.Notifier
	last   map[notice.Key]time.Time
	now    func() time.Time
}

func newDispatcher(target notice.Notifier) *dispatcher {
	if target == nil {
		target = notice.Discard
	}
	return &dispatcher{target: target, last: make(map[notice.Key]time.Time), now: time.Now}
}

func (d *dispatcher) set(target notice.Notifier) {
	if target == nil {
		target = notice.Discard
	}
	d.mu.Lock()
	d.target = target
	d.mu.Unlock()
}

func (d *dispatcher) Notify(n notice.Notice) {
	d.mu.Lock()
	if collapsible(n) {
		now := d.now()
		for k, at := range d.last {
			if now.Sub(at) >= dedupeWindow {
				delete(d.last, k)
			}
		}
		if _, ok := d.last[n.Key]; ok {
			d.mu.Unlock()
			return
		}
		d.last[n.Key] = now
	}
	target := d.target
	d.mu.Unlock()

	target.Notify(n)
}

func collapsible(n notice.Notice) bool {
	return n.Key == notice.KeySessionExpired
}

// journalNotifier records every notice in the journal.
type journalNotifier struct {
	journal *storage.Journal
	loc     *notice.Localizer
	log     *zap.Logger
}

func (j journalNotifier) Notify(n notice.Notice) {
	// Notify must not block on disk for long.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := j.journal.Record(ctx, storage.Event{
		Kind:    storage.KindNotice,
		Level:   n.Level.String(),
		Reason:  string(n.Key),
		Message: n.Message(j.loc),
	})
	if err != nil {
		j.log.Debug("notice not journaled", zap.Error(err))
	}
}
