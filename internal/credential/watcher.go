// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// =============================================================================
// TOKEN FILE WATCHER
// =============================================================================

// Watcher reports changes made to a FileStore by other processes, such as a
// `vaulthub logout` in another terminal.
//
// The parent directory is watched rather than the file: atomic writes replace
// the inode, which would silently end a watch on the file itself.
type Watcher struct {
	store    *FileStore
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher prepares a watcher for store. Changes settling within debounce
// are coalesced into one callback.
func NewWatcher(store *FileStore, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	dir := filepath.Dir(store.Path())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{
		store:    store,
		watcher:  fw,
		debounce: debounce,
		log:      log,
	}, nil
}

// Start delivers the slot's value to onChange each time a burst of changes
// settles. The value may equal one seen before, since writes made by this
// process are not tracked; onChange must tolerate repeats.
func (w *Watcher) Start(ctx context.Context, onChange func(token string)) error {
	if _, err := w.store.Get(ctx); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)

	w.mu.Lock()
	w.cancel = cancel
	w.done = make(chan struct{})
	w.mu.Unlock()

	go w.processEvents(ctx, onChange)
	return nil
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	if cancel != nil {
		cancel()
		<-done
	}
	return err
}

func (w *Watcher) processEvents(ctx context.Context, onChange func(string)) {
	defer close(w.done)
	target := filepath.Clean(w.store.Path())

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(ctx, onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("token watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		token, err := w.store.Get(ctx)
		if err != nil {
			w.log.Warn("token watcher read failed", zap.Error(err))
			return
		}
		onChange(token)
	})
}
