// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatcher_ReportsExternalChanges(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "token"))
	require.NoError(t, store.Set(ctx, "initial"))

	w, err := NewWatcher(store, 20*time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	changes := make(chan string, 8)
	require.NoError(t, w.Start(ctx, func(tok string) { changes <- tok }))

	other := NewFileStore(store.Path())
	require.NoError(t, other.Clear(ctx))

	select {
	case tok := <-changes:
		require.Empty(t, tok)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported after clear")
	}

	require.NoError(t, other.Set(ctx, "fresh"))
	select {
	case tok := <-changes:
		require.Equal(t, "fresh", tok)
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported after set")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "token"))

	w, err := NewWatcher(store, 10*time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	changes := make(chan string, 1)
	require.NoError(t, w.Start(ctx, func(tok string) { changes <- tok }))

	require.NoError(t, NewFileStore(filepath.Join(dir, "other")).Set(ctx, "x"))

	select {
	case tok := <-changes:
		t.Fatalf("unexpected change %q", tok)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_DeliversValueEqualToStart(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "token"))

	w, err := NewWatcher(store, 100*time.Millisecond, nil)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	changes := make(chan string, 8)
	require.NoError(t, w.Start(ctx, func(tok string) { changes <- tok }))

	// A write and a removal inside one debounce window end where they
	// started; the settled value is still reported.
	require.NoError(t, store.Set(ctx, "short-lived"))
	other := NewFileStore(store.Path())
	require.NoError(t, other.Clear(ctx))

	select {
	case tok := <-changes:
		require.Empty(t, tok)
	case <-time.After(3 * time.Second):
		t.Fatal("settled value not reported")
	}
}
