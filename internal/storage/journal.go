// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed       = errors.New("journal closed")
	ErrInvalidEvent = errors.New("invalid journal event")
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// Kind classifies a journal event.
type Kind string

const (
	KindNavigation   Kind = "navigation"
	KindForcedLogout Kind = "forced_logout"
	KindLogin        Kind = "login"
	KindLogout       Kind = "logout"
	KindNotice       Kind = "notice"
)

// Event is one journal entry. Fields that do not apply to a kind are left
// empty.
type Event struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	At       time.Time `json:"at"`
	Route    string    `json:"route,omitempty"`
	Target   string    `json:"target,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Level    string    `json:"level,omitempty"`
	Message  string    `json:"message,omitempty"`
	Username string    `json:"username,omitempty"`
}

// Query filters Recent.
type Query struct {
	Limit int
	Kind  Kind
	Since time.Time
}

// =============================================================================
// JOURNAL
// =============================================================================

const (
	DefaultMaxEntries = 1000
	DefaultLimit      = 50
)

// Options configures Open.
type Options struct {
	// Path of the SQLite database file. ":memory:" keeps it in memory.
	Path string

	// MaxEntries bounds the journal; older events are pruned on insert.
	// Zero means DefaultMaxEntries.
	MaxEntries int
}

// Journal is an append-only event log backed by SQLite. It is safe for
// concurrent use.
type Journal struct {
	db         *sql.DB
	maxEntries int
	now        func() time.Time

	mu     sync.RWMutex
	closed bool
}

// Open opens or creates the journal database.
func Open(opts Options) (*Journal, error) {
	if opts.Path == "" {
		return nil, errors.New("journal path cannot be empty")
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}

	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize metadata: %w", err)
	}

	return &Journal{db: db, maxEntries: opts.MaxEntries, now: time.Now}, nil
}

// Record appends e, filling in ID and At when empty, and prunes the journal
// to its size bound. It returns the stored event.
func (j *Journal) Record(ctx context.Context, e Event) (Event, error) {
	if strings.TrimSpace(string(e.Kind)) == "" {
		return e, fmt.Errorf("%w: kind is required", ErrInvalidEvent)
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = j.now()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return e, ErrClosed
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return e, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO events (id, kind, at, route, target, reason, level, message, username)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Kind), e.At.UnixNano(), e.Route, e.Target, e.Reason, e.Level, e.Message, e.Username,
	)
	if err != nil {
		return e, fmt.Errorf("insert event: %w", err)
	}
	if _, err := pruneTx(ctx, tx, j.maxEntries); err != nil {
		return e, err
	}
	if err := tx.Commit(); err != nil {
		return e, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

// Recent returns events newest first.
func (j *Journal) Recent(ctx context.Context, q Query) ([]Event, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}

	var (
		where []string
		args  []any
	)
	if q.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if !q.Since.IsZero() {
		where = append(where, "at >= ?")
		args = append(args, q.Since.UnixNano())
	}
	query := "SELECT id, kind, at, route, target, reason, level, message, username FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, q.Limit)

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e    Event
			kind string
			at   int64
		)
		if err := rows.Scan(&e.ID, &kind, &at, &e.Route, &e.Target, &e.Reason, &e.Level, &e.Message, &e.Username); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = Kind(kind)
		e.At = time.Unix(0, at)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the number of stored events.
func (j *Journal) Count(ctx context.Context) (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrClosed
	}
	var n int
	if err := j.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Prune keeps the newest keep events and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrClosed
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	n, err := pruneTx(ctx, tx, keep)
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// Clear removes every event.
func (j *Journal) Clear(ctx context.Context) error {
	_, err := j.Prune(ctx, 0)
	return err
}

// Close closes the database. Further calls return ErrClosed.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func pruneTx(ctx context.Context, tx *sql.Tx, keep int) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM events WHERE seq NOT IN (SELECT seq FROM events ORDER BY seq DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
