// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package credential holds the bearer token for the vaulthub client.
//
// A Store is a single named slot. The token is opaque: it is written on login,
// read on startup and before every request, and cleared on logout or when the
// service declares it invalid. Stores do no locking beyond keeping their own
// state consistent; concurrent writers are last-write-wins.
package credential

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// STORE INTERFACE
// =============================================================================

// Store is the durable slot holding the current bearer token.
type Store interface {
	// Get returns the stored token, or "" when the slot is empty.
	Get(ctx context.Context) (string, error)
	// Set replaces the stored token.
	Set(ctx context.Context, token string) error
	// Clear empties the slot. Clearing an empty slot is a no-op.
	Clear(ctx context.Context) error
}

// ErrEmptyToken is returned by Set when asked to store an empty token.
var ErrEmptyToken = errors.New("credential: empty token")

// DefaultSlot is the slot name used when none is configured.
const DefaultSlot = "vaulthub_token"

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Slot names the entry. Used as the redis key suffix.
	Slot string
	// Path is the token file for the file backend.
	Path string

	RedisAddr     string
	RedisDB       int
	RedisPassword string
}

// Open builds the Store described by opts.
func Open(opts Options) (Store, error) {
	slot := opts.Slot
	if slot == "" {
		slot = DefaultSlot
	}

	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		if opts.Path == "" {
			return nil, fmt.Errorf("credential: file backend needs a path")
		}
		return NewFileStore(opts.Path), nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("credential: redis backend needs an address")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			DB:       opts.RedisDB,
			Password: opts.RedisPassword,
		})
		return NewRedisStore(client, slot), nil
	default:
		return nil, fmt.Errorf("credential: unknown backend %q", opts.Backend)
	}
}

func normalize(token string) string {
	return strings.TrimSpace(token)
}
