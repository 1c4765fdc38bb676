// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "vaulthub:credential:"

// RedisStore keeps the token under one redis key. Useful on headless hosts
// where several client processes share a login.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore returns a store using client and the given slot name.
func NewRedisStore(client *redis.Client, slot string) *RedisStore {
	if slot == "" {
		slot = DefaultSlot
	}
	return &RedisStore{client: client, key: redisKeyPrefix + slot}
}

func (r *RedisStore) Get(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get token: %w", err)
	}
	return normalize(val), nil
}

func (r *RedisStore) Set(ctx context.Context, token string) error {
	token = normalize(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := r.client.Set(ctx, r.key, token, 0).Err(); err != nil {
		return fmt.Errorf("redis set token: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis clear token: %w", err)
	}
	return nil
}

// Close releases the redis connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
