// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint used when enumerating keys to clear.
const scanBatch = 100

// RedisStorage implements [Storage] using Redis.
//
// # Usage
//
// Used on shared agent workstations where the session must follow the agent
// between machines. Every key is namespaced under prefix so that [Clear]
// never touches data owned by other applications.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage creates a new Redis-backed [Storage].
func NewRedisStorage(client *redis.Client, prefix string) *RedisStorage {
	return &RedisStorage{client: client, prefix: prefix}
}

/*
Get retrieves the document stored under key.

Description: Returns ErrNotFound if the key is absent.
*/
func (storage *RedisStorage) Get(context context.Context, key string) ([]byte, error) {
	value, err := storage.client.Get(context, storage.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis_storage_get_failed: %w", err)
	}
	return value, nil
}

// Set stores value under key without expiry.
func (storage *RedisStorage) Set(context context.Context, key string, value []byte) error {
	if err := storage.client.Set(context, storage.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis_storage_set_failed: %w", err)
	}
	return nil
}

// Delete removes key from Redis.
func (storage *RedisStorage) Delete(context context.Context, key string) error {
	if err := storage.client.Del(context, storage.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis_storage_delete_failed: %w", err)
	}
	return nil
}

// Clear removes every key under the storage prefix.
func (storage *RedisStorage) Clear(context context.Context) error {
	var cursor uint64
	for {
		keys, next, err := storage.client.Scan(context, cursor, storage.prefix+"*", scanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis_storage_clear_failed: %w", err)
		}

		if len(keys) > 0 {
			if err := storage.client.Del(context, keys...).Err(); err != nil {
				return fmt.Errorf("redis_storage_clear_failed: %w", err)
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}
