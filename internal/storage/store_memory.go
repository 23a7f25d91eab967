// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package storage

import (
	"context"
	"sync"
)

// MemoryStorage implements [Storage] with an in-process map.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorage creates an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

// Get implements [Storage].
func (storage *MemoryStorage) Get(_ context.Context, key string) ([]byte, error) {
	storage.mu.RLock()
	defer storage.mu.RUnlock()

	value, ok := storage.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set implements [Storage].
func (storage *MemoryStorage) Set(_ context.Context, key string, value []byte) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()

	storage.values[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements [Storage].
func (storage *MemoryStorage) Delete(_ context.Context, key string) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()

	delete(storage.values, key)
	return nil
}

// Clear implements [Storage].
func (storage *MemoryStorage) Clear(_ context.Context) error {
	storage.mu.Lock()
	defer storage.mu.Unlock()

	storage.values = make(map[string][]byte)
	return nil
}

// Len reports the number of stored keys.
func (storage *MemoryStorage) Len() int {
	storage.mu.RLock()
	defer storage.mu.RUnlock()
	return len(storage.values)
}
