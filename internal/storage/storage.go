// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

/*
Package storage provides the durable key-value store that holds client state
across process restarts.

It plays the role browser local storage plays for a web client: a flat set of
keys, each holding one JSON document, that can be wiped in one call when the
backend rejects the user's credential.

Implementations:

  - [FileStorage]: one file per key inside a state directory (default).
  - [RedisStorage]: one Redis key per storage key under a shared prefix.
  - [MemoryStorage]: process-local, for tests and ephemeral runs.
*/
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by [Storage.Get] when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Storage defines the persistence contract for client state.
type Storage interface {
	// Get returns the document stored under key.
	//
	// Returns [ErrNotFound] if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the document stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes every key owned by this storage.
	Clear(ctx context.Context) error
}

// Watcher is implemented by storages that can report changes made by other
// processes.
type Watcher interface {
	// Watch invokes onChange whenever key is rewritten or removed, until ctx
	// is cancelled.
	Watch(ctx context.Context, key string, onChange func()) error
}
