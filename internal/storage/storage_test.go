// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package storage_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisstore "github.com/FarisAlahmad714/Buttdialer/internal/platform/redis"
	"github.com/FarisAlahmad714/Buttdialer/internal/storage"
	"github.com/FarisAlahmad714/Buttdialer/pkg/uuidv7"
)

// newRedisClient connects to STORAGE_TEST_REDIS_URL, or returns nil when it
// is not set.
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("STORAGE_TEST_REDIS_URL")
	if url == "" {
		return nil
	}
	client, err := redisstore.NewClient(context.Background(), url, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// testPrefix returns a key prefix no other test run shares.
func testPrefix() string {
	return "dialer-test:" + uuidv7.New() + ":"
}

// newBackends returns every Storage implementation under test. Redis joins
// when STORAGE_TEST_REDIS_URL is set.
func newBackends(t *testing.T) map[string]storage.Storage {
	t.Helper()

	fileStorage, err := storage.NewFileStorage(t.TempDir(), nil)
	require.NoError(t, err)

	backends := map[string]storage.Storage{
		"memory": storage.NewMemoryStorage(),
		"file":   fileStorage,
	}
	if client := newRedisClient(t); client != nil {
		redisStorage := storage.NewRedisStorage(client, testPrefix())
		t.Cleanup(func() { _ = redisStorage.Clear(context.Background()) })
		backends["redis"] = redisStorage
	}
	return backends
}

/*
TestStorage_Contract exercises Get/Set/Delete/Clear on every backend.
*/
func TestStorage_Contract(t *testing.T) {
	ctx := context.Background()

	for name, backend := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			// 1. Absent key
			_, err := backend.Get(ctx, "auth-storage")
			assert.ErrorIs(t, err, storage.ErrNotFound)

			// 2. Set and overwrite
			require.NoError(t, backend.Set(ctx, "auth-storage", []byte(`{"v":1}`)))
			require.NoError(t, backend.Set(ctx, "auth-storage", []byte(`{"v":2}`)))
			value, err := backend.Get(ctx, "auth-storage")
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":2}`, string(value))

			// 3. Delete is idempotent
			require.NoError(t, backend.Delete(ctx, "auth-storage"))
			require.NoError(t, backend.Delete(ctx, "auth-storage"))
			_, err = backend.Get(ctx, "auth-storage")
			assert.ErrorIs(t, err, storage.ErrNotFound)

			// 4. Clear removes every key
			require.NoError(t, backend.Set(ctx, "a", []byte(`1`)))
			require.NoError(t, backend.Set(ctx, "b", []byte(`2`)))
			require.NoError(t, backend.Clear(ctx))
			_, err = backend.Get(ctx, "a")
			assert.ErrorIs(t, err, storage.ErrNotFound)
			_, err = backend.Get(ctx, "b")
			assert.ErrorIs(t, err, storage.ErrNotFound)
		})
	}
}

/*
TestFileStorage_ClearKeepsForeignFiles verifies that Clear leaves non-key files alone.
*/
func TestFileStorage_ClearKeepsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	fileStorage, err := storage.NewFileStorage(dir, nil)
	require.NoError(t, err)

	journal := filepath.Join(dir, "journal.db")
	require.NoError(t, os.WriteFile(journal, []byte("sqlite"), 0o600))
	require.NoError(t, fileStorage.Set(context.Background(), "auth-storage", []byte(`{}`)))

	require.NoError(t, fileStorage.Clear(context.Background()))

	assert.FileExists(t, journal)
	assert.NoFileExists(t, fileStorage.Path("auth-storage"))
}

/*
TestRedisStorage_ClearKeepsForeignKeys verifies that Clear only deletes keys
under its own prefix.
*/
func TestRedisStorage_ClearKeepsForeignKeys(t *testing.T) {
	client := newRedisClient(t)
	if client == nil {
		t.Skip("STORAGE_TEST_REDIS_URL not set")
	}
	ctx := context.Background()

	prefix := testPrefix()
	neighbour := prefix[:len(prefix)-1] + "-other:auth-storage"
	foreign := "other-app:" + uuidv7.New()
	t.Cleanup(func() { client.Del(ctx, neighbour, foreign) })
	require.NoError(t, client.Set(ctx, neighbour, "keep", 0).Err())
	require.NoError(t, client.Set(ctx, foreign, "keep", 0).Err())

	redisStorage := storage.NewRedisStorage(client, prefix)
	require.NoError(t, redisStorage.Set(ctx, "auth-storage", []byte(`{}`)))
	require.NoError(t, redisStorage.Set(ctx, "journal-cursor", []byte(`1`)))

	require.NoError(t, redisStorage.Clear(ctx))

	_, err := redisStorage.Get(ctx, "auth-storage")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = redisStorage.Get(ctx, "journal-cursor")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, "keep", client.Get(ctx, neighbour).Val())
	assert.Equal(t, "keep", client.Get(ctx, foreign).Val())
}

/*
TestFileStorage_Watch verifies that external rewrites are reported.
*/
func TestFileStorage_Watch(t *testing.T) {
	dir := t.TempDir()
	fileStorage, err := storage.NewFileStorage(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	require.NoError(t, fileStorage.Watch(ctx, "auth-storage", func() { changes.Add(1) }))

	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{}`), 0o600))

	// Another process rewrites the session.
	require.NoError(t, os.WriteFile(fileStorage.Path("auth-storage"), []byte(`{}`), 0o600))

	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 20*time.Millisecond)
}
