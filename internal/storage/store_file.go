// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
)

// fileSuffix is appended to every key to form its file name.
const fileSuffix = ".json"

// FileStorage implements [Storage] with one JSON file per key.
//
// # Atomicity
//
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so a crash never leaves a half-written session behind.
type FileStorage struct {
	dir    string
	logger *slog.Logger
}

// NewFileStorage creates a [FileStorage] rooted at dir, creating it if needed.
func NewFileStorage(dir string, logger *slog.Logger) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: failed to create state dir %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStorage{dir: dir, logger: logger}, nil
}

// Path returns the file that backs key.
func (storage *FileStorage) Path(key string) string {
	return filepath.Join(storage.dir, key+fileSuffix)
}

// Get implements [Storage].
func (storage *FileStorage) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(storage.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage_file_get_failed: %w", err)
	}
	return data, nil
}

// Set implements [Storage].
func (storage *FileStorage) Set(_ context.Context, key string, value []byte) error {
	temp, err := os.CreateTemp(storage.dir, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("storage_file_set_failed: %w", err)
	}
	tempPath := temp.Name()

	// Remove the temp file on any failure path.
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tempPath)
		}
	}()

	if _, err := temp.Write(value); err != nil {
		_ = temp.Close()
		return fmt.Errorf("storage_file_set_failed: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("storage_file_set_failed: %w", err)
	}
	if err := os.Rename(tempPath, storage.Path(key)); err != nil {
		return fmt.Errorf("storage_file_set_failed: %w", err)
	}

	committed = true
	return nil
}

// Delete implements [Storage].
func (storage *FileStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(storage.Path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage_file_delete_failed: %w", err)
	}
	return nil
}

// Clear implements [Storage]. Only key files are removed; other files in the
// state directory (such as the call journal database) are left alone.
func (storage *FileStorage) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(storage.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("storage_file_clear_failed: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileSuffix) || strings.HasPrefix(name, ".") {
			continue
		}
		if err := storage.Delete(ctx, strings.TrimSuffix(name, fileSuffix)); err != nil {
			return err
		}
	}
	return nil
}

// # Change Notification

// Watch implements [Watcher].
//
// The directory is watched rather than the file because atomic writes
// replace the file's inode. Bursts of events are debounced.
func (storage *FileStorage) Watch(ctx context.Context, key string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("storage_file_watch_failed: %w", err)
	}

	if err := watcher.Add(storage.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("storage_file_watch_failed: %w", err)
	}

	target := filepath.Base(storage.Path(key))

	go func() {
		defer watcher.Close()

		var debounceTimer *time.Timer
		defer func() {
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(constants.WatchDebounce, onChange)

			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Log error but continue watching
				storage.logger.Warn("storage_watch_error", slog.Any("error", werr))
			}
		}
	}()

	return nil
}
