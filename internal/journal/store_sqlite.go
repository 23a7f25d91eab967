// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the pure-Go "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS call_journal (
		id          TEXT PRIMARY KEY,
		call_id     TEXT NOT NULL,
		direction   TEXT NOT NULL,
		number      TEXT NOT NULL,
		status      TEXT NOT NULL,
		started_at  INTEGER NOT NULL,
		answered_at INTEGER,
		ended_at    INTEGER,
		duration    INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS call_journal_started_at ON call_journal (started_at DESC);`

// SQLiteStore is a [Store] in a local SQLite file. Timestamps are stored as
// Unix milliseconds.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the journal database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("journal_sqlite_open_failed: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal_sqlite_open_failed: %w", err)
	}

	// One writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal_sqlite_schema_failed: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save implements [Store].
func (storage *SQLiteStore) Save(ctx context.Context, entry Entry) error {
	const query = `
		INSERT INTO call_journal (
			id, call_id, direction, number, status, started_at, answered_at, ended_at, duration
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status      = excluded.status,
			answered_at = excluded.answered_at,
			ended_at    = excluded.ended_at,
			duration    = excluded.duration`

	_, err := storage.db.ExecContext(ctx, query,
		entry.ID,
		entry.CallID,
		string(entry.Direction),
		entry.Number,
		string(entry.Status),
		entry.StartedAt.UnixMilli(),
		toMillis(entry.AnsweredAt),
		toMillis(entry.EndedAt),
		entry.Duration,
	)
	if err != nil {
		return fmt.Errorf("journal_sqlite_save_failed: %w", err)
	}
	return nil
}

// Recent implements [Store].
func (storage *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const query = `
		SELECT id, call_id, direction, number, status, started_at, answered_at, ended_at, duration
		FROM call_journal
		ORDER BY started_at DESC, id DESC
		LIMIT ?`

	if limit <= 0 {
		limit = constants.RecentCallsLimit
	}

	rows, err := storage.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("journal_sqlite_recent_failed: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			entry               Entry
			direction, status   string
			startedAt           int64
			answeredAt, endedAt sql.NullInt64
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.CallID,
			&direction,
			&entry.Number,
			&status,
			&startedAt,
			&answeredAt,
			&endedAt,
			&entry.Duration,
		); err != nil {
			return nil, fmt.Errorf("journal_sqlite_scan_failed: %w", err)
		}
		entry.Direction = softphone.Direction(direction)
		entry.Status = EntryStatus(status)
		entry.StartedAt = time.UnixMilli(startedAt).UTC()
		entry.AnsweredAt = fromMillis(answeredAt)
		entry.EndedAt = fromMillis(endedAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal_sqlite_recent_failed: %w", err)
	}
	return entries, nil
}

// Close releases the database handle.
func (storage *SQLiteStore) Close() error {
	return storage.db.Close()
}

func toMillis(instant *time.Time) sql.NullInt64 {
	if instant == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: instant.UnixMilli(), Valid: true}
}

func fromMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	instant := time.UnixMilli(value.Int64).UTC()
	return &instant
}
