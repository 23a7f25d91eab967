// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package journal

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/migration"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/postgres"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore is a [Store] backed by a shared PostgreSQL database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing pool. The schema must already exist.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// OpenPostgres migrates the journal schema and connects a pool.
//
// # Parameters
//   - dsn: A postgres:// URL.
//   - migrationPath: A directory of .sql migrations, or empty for the
//     embedded ones.
func OpenPostgres(ctx context.Context, dsn, migrationPath string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var err error
	if migrationPath != "" {
		err = migration.RunUp(dsn, migrationPath, logger)
	} else {
		err = migration.RunEmbedded(dsn, migrations, "migrations", logger)
	}
	if err != nil {
		return nil, fmt.Errorf("journal_postgres_migrate_failed: %w", err)
	}

	pool, err := postgres.NewPool(ctx, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("journal_postgres_open_failed: %w", err)
	}
	return NewPostgresStore(pool), nil
}

// Save implements [Store].
func (storage *PostgresStore) Save(ctx context.Context, entry Entry) error {
	const query = `
		INSERT INTO call_journal (
			id, call_id, direction, number, status, started_at, answered_at, ended_at, duration
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status      = EXCLUDED.status,
			answered_at = EXCLUDED.answered_at,
			ended_at    = EXCLUDED.ended_at,
			duration    = EXCLUDED.duration`

	_, err := storage.pool.Exec(ctx, query,
		entry.ID,
		entry.CallID,
		string(entry.Direction),
		entry.Number,
		string(entry.Status),
		entry.StartedAt,
		entry.AnsweredAt,
		entry.EndedAt,
		entry.Duration,
	)
	if err != nil {
		return fmt.Errorf("journal_postgres_save_failed: %w", err)
	}
	return nil
}

// Recent implements [Store].
func (storage *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	const query = `
		SELECT id, call_id, direction, number, status, started_at, answered_at, ended_at, duration
		FROM call_journal
		ORDER BY started_at DESC, id DESC
		LIMIT $1`

	if limit <= 0 {
		limit = constants.RecentCallsLimit
	}

	rows, err := storage.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("journal_postgres_recent_failed: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var entry Entry
		err := row.Scan(
			&entry.ID,
			&entry.CallID,
			&entry.Direction,
			&entry.Number,
			&entry.Status,
			&entry.StartedAt,
			&entry.AnsweredAt,
			&entry.EndedAt,
			&entry.Duration,
		)
		return entry, err
	})
	if err != nil {
		return nil, fmt.Errorf("journal_postgres_scan_failed: %w", err)
	}
	return entries, nil
}

// Close releases the pool.
func (storage *PostgresStore) Close() error {
	storage.pool.Close()
	return nil
}
