// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

/*
Package journal keeps a local record of the calls handled by the softphone.

Architecture:

  - entry.go: the [Entry] model and the [Store] contract.
  - recorder.go: [Recorder], which turns softphone status changes into entries.
  - store_sqlite.go: the default single-user store (modernc.org/sqlite).
  - store_postgres.go: a shared store for workstations (pgx + migrations).

The journal is best effort: a failed write is logged and never interrupts a
call.
*/
package journal

import (
	"context"
	"time"

	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
)

// EntryStatus is the outcome of a journaled call.
type EntryStatus string

const (
	EntryRinging    EntryStatus = "ringing"
	EntryInProgress EntryStatus = "in-progress"
	EntryCompleted  EntryStatus = "completed"
	EntryNoAnswer   EntryStatus = "no-answer"
	EntryFailed     EntryStatus = "failed"
)

// Entry is one journaled call.
type Entry struct {
	ID         string              `json:"id"`
	CallID     string              `json:"call_id"`
	Direction  softphone.Direction `json:"direction"`
	Number     string              `json:"number"`
	Status     EntryStatus         `json:"status"`
	StartedAt  time.Time           `json:"started_at"`
	AnsweredAt *time.Time          `json:"answered_at,omitempty"`
	EndedAt    *time.Time          `json:"ended_at,omitempty"`

	// Duration is the talk time in whole seconds.
	Duration int `json:"duration"`
}

// Finished reports whether the entry reached a final status.
func (entry Entry) Finished() bool {
	return entry.EndedAt != nil
}

// Store persists journal entries.
type Store interface {
	// Save inserts entry, or replaces the stored entry with the same ID.
	Save(ctx context.Context, entry Entry) error

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
}
