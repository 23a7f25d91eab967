// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
	"github.com/FarisAlahmad714/Buttdialer/pkg/uuidv7"
)

// Recorder writes one [Entry] per call from the softphone status stream.
//
// A call is opened on connecting or incoming, marked answered on connected
// and closed on ready, error or disconnected.
type Recorder struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current *Entry
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (recorder *Recorder) WithClock(now func() time.Time) *Recorder {
	recorder.now = now
	return recorder
}

// Observe has the [softphone.StatusFunc] signature.
func (recorder *Recorder) Observe(status softphone.Status, call softphone.Call) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()

	// Writes stay under the lock so snapshots of one entry land in order.
	if entry, ok := recorder.apply(status, call); ok {
		recorder.save(entry)
	}
}

// apply updates the open entry and returns the snapshot to persist.
func (recorder *Recorder) apply(status softphone.Status, call softphone.Call) (Entry, bool) {
	now := recorder.now().UTC()

	switch status {
	case softphone.StatusConnecting, softphone.StatusIncoming:
		if call == nil {
			return Entry{}, false
		}
		if recorder.current != nil && recorder.current.CallID == call.ID() {
			return Entry{}, false
		}
		recorder.current = &Entry{
			ID:        uuidv7.New(),
			CallID:    call.ID(),
			Direction: call.Direction(),
			Number:    call.Remote(),
			Status:    EntryRinging,
			StartedAt: now,
		}
		return *recorder.current, true

	case softphone.StatusConnected:
		if recorder.current == nil || recorder.current.AnsweredAt != nil {
			return Entry{}, false
		}
		recorder.current.AnsweredAt = &now
		recorder.current.Status = EntryInProgress
		return *recorder.current, true

	case softphone.StatusReady, softphone.StatusError, softphone.StatusDisconnected:
		if recorder.current == nil {
			return Entry{}, false
		}
		entry := *recorder.current
		recorder.current = nil

		entry.EndedAt = &now
		switch {
		case entry.AnsweredAt != nil:
			entry.Status = EntryCompleted
			entry.Duration = int(now.Sub(*entry.AnsweredAt) / time.Second)
		case status == softphone.StatusError:
			entry.Status = EntryFailed
		default:
			entry.Status = EntryNoAnswer
		}
		return entry, true
	}
	return Entry{}, false
}

func (recorder *Recorder) save(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.JournalWriteTimeout)
	defer cancel()

	if err := recorder.store.Save(ctx, entry); err != nil {
		recorder.logger.Warn("journal_save_failed",
			slog.String("entry_id", entry.ID),
			slog.Any("error", err),
		)
		return
	}
	recorder.logger.Debug("journal_entry_saved",
		slog.String("entry_id", entry.ID),
		slog.String("status", string(entry.Status)),
	)
}
