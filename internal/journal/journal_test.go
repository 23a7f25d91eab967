// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package journal_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FarisAlahmad714/Buttdialer/internal/journal"
	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
	"github.com/FarisAlahmad714/Buttdialer/internal/softphone/softphonetest"
)

func openSQLite(t *testing.T) *journal.SQLiteStore {
	t.Helper()
	store, err := journal.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "state", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// clock advances by step on every read.
type clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *clock) read() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), step: 30 * time.Second}
}

/*
TestSQLiteStore_SaveAndRecent verifies upserts and newest-first ordering.
*/
func TestSQLiteStore_SaveAndRecent(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, number := range []string{"+15550000001", "+15550000002", "+15550000003"} {
		require.NoError(t, store.Save(ctx, journal.Entry{
			ID:        "entry-" + number,
			CallID:    "CA" + number,
			Direction: softphone.DirectionOutbound,
			Number:    number,
			Status:    journal.EntryRinging,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	answered, ended := base.Add(2*time.Minute+5*time.Second), base.Add(3*time.Minute)
	require.NoError(t, store.Save(ctx, journal.Entry{
		ID:         "entry-+15550000003",
		CallID:     "CA+15550000003",
		Direction:  softphone.DirectionOutbound,
		Number:     "+15550000003",
		Status:     journal.EntryCompleted,
		StartedAt:  base.Add(2 * time.Minute),
		AnsweredAt: &answered,
		EndedAt:    &ended,
		Duration:   55,
	}))

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "+15550000003", entries[0].Number)
	assert.Equal(t, journal.EntryCompleted, entries[0].Status)
	assert.Equal(t, 55, entries[0].Duration)
	require.NotNil(t, entries[0].AnsweredAt)
	assert.True(t, answered.Equal(*entries[0].AnsweredAt))
	assert.True(t, entries[0].Finished())

	assert.Equal(t, "+15550000002", entries[1].Number)
	assert.Nil(t, entries[1].EndedAt)
	assert.False(t, entries[1].Finished())

	all, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

/*
TestRecorder verifies the entries written for each way a call can end.
*/
func TestRecorder(t *testing.T) {
	tests := []struct {
		name      string
		direction softphone.Direction
		statuses  []softphone.Status
		want      journal.EntryStatus
		duration  int
	}{
		{"answered_outbound", softphone.DirectionOutbound, []softphone.Status{softphone.StatusConnecting, softphone.StatusConnected, softphone.StatusReady}, journal.EntryCompleted, 30},
		{"answered_inbound", softphone.DirectionInbound, []softphone.Status{softphone.StatusIncoming, softphone.StatusConnected, softphone.StatusDisconnected}, journal.EntryCompleted, 30},
		{"unanswered", softphone.DirectionOutbound, []softphone.Status{softphone.StatusConnecting, softphone.StatusReady}, journal.EntryNoAnswer, 0},
		{"missed", softphone.DirectionInbound, []softphone.Status{softphone.StatusIncoming, softphone.StatusReady}, journal.EntryNoAnswer, 0},
		{"failed", softphone.DirectionOutbound, []softphone.Status{softphone.StatusConnecting, softphone.StatusError}, journal.EntryFailed, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := openSQLite(t)
			recorder := journal.NewRecorder(store, nil).WithClock(newClock().read)
			call := softphonetest.NewCall(tt.direction, "+15551234567")

			for _, status := range tt.statuses {
				recorder.Observe(status, call)
			}

			entries, err := store.Recent(context.Background(), 10)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, tt.want, entries[0].Status)
			assert.Equal(t, tt.direction, entries[0].Direction)
			assert.Equal(t, call.ID(), entries[0].CallID)
			assert.Equal(t, tt.duration, entries[0].Duration)
			assert.True(t, entries[0].Finished())
		})
	}
}

/*
TestRecorder_IgnoresStatusesWithoutCall verifies that idle transitions write
nothing.
*/
func TestRecorder_IgnoresStatusesWithoutCall(t *testing.T) {
	store := openSQLite(t)
	recorder := journal.NewRecorder(store, nil)

	recorder.Observe(softphone.StatusReady, nil)
	recorder.Observe(softphone.StatusConnected, nil)
	recorder.Observe(softphone.StatusError, nil)
	recorder.Observe(softphone.StatusIncoming, nil)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type failingStore struct{ journal.Store }

func (failingStore) Save(context.Context, journal.Entry) error {
	return errors.New("disk full")
}

/*
TestRecorder_SaveFailure verifies that a failing store never panics and the
next call starts a fresh entry.
*/
func TestRecorder_SaveFailure(t *testing.T) {
	recorder := journal.NewRecorder(failingStore{}, nil)
	call := softphonetest.NewCall(softphone.DirectionOutbound, "+15551234567")

	assert.NotPanics(t, func() {
		recorder.Observe(softphone.StatusConnecting, call)
		recorder.Observe(softphone.StatusReady, call)
	})
}

/*
TestRecorder_WithAdapter verifies the recorder as the adapter's status
callback.
*/
func TestRecorder_WithAdapter(t *testing.T) {
	store := openSQLite(t)
	recorder := journal.NewRecorder(store, nil).WithClock(newClock().read)
	transport := &softphonetest.Transport{}
	adapter := softphone.NewAdapter(transport, func(context.Context) (string, error) { return "voice-token", nil }, nil, nil)

	require.NoError(t, adapter.Initialize(context.Background(), recorder.Observe))
	_, err := adapter.MakeCall(context.Background(), "+15551234567")
	require.NoError(t, err)

	fake := transport.LastDevice().Calls()[0]
	fake.Emit(softphone.CallEvent{Type: softphone.EventAccept})
	require.NoError(t, adapter.Hangup())

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, journal.EntryCompleted, entries[0].Status)
	assert.Equal(t, "+15551234567", entries[0].Number)
}

/*
TestPostgresStore runs against a real database when JOURNAL_TEST_DATABASE_URL
is set.
*/
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("JOURNAL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("JOURNAL_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := journal.OpenPostgres(ctx, dsn, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	recorder := journal.NewRecorder(store, nil)
	call := softphonetest.NewCall(softphone.DirectionInbound, "+15557654321")
	recorder.Observe(softphone.StatusIncoming, call)
	recorder.Observe(softphone.StatusReady, call)

	entries, err := store.Recent(ctx, 50)
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	var found bool
	for _, entry := range entries {
		if entry.CallID == call.ID() {
			found = true
			assert.Equal(t, journal.EntryNoAnswer, entry.Status)
			assert.Equal(t, softphone.DirectionInbound, entry.Direction)
		}
	}
	assert.True(t, found)
}
