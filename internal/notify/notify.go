// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

/*
Package notify delivers transient, user-visible notifications.

Notifications are single-shot: they are shown once and never queued, persisted,
or retried. The API client raises them for failed responses, the session store
for login outcomes, and the softphone for device and call events.

Implementations:

  - [LogNotifier]: prints to the terminal and mirrors each message to slog.
  - [Recorder]: keeps every notification in memory for assertions in tests.
  - [Discard]: drops everything.
*/
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notifier raises transient messages for the user.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// # Terminal Notifier

// LogNotifier writes notifications to a terminal writer and to slog.
type LogNotifier struct {
	out    io.Writer
	logger *slog.Logger
	mu     sync.Mutex
}

// NewLogNotifier creates a [LogNotifier]. A nil out only logs.
func NewLogNotifier(out io.Writer, logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{out: out, logger: logger}
}

// Success implements [Notifier].
func (n *LogNotifier) Success(message string) { n.emit(LevelSuccess, message) }

// Error implements [Notifier].
func (n *LogNotifier) Error(message string) { n.emit(LevelError, message) }

// Info implements [Notifier].
func (n *LogNotifier) Info(message string) { n.emit(LevelInfo, message) }

func (n *LogNotifier) emit(level Level, message string) {
	logLevel := slog.LevelInfo
	if level == LevelError {
		logLevel = slog.LevelWarn
	}
	n.logger.Log(context.Background(), logLevel, "notification",
		slog.String("level", string(level)),
		slog.String("message", message),
	)

	if n.out == nil {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.out, "%s %s\n", badge(level), message)
}

// badge returns the terminal prefix for a level.
func badge(level Level) string {
	switch level {
	case LevelSuccess:
		return "[ok]"
	case LevelError:
		return "[error]"
	default:
		return "[info]"
	}
}

// # Test Recorder

// Notification is a single recorded message.
type Notification struct {
	Level   Level
	Message string
}

// Recorder stores notifications in memory. It is safe for concurrent use.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

// Success implements [Notifier].
func (r *Recorder) Success(message string) { r.add(LevelSuccess, message) }

// Error implements [Notifier].
func (r *Recorder) Error(message string) { r.add(LevelError, message) }

// Info implements [Notifier].
func (r *Recorder) Info(message string) { r.add(LevelInfo, message) }

// All returns a copy of every recorded notification in order.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Messages returns the recorded messages of the given level in order.
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, item := range r.items {
		if item.Level == level {
			out = append(out, item.Message)
		}
	}
	return out
}

func (r *Recorder) add(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Level: level, Message: message})
}

// # Discard

// Discard is a [Notifier] that drops every message.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Success(string) {}
func (discard) Error(string)   {}
func (discard) Info(string)    {}
