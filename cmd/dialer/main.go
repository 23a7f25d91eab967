// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Command dialer is the Buttdialer softphone client for agents.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the session storage backend and rehydrate the session.
//  4. Wire the API client with the session's credential source.
//  5. Dispatch the requested command.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/config"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Logs go to stderr; stdout belongs to the interactive shell.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Debug("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("api_base_url", cfg.APIBaseURL),
		slog.String("session_backend", cfg.SessionBackend),
		slog.String("journal_backend", cfg.JournalBackend),
	)

	// ── 3. Signals ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 4. Commands ───────────────────────────────────────────────────────
	root, release := newRootCommand(cfg, log, os.Stdin, os.Stdout)
	err = root.ExecuteContext(ctx)
	release()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned to
// cobra and reported there.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
