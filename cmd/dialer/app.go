// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/FarisAlahmad714/Buttdialer/internal/apiclient"
	"github.com/FarisAlahmad714/Buttdialer/internal/auth"
	"github.com/FarisAlahmad714/Buttdialer/internal/journal"
	"github.com/FarisAlahmad714/Buttdialer/internal/notify"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/config"
	redisstore "github.com/FarisAlahmad714/Buttdialer/internal/platform/redis"
	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
	"github.com/FarisAlahmad714/Buttdialer/internal/storage"
	"github.com/FarisAlahmad714/Buttdialer/internal/voicegw"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	out      io.Writer
	notifier notify.Notifier

	sessions *auth.Service
	client   *apiclient.Client

	// expired is closed when the backend rejects the session.
	expired     chan struct{}
	expiredOnce sync.Once

	closers []func() error
}

// newApp opens the session backend, rehydrates the session and builds the
// API client around it.
func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger, out io.Writer) (*app, error) {
	application := &app{
		cfg:      cfg,
		log:      log,
		out:      out,
		notifier: notify.NewLogNotifier(out, log),
		expired:  make(chan struct{}),
	}

	// ── 1. Session storage ────────────────────────────────────────────────
	store, err := application.openStorage(ctx)
	if err != nil {
		application.Close()
		return nil, err
	}

	// ── 2. Session store ──────────────────────────────────────────────────
	// The client needs the session for credentials and the session needs the
	// client to exchange them; closures break the cycle.
	var sessions *auth.Service
	client, err := apiclient.New(apiclient.Options{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.APITimeout,
		Credentials:    func() string { return sessions.Credential() },
		OnUnauthorized: application.onUnauthorized,
		Notifier:       application.notifier,
		Logger:         log,
	})
	if err != nil {
		application.Close()
		return nil, err
	}
	sessions = auth.NewService(client, store, log)
	application.sessions, application.client = sessions, client

	if _, err := sessions.Rehydrate(ctx); err != nil {
		application.Close()
		return nil, err
	}
	return application, nil
}

func (application *app) openStorage(ctx context.Context) (storage.Storage, error) {
	switch application.cfg.SessionBackend {
	case config.SessionBackendMemory:
		return storage.NewMemoryStorage(), nil

	case config.SessionBackendRedis:
		client, err := redisstore.NewClient(ctx, application.cfg.RedisURL, application.log)
		if err != nil {
			return nil, err
		}
		application.closers = append(application.closers, client.Close)
		return storage.NewRedisStorage(client, application.cfg.RedisKeyPrefix), nil

	default:
		store, err := storage.NewFileStorage(application.cfg.StateDir, application.log)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// onUnauthorized clears every persisted key and points the user at login.
// It runs for each 401; only the first one prints the hint.
func (application *app) onUnauthorized(ctx context.Context) {
	if err := application.sessions.ClearAll(ctx); err != nil {
		application.log.WarnContext(ctx, "session_clear_failed", slog.Any("error", err))
	}
	application.expire()
}

// expire prints the login hint and ends the phone shell, once.
func (application *app) expire() {
	application.expiredOnce.Do(func() {
		fmt.Fprintln(application.out, application.cfg.LoginHint)
		close(application.expired)
	})
}

// requireSession fails when nobody is logged in.
func (application *app) requireSession() (auth.Session, error) {
	session := application.sessions.Current()
	if !session.IsAuthenticated {
		return session, fmt.Errorf("not logged in: %s", application.cfg.LoginHint)
	}
	return session, nil
}

// voiceToken adapts the API client to [softphone.TokenFunc].
func (application *app) voiceToken(ctx context.Context) (string, error) {
	token, err := application.client.VoiceToken(ctx)
	if err != nil {
		return "", err
	}
	return token.Token, nil
}

// newAdapter wires the softphone to the voice gateway.
func (application *app) newAdapter() *softphone.Adapter {
	transport := voicegw.New(voicegw.Options{
		URL:    application.cfg.VoiceGatewayURL,
		Logger: application.log,
	})
	return softphone.NewAdapter(transport, application.voiceToken, application.notifier, application.log)
}

// openJournal returns the configured journal store, or nil when disabled.
func (application *app) openJournal(ctx context.Context) (journal.Store, error) {
	switch application.cfg.JournalBackend {
	case config.JournalBackendNone:
		return nil, nil

	case config.JournalBackendPostgres:
		store, err := journal.OpenPostgres(ctx, application.cfg.DatabaseURL, application.cfg.MigrationPath, application.log)
		if err != nil {
			return nil, err
		}
		application.closers = append(application.closers, store.Close)
		return store, nil

	default:
		store, err := journal.OpenSQLite(ctx, application.cfg.JournalPath)
		if err != nil {
			return nil, err
		}
		application.closers = append(application.closers, store.Close)
		return store, nil
	}
}

// Close releases backends in reverse order of opening.
func (application *app) Close() {
	for i := len(application.closers) - 1; i >= 0; i-- {
		if err := application.closers[i](); err != nil {
			application.log.Warn("shutdown_close_failed", slog.Any("error", err))
		}
	}
	application.closers = nil
}
