// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/apperr"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/validate"
	"github.com/FarisAlahmad714/Buttdialer/internal/storage"
)

// nameMaxLen mirrors the backend's column width for first and last names.
const nameMaxLen = 50

// Service owns the current [Session] and keeps it in sync with durable storage.
//
// # Credential Injection
//
// The session is never pushed into shared request state. The API client pulls
// the bearer token through [Service.Credential] each time it builds a request,
// so login, logout and rehydration take effect on the very next request.
//
// # Concurrency
//
// Service is safe for concurrent use. Observers are invoked outside the lock
// in the order the mutations were applied.
type Service struct {
	exchanger Exchanger
	storage   storage.Storage
	logger    *slog.Logger

	mu        sync.RWMutex
	session   Session
	lastWrite []byte
	observers []func(Session)
}

// NewService constructs a new [Service] with an empty session.
//
// Call [Service.Rehydrate] before issuing requests to restore the previous run.
func NewService(exchanger Exchanger, store storage.Storage, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		exchanger: exchanger,
		storage:   store,
		logger:    logger,
	}
}

// # Queries

// Current returns a snapshot of the session.
func (service *Service) Current() Session {
	service.mu.RLock()
	defer service.mu.RUnlock()
	return service.session
}

// Credential returns the bearer token, or "" when signed out.
func (service *Service) Credential() string {
	service.mu.RLock()
	defer service.mu.RUnlock()
	return service.session.Token
}

// Subscribe registers fn to be called after every session mutation.
func (service *Service) Subscribe(fn func(Session)) {
	service.mu.Lock()
	defer service.mu.Unlock()
	service.observers = append(service.observers, fn)
}

// # Commands

// Login exchanges an email and password for a session.
//
// # Returns
//   - The new authenticated [Session].
//   - The exchanger's error unchanged on failure. Nothing is retried.
func (service *Service) Login(context context.Context, email, password string) (Session, error) {
	err := (&validate.Validator{}).
		Required("email", email).
		Required("password", password).
		Err()
	if err != nil {
		return Session{}, err
	}

	grant, err := service.exchanger.Login(context, LoginInput{Email: email, Password: password})
	if err != nil {
		return Session{}, err
	}
	return service.authenticate(context, grant)
}

// Register creates an account and signs it in.
//
// # Business Rules
//   - Email, password, first and last name are required.
//   - Role, when given, must be one of the known roles.
func (service *Service) Register(context context.Context, input RegisterInput) (Session, error) {
	v := &validate.Validator{}
	v.Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password).
		Required("first_name", input.FirstName).
		MaxLen("first_name", input.FirstName, nameMaxLen).
		Required("last_name", input.LastName).
		MaxLen("last_name", input.LastName, nameMaxLen)
	if input.Role != "" {
		v.OneOf("role", string(input.Role),
			string(UserRoleAdmin), string(UserRoleSupervisor), string(UserRoleAgent))
	}
	if err := v.Err(); err != nil {
		return Session{}, err
	}

	grant, err := service.exchanger.Register(context, input)
	if err != nil {
		return Session{}, err
	}
	return service.authenticate(context, grant)
}

// authenticate applies a grant returned by the backend.
func (service *Service) authenticate(context context.Context, grant *Grant) (Session, error) {
	if grant == nil || grant.AccessToken == "" || grant.User == nil {
		return Session{}, apperr.Decode(http.StatusOK, errors.New("auth: grant without token or user"))
	}

	session, err := service.apply(context, Authenticated{User: grant.User, Token: grant.AccessToken})
	if err != nil {
		// The in-memory session stays valid for this run.
		service.logger.WarnContext(context, "session_persist_failed", slog.Any("error", err))
	}
	return session, nil
}

// Logout clears the session and the persisted record. It is idempotent.
//
// The in-memory session is cleared even when persistence fails; the
// persistence error is returned so the caller can report it.
func (service *Service) Logout(context context.Context) error {
	if _, err := service.apply(context, LoggedOut{}); err != nil {
		return fmt.Errorf("auth_logout_failed: %w", err)
	}
	return nil
}

// ClearAll resets the session and wipes every key of the backing storage.
//
// It is the handler for authorization failures reported by the API client.
func (service *Service) ClearAll(context context.Context) error {
	service.mu.Lock()
	changed := !service.session.Empty()
	service.session = Reduce(service.session, Unauthorized{})
	service.lastWrite = nil
	session, observers := service.session, service.snapshotObservers()
	err := service.storage.Clear(context)
	service.mu.Unlock()

	if changed {
		service.notify(observers, session)
	}
	if err != nil {
		return fmt.Errorf("auth_clear_failed: %w", err)
	}
	service.logger.InfoContext(context, "session_cleared")
	return nil
}

// Rehydrate loads the persisted session.
//
// A missing record yields an empty session. A corrupt record is logged and
// treated as missing.
func (service *Service) Rehydrate(context context.Context) (Session, error) {
	data, err := service.storage.Get(context, constants.SessionStorageKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Session{}, fmt.Errorf("auth_rehydrate_failed: %w", err)
	}

	snapshot := Session{}
	if err == nil {
		snapshot, err = decodeSession(data)
		if err != nil {
			service.logger.WarnContext(context, "session_record_corrupt", slog.Any("error", err))
			snapshot = Session{}
		}
	}

	service.mu.Lock()
	service.session = Reduce(service.session, Rehydrated{Snapshot: snapshot})
	service.lastWrite = data
	session, observers := service.session, service.snapshotObservers()
	service.mu.Unlock()

	service.notify(observers, session)
	service.logger.DebugContext(context, "session_rehydrated", slog.Bool("authenticated", session.IsAuthenticated))
	return session, nil
}

// WatchStorage follows changes made to the persisted record by other
// processes until ctx is cancelled.
//
// Storages that cannot report changes are not watched and nil is returned.
func (service *Service) WatchStorage(context context.Context) error {
	watcher, ok := service.storage.(storage.Watcher)
	if !ok {
		service.logger.DebugContext(context, "session_watch_unsupported")
		return nil
	}
	return watcher.Watch(context, constants.SessionStorageKey, func() {
		service.reload(context)
	})
}

// reload rehydrates after an external write, ignoring this process's own writes.
func (service *Service) reload(context context.Context) {
	data, err := service.storage.Get(context, constants.SessionStorageKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		service.logger.WarnContext(context, "session_reload_failed", slog.Any("error", err))
		return
	}

	service.mu.RLock()
	own := bytes.Equal(data, service.lastWrite)
	service.mu.RUnlock()
	if own {
		return
	}

	if _, err := service.Rehydrate(context); err != nil {
		service.logger.WarnContext(context, "session_reload_failed", slog.Any("error", err))
	}
}

// # Internals

// apply reduces event into the session, persists the result, and notifies
// observers. The returned session is valid even when persistence fails.
func (service *Service) apply(context context.Context, event Event) (Session, error) {
	service.mu.Lock()
	service.session = Reduce(service.session, event)
	session, observers := service.session, service.snapshotObservers()

	data, err := encodeSession(session)
	if err == nil {
		err = service.storage.Set(context, constants.SessionStorageKey, data)
		if err == nil {
			service.lastWrite = data
		}
	}
	service.mu.Unlock()

	service.notify(observers, session)
	return session, err
}

// snapshotObservers copies the observer list. Callers must hold mu.
func (service *Service) snapshotObservers() []func(Session) {
	return append([]func(Session){}, service.observers...)
}

func (service *Service) notify(observers []func(Session), session Session) {
	for _, fn := range observers {
		fn(session)
	}
}
