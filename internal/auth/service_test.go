// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package auth_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FarisAlahmad714/Buttdialer/internal/auth"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/apperr"
	"github.com/FarisAlahmad714/Buttdialer/internal/storage"
)

const storageKey = "auth-storage"

// fakeExchanger answers credential exchanges from fixed values.
type fakeExchanger struct {
	grant *auth.Grant
	err   error
	calls int
	last  any
}

func (f *fakeExchanger) Login(_ context.Context, input auth.LoginInput) (*auth.Grant, error) {
	f.calls++
	f.last = input
	return f.grant, f.err
}

func (f *fakeExchanger) Register(_ context.Context, input auth.RegisterInput) (*auth.Grant, error) {
	f.calls++
	f.last = input
	return f.grant, f.err
}

func agentGrant() *auth.Grant {
	return &auth.Grant{
		AccessToken: "jwt-abc",
		TokenType:   "bearer",
		User:        &auth.User{ID: "7", Email: "agent@example.com", FirstName: "Ada", LastName: "Lovelace", Role: auth.UserRoleAgent},
	}
}

/*
TestService_Login verifies that a successful exchange authenticates the
session, exposes the credential, and persists the envelope.
*/
func TestService_Login(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	exchanger := &fakeExchanger{grant: agentGrant()}
	service := auth.NewService(exchanger, store, nil)

	var observed []auth.Session
	service.Subscribe(func(s auth.Session) { observed = append(observed, s) })

	session, err := service.Login(ctx, "agent@example.com", "secret")
	require.NoError(t, err)

	assert.True(t, session.IsAuthenticated)
	assert.Equal(t, "jwt-abc", service.Credential())
	assert.Equal(t, auth.LoginInput{Email: "agent@example.com", Password: "secret"}, exchanger.last)
	require.Len(t, observed, 1)
	assert.True(t, observed[0].IsAuthenticated)

	raw, err := store.Get(ctx, storageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"state": {
			"user": {"id": 7, "email": "agent@example.com", "first_name": "Ada", "last_name": "Lovelace", "role": "agent", "is_active": false},
			"token": "jwt-abc",
			"isAuthenticated": true
		},
		"version": 0
	}`, string(raw))
}

/*
TestService_LoginFailure verifies that exchange errors propagate unchanged.
*/
func TestService_LoginFailure(t *testing.T) {
	ctx := context.Background()
	rejected := apperr.Unauthorized("Incorrect email or password")
	service := auth.NewService(&fakeExchanger{err: rejected}, storage.NewMemoryStorage(), nil)

	_, err := service.Login(ctx, "agent@example.com", "wrong")
	assert.Same(t, rejected, err)
	assert.Empty(t, service.Credential())
	assert.False(t, service.Current().IsAuthenticated)
}

/*
TestService_Register verifies local validation and the happy path.
*/
func TestService_Register(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		input     auth.RegisterInput
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "valid_default_role",
			input:     auth.RegisterInput{Email: "new@example.com", Password: "pw", FirstName: "New", LastName: "Agent"},
			wantCalls: 1,
		},
		{
			name:      "valid_admin",
			input:     auth.RegisterInput{Email: "boss@example.com", Password: "pw", FirstName: "Big", LastName: "Boss", Role: auth.UserRoleAdmin},
			wantCalls: 1,
		},
		{
			name:    "bad_email",
			input:   auth.RegisterInput{Email: "nope", Password: "pw", FirstName: "A", LastName: "B"},
			wantErr: true,
		},
		{
			name:    "missing_last_name",
			input:   auth.RegisterInput{Email: "a@b.co", Password: "pw", FirstName: "A"},
			wantErr: true,
		},
		{
			name:    "unknown_role",
			input:   auth.RegisterInput{Email: "a@b.co", Password: "pw", FirstName: "A", LastName: "B", Role: "owner"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exchanger := &fakeExchanger{grant: agentGrant()}
			service := auth.NewService(exchanger, storage.NewMemoryStorage(), nil)

			session, err := service.Register(ctx, tt.input)
			assert.Equal(t, tt.wantCalls, exchanger.calls)
			if tt.wantErr {
				require.Error(t, err)
				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, apperr.CodeValidation, ae.Code)
				return
			}
			require.NoError(t, err)
			assert.True(t, session.IsAuthenticated)
			assert.Equal(t, tt.input, exchanger.last)
		})
	}
}

/*
TestService_LogoutIdempotent verifies that logging out twice leaves the
session and the credential empty both times.
*/
func TestService_LogoutIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	service := auth.NewService(&fakeExchanger{grant: agentGrant()}, store, nil)

	_, err := service.Login(ctx, "agent@example.com", "secret")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, service.Logout(ctx))
		assert.Equal(t, auth.Session{}, service.Current())
		assert.Empty(t, service.Credential())

		raw, err := store.Get(ctx, storageKey)
		require.NoError(t, err)
		assert.JSONEq(t, `{"state":{"user":null,"token":"","isAuthenticated":false},"version":0}`, string(raw))
	}
}

/*
TestService_Rehydrate verifies every accepted persisted shape.
*/
func TestService_Rehydrate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		record    string
		wantToken string
		wantID    auth.UserID
	}{
		{
			name:      "envelope",
			record:    `{"state":{"user":{"id":7,"email":"a@b.co"},"token":"t1","isAuthenticated":true},"version":0}`,
			wantToken: "t1",
			wantID:    "7",
		},
		{
			name:      "bare_record",
			record:    `{"user":{"id":"7","email":"a@b.co"},"token":"t2","isAuthenticated":true}`,
			wantToken: "t2",
			wantID:    "7",
		},
		{
			name:   "token_without_user",
			record: `{"state":{"user":null,"token":"t3","isAuthenticated":true},"version":0}`,
		},
		{
			name:   "null_state",
			record: `{"state":null,"version":0}`,
		},
		{
			name:   "corrupt",
			record: `{"state":`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewMemoryStorage()
			require.NoError(t, store.Set(ctx, storageKey, []byte(tt.record)))
			service := auth.NewService(&fakeExchanger{}, store, nil)

			session, err := service.Rehydrate(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, service.Credential())
			assert.Equal(t, tt.wantToken != "", session.IsAuthenticated)
			if tt.wantID != "" {
				require.NotNil(t, session.User)
				assert.Equal(t, tt.wantID, session.User.ID)
			}
		})
	}

	t.Run("missing", func(t *testing.T) {
		service := auth.NewService(&fakeExchanger{}, storage.NewMemoryStorage(), nil)
		session, err := service.Rehydrate(ctx)
		require.NoError(t, err)
		assert.Equal(t, auth.Session{}, session)
	})
}

// failingStorage rejects every write.
type failingStorage struct {
	*storage.MemoryStorage
}

func (failingStorage) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

/*
TestService_PersistFailure verifies that a write failure keeps the in-memory
session usable.
*/
func TestService_PersistFailure(t *testing.T) {
	ctx := context.Background()
	service := auth.NewService(&fakeExchanger{grant: agentGrant()}, failingStorage{storage.NewMemoryStorage()}, nil)

	session, err := service.Login(ctx, "agent@example.com", "secret")
	require.NoError(t, err)
	assert.True(t, session.IsAuthenticated)
	assert.Equal(t, "jwt-abc", service.Credential())

	assert.Error(t, service.Logout(ctx))
	assert.Empty(t, service.Credential())
}

/*
TestService_ClearAll verifies that the unauthorized path wipes every stored key.
*/
func TestService_ClearAll(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage()
	require.NoError(t, store.Set(ctx, "softphone-prefs", []byte(`{"muted":true}`)))
	service := auth.NewService(&fakeExchanger{grant: agentGrant()}, store, nil)

	_, err := service.Login(ctx, "agent@example.com", "secret")
	require.NoError(t, err)

	var cleared atomic.Bool
	service.Subscribe(func(s auth.Session) { cleared.Store(!s.IsAuthenticated) })

	require.NoError(t, service.ClearAll(ctx))
	assert.True(t, cleared.Load())
	assert.Empty(t, service.Credential())
	assert.Zero(t, store.Len())
}

/*
TestService_WatchStorage verifies that a session written by another process
is picked up, while the service's own writes are ignored.
*/
func TestService_WatchStorage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fileStorage, err := storage.NewFileStorage(t.TempDir(), nil)
	require.NoError(t, err)

	service := auth.NewService(&fakeExchanger{grant: agentGrant()}, fileStorage, nil)
	require.NoError(t, service.WatchStorage(ctx))

	_, err = service.Login(ctx, "agent@example.com", "secret")
	require.NoError(t, err)

	// Another window logs out by rewriting the record.
	other := `{"state":{"user":null,"token":"","isAuthenticated":false},"version":0}`
	require.NoError(t, os.WriteFile(fileStorage.Path(storageKey), []byte(other), 0o600))

	assert.Eventually(t, func() bool {
		return service.Credential() == ""
	}, 2*time.Second, 20*time.Millisecond)
}
