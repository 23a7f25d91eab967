// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package apiclient_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FarisAlahmad714/Buttdialer/internal/apiclient"
	"github.com/FarisAlahmad714/Buttdialer/internal/apitest"
	"github.com/FarisAlahmad714/Buttdialer/internal/auth"
	"github.com/FarisAlahmad714/Buttdialer/internal/notify"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/apperr"
	"github.com/FarisAlahmad714/Buttdialer/internal/storage"
)

// wireSession connects a session service and a client the way the dialer
// command does: credentials are pulled from the service on every request and
// a 401 clears all persisted state.
func wireSession(t *testing.T, server *apitest.Server, store storage.Storage) (*auth.Service, *apiclient.Client) {
	t.Helper()

	var sessions *auth.Service
	client, err := apiclient.New(apiclient.Options{
		BaseURL:     server.APIURL(),
		Credentials: func() string { return sessions.Credential() },
		OnUnauthorized: func(ctx context.Context) {
			_ = sessions.ClearAll(ctx)
		},
		Notifier: &notify.Recorder{},
	})
	require.NoError(t, err)

	sessions = auth.NewService(client, store, nil)
	return sessions, client
}

/*
TestSession_LoginAttachesCredential verifies that a successful login makes
every following request carry the bearer token.
*/
func TestSession_LoginAttachesCredential(t *testing.T) {
	server := apitest.NewServer(t, apitest.Options{})
	ctx := context.Background()

	sessions, client := wireSession(t, server, storage.NewMemoryStorage())

	session, err := sessions.Register(ctx, auth.RegisterInput{
		Email: "new@example.com", Password: "pw", FirstName: "New", LastName: "Agent",
	})
	require.NoError(t, err)
	assert.True(t, session.IsAuthenticated)
	assert.Equal(t, auth.UserRoleAgent, session.User.Role)

	voice, err := client.VoiceToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "agent-"+string(session.User.ID), voice.Identity)

	requests := server.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "Bearer "+session.Token, requests[1].Authorization)
}

/*
TestSession_RehydrationCarriesCredential verifies that the first request of a
new process carries the persisted credential before any user action.
*/
func TestSession_RehydrationCarriesCredential(t *testing.T) {
	server := apitest.NewServer(t, apitest.Options{})
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	// First run: log in.
	_, _, err := server.Seed("agent@example.com", "secret", auth.UserRoleAgent)
	require.NoError(t, err)
	first, _ := wireSession(t, server, store)
	session, err := first.Login(ctx, "agent@example.com", "secret")
	require.NoError(t, err)

	// Second run: same storage, fresh service and client.
	second, client := wireSession(t, server, store)
	_, err = second.Rehydrate(ctx)
	require.NoError(t, err)

	_, err = client.VoiceToken(ctx)
	require.NoError(t, err)

	requests := server.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "/api/v1/calls/token", requests[1].Path)
	assert.Equal(t, "Bearer "+session.Token, requests[1].Authorization)
}

/*
TestSession_UnauthorizedClearsPersistedState verifies that a 401 from any
endpoint wipes the persisted session entirely.
*/
func TestSession_UnauthorizedClearsPersistedState(t *testing.T) {
	server := apitest.NewServer(t, apitest.Options{})
	ctx := context.Background()
	store := storage.NewMemoryStorage()

	_, _, err := server.Seed("agent@example.com", "secret", auth.UserRoleAgent)
	require.NoError(t, err)
	sessions, client := wireSession(t, server, store)
	_, err = sessions.Login(ctx, "agent@example.com", "secret")
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "softphone-prefs", []byte(`{}`)))

	server.RevokeAll()
	_, err = client.CallHistory(ctx, apiclient.HistoryFilter{})
	assert.True(t, apperr.IsUnauthorized(err))

	assert.False(t, sessions.Current().IsAuthenticated)
	assert.Empty(t, sessions.Credential())
	assert.Zero(t, store.Len())

	// The next request goes out without a credential.
	_, _ = client.VoiceToken(ctx)
	requests := server.Requests()
	assert.Empty(t, requests[len(requests)-1].Authorization)
}

/*
TestSession_LogoutClearsCredential verifies that logging out twice leaves
requests unauthenticated both times.
*/
func TestSession_LogoutClearsCredential(t *testing.T) {
	server := apitest.NewServer(t, apitest.Options{})
	ctx := context.Background()

	_, _, err := server.Seed("agent@example.com", "secret", auth.UserRoleAgent)
	require.NoError(t, err)
	sessions, client := wireSession(t, server, storage.NewMemoryStorage())
	_, err = sessions.Login(ctx, "agent@example.com", "secret")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, sessions.Logout(ctx))
		_, _ = client.VoiceToken(ctx)

		requests := server.Requests()
		assert.Empty(t, requests[len(requests)-1].Authorization)
		assert.Equal(t, auth.Session{}, sessions.Current())
	}
}
