// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package apiclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FarisAlahmad714/Buttdialer/internal/apiclient"
	"github.com/FarisAlahmad714/Buttdialer/internal/apitest"
	"github.com/FarisAlahmad714/Buttdialer/internal/auth"
	"github.com/FarisAlahmad714/Buttdialer/internal/notify"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/apperr"
)

// newClient builds a client against baseURL with a fixed credential.
func newClient(t *testing.T, baseURL string, token *string, onUnauthorized apiclient.UnauthorizedHandler) (*apiclient.Client, *notify.Recorder) {
	t.Helper()

	recorder := &notify.Recorder{}
	client, err := apiclient.New(apiclient.Options{
		BaseURL:        baseURL,
		Credentials:    func() string { return *token },
		OnUnauthorized: onUnauthorized,
		Notifier:       recorder,
	})
	require.NoError(t, err)
	return client, recorder
}

/*
TestNew_InvalidBaseURL verifies that relative or empty origins are rejected.
*/
func TestNew_InvalidBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000/api", "/api/v1"} {
		_, err := apiclient.New(apiclient.Options{BaseURL: raw})
		assert.Error(t, err, raw)
	}
}

/*
TestClient_CredentialPerRequest verifies that the Authorization header follows
the credential source on every request, with no sticky state.
*/
func TestClient_CredentialPerRequest(t *testing.T) {
	server := apitest.NewServer(t, apitest.Options{})
	token, _, err := server.Seed("agent@example.com", "secret", auth.UserRoleAgent)
	require.NoError(t, err)

	current := token
	client, _ := newClient(t, server.APIURL(), &current, nil)
	ctx := context.Background()

	_, err = client.VoiceToken(ctx)
	require.NoError(t, err)

	current = ""
	_, err = client.VoiceToken(ctx)
	assert.True(t, apperr.IsUnauthorized(err))

	requests := server.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "Bearer "+token, requests[0].Authorization)
	assert.Empty(t, requests[1].Authorization)
	assert.NotEmpty(t, requests[0].RequestID)
	assert.NotEqual(t, requests[0].RequestID, requests[1].RequestID)
}

/*
TestClient_Interceptor verifies message extraction and notifications for
non-2xx responses.
*/
func TestClient_Interceptor(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{"detail_string", http.StatusBadRequest, `{"detail":"Number is on Do Not Call list"}`, "Number is on Do Not Call list", apperr.CodeBadRequest},
		{"detail_list", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email address","type":"value_error"}]}`, "value is not a valid email address", apperr.CodeValidation},
		{"error_field", http.StatusConflict, `{"error":"Already exists","code":"CONFLICT"}`, "Already exists", apperr.CodeConflict},
		{"empty_detail", http.StatusInternalServerError, `{"detail":""}`, "An error occurred", apperr.CodeServer},
		{"not_json", http.StatusBadGateway, `<html>bad gateway</html>`, "An error occurred", apperr.CodeServer},
		{"empty_body", http.StatusNotFound, ``, "An error occurred", apperr.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := apitest.NewServer(t, apitest.Options{})
			server.Override(http.MethodGet, "/calls/stats", tt.status, tt.body)

			var unauthorized atomic.Int32
			token := ""
			client, recorder := newClient(t, server.APIURL(), &token, func(context.Context) { unauthorized.Add(1) })

			_, err := client.CallStats(context.Background(), time.Time{}, time.Time{})
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, tt.status, ae.HTTPStatus)
			assert.Equal(t, tt.wantCode, ae.Code)
			assert.Equal(t, tt.wantMessage, ae.Message)
			assert.Equal(t, []string{tt.wantMessage}, recorder.Messages(notify.LevelError))
			assert.Zero(t, unauthorized.Load())
		})
	}
}

/*
TestClient_UnauthorizedHook verifies that a 401 from any endpoint runs the
unauthorized handler exactly once and still surfaces the error.
*/
func TestClient_UnauthorizedHook(t *testing.T) {
	paths := []struct {
		name string
		call func(*apiclient.Client) error
	}{
		{"login", func(c *apiclient.Client) error {
			_, err := c.Login(context.Background(), auth.LoginInput{Email: "x@example.com", Password: "nope"})
			return err
		}},
		{"voice_token", func(c *apiclient.Client) error {
			_, err := c.VoiceToken(context.Background())
			return err
		}},
		{"history", func(c *apiclient.Client) error {
			_, err := c.CallHistory(context.Background(), apiclient.HistoryFilter{})
			return err
		}},
	}

	for _, tt := range paths {
		t.Run(tt.name, func(t *testing.T) {
			server := apitest.NewServer(t, apitest.Options{})

			var unauthorized atomic.Int32
			token := "stale-token"
			client, recorder := newClient(t, server.APIURL(), &token, func(context.Context) { unauthorized.Add(1) })

			err := tt.call(client)
			assert.True(t, apperr.IsUnauthorized(err))
			assert.Equal(t, int32(1), unauthorized.Load())
			assert.Len(t, recorder.Messages(notify.LevelError), 1)
		})
	}
}

/*
TestClient_NetworkError verifies the transport failure path.
*/
func TestClient_NetworkError(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	baseURL := dead.URL
	dead.Close()

	var unauthorized atomic.Int32
	token := ""
	client, recorder := newClient(t, baseURL, &token, func(context.Context) { unauthorized.Add(1) })

	_, err := client.VoiceToken(context.Background())
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeNetwork, ae.Code)
	assert.Zero(t, ae.HTTPStatus)
	assert.Equal(t, []string{"Network error occurred"}, recorder.Messages(notify.LevelError))
	assert.Zero(t, unauthorized.Load())
}

/*
TestClient_Timeout verifies that the fixed timeout bounds slow responses.
*/
func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(release)

	client, err := apiclient.New(apiclient.Options{BaseURL: slow.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = client.VoiceToken(context.Background())
	assert.True(t, apiclient.IsTimeout(err))
}

/*
TestClient_RateLimited verifies that a throttled response surfaces the
backend's message.
*/
func TestClient_RateLimited(t *testing.T) {
	server := apitest.NewServer(t, apitest.Options{RateRPS: 0.001, RateBurst: 1})
	token := ""
	client, recorder := newClient(t, server.APIURL(), &token, nil)
	ctx := context.Background()

	_, _ = client.Login(ctx, auth.LoginInput{Email: "a@example.com", Password: "pw"})
	_, err := client.Login(ctx, auth.LoginInput{Email: "a@example.com", Password: "pw"})

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.CodeRateLimited, ae.Code)
	assert.Contains(t, recorder.Messages(notify.LevelError), "Rate limit exceeded")
}

/*
TestClient_CallHistory verifies filters and role scoping.
*/
func TestClient_CallHistory(t *testing.T) {
	server := apitest.NewServer(t, apitest.Options{})
	agentToken, agent, err := server.Seed("agent@example.com", "pw", auth.UserRoleAgent)
	require.NoError(t, err)
	adminToken, _, err := server.Seed("admin@example.com", "pw", auth.UserRoleAdmin)
	require.NoError(t, err)

	agentID := int64(1)
	require.Equal(t, auth.UserID("1"), agent.ID)

	server.AddCall(apiclient.CallRecord{AgentID: agentID, Direction: "outbound", ToNumber: "+15551234567", Status: "completed", Duration: 30})
	server.AddCall(apiclient.CallRecord{AgentID: agentID, Direction: "inbound", FromNumber: "+15557654321", Status: "no-answer"})
	server.AddCall(apiclient.CallRecord{AgentID: 99, Direction: "outbound", ToNumber: "+15550000000", Status: "completed", Duration: 90})

	ctx := context.Background()

	agentClient, _ := newClient(t, server.APIURL(), &agentToken, nil)
	mine, err := agentClient.CallHistory(ctx, apiclient.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	completed, err := agentClient.CallHistory(ctx, apiclient.HistoryFilter{Status: "completed"})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "+15551234567", completed[0].ToNumber)

	stats, err := agentClient.CallStats(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalCalls)
	assert.Equal(t, 1, stats.AnsweredCalls)
	assert.InDelta(t, 50.0, stats.ConnectRate, 0.001)

	adminClient, _ := newClient(t, server.APIURL(), &adminToken, nil)
	all, err := adminClient.CallHistory(ctx, apiclient.HistoryFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	page, err := adminClient.CallHistory(ctx, apiclient.HistoryFilter{Skip: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
