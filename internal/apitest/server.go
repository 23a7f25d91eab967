// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

/*
Package apitest provides an in-process fixture of the dialer backend.

It serves the subset of the backend API the client uses, with the same
request and error shapes, so the API client, the session store and the
softphone can be tested end to end without a real backend.

Routes (under /api/v1):

  - POST /auth/register, POST /auth/login
  - GET /calls/token, GET /calls/, GET /calls/stats (bearer required)

Test hooks allow recording requests, revoking every issued token, and
overriding any route with a canned response.
*/
package apitest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/FarisAlahmad714/Buttdialer/internal/apiclient"
	"github.com/FarisAlahmad714/Buttdialer/internal/auth"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/middleware"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/sec"
)

// Options configures a fixture [Server].
type Options struct {
	// AccessTTL is the lifetime of session tokens. Defaults to one hour.
	AccessTTL time.Duration
	// VoiceTTL is the lifetime of voice tokens. Defaults to one hour.
	VoiceTTL time.Duration
	// RateRPS and RateBurst enable per-IP rate limiting when RateRPS > 0.
	RateRPS   float64
	RateBurst int
	// Logger receives request logs. Defaults to a discarding logger.
	Logger *slog.Logger
}

// RecordedRequest is one request observed by the fixture.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

// cannedResponse replaces a route's handler.
type cannedResponse struct {
	status int
	body   string
}

// account is a registered user with its password hash.
type account struct {
	user         auth.User
	passwordHash []byte
}

// Server is a running fixture backend.
type Server struct {
	*httptest.Server

	options Options

	mu        sync.Mutex
	signer    *sec.Signer
	epoch     int
	accounts  map[string]*account
	nextID    int64
	calls     []apiclient.CallRecord
	requests  []RecordedRequest
	overrides map[string]cannedResponse
}

// NewServer starts a fixture backend. It is closed when the test ends.
func NewServer(t testing.TB, opts Options) *Server {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = time.Hour
	}
	if opts.VoiceTTL <= 0 {
		opts.VoiceTTL = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	server := &Server{
		options:   opts,
		signer:    sec.NewSigner(fmt.Sprintf("fixture-secret-%d", 0), constants.AppName),
		accounts:  make(map[string]*account),
		overrides: make(map[string]cannedResponse),
	}
	server.Server = httptest.NewServer(server.routes())
	t.Cleanup(server.Close)
	return server
}

// routes assembles the router the same way the real backend mounts /api/v1.
func (server *Server) routes() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID())
	router.Use(middleware.StructuredLogger(server.options.Logger))
	router.Use(middleware.PanicRecovery)
	router.Use(chimw.StripSlashes)
	router.Use(server.record)
	if server.options.RateRPS > 0 {
		router.Use(middleware.NewRateLimiter(server.options.RateRPS, server.options.RateBurst).Middleware)
	}
	router.Use(server.override)

	router.Route(constants.APIBasePath, func(api chi.Router) {
		api.Post("/auth/register", server.handleRegister)
		api.Post("/auth/login", server.handleLogin)

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.RequireBearer(server))
			protected.Get("/calls/token", server.handleVoiceToken)
			protected.Get("/calls", server.handleCallHistory)
			protected.Get("/calls/stats", server.handleCallStats)
		})
	})
	return router
}

// # Test Hooks

// Verify implements [middleware.TokenVerifier] against the current signer.
func (server *Server) Verify(tokenString string) (*sec.VoiceClaims, error) {
	server.mu.Lock()
	signer := server.signer
	server.mu.Unlock()
	return signer.Verify(tokenString)
}

// RevokeAll invalidates every token issued so far.
func (server *Server) RevokeAll() {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.epoch++
	server.signer = sec.NewSigner(fmt.Sprintf("fixture-secret-%d", server.epoch), constants.AppName)
}

// Override answers method+path (relative to the API base path, without a
// trailing slash) with a fixed status and raw body.
func (server *Server) Override(method, path string, status int, body string) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.overrides[method+" "+constants.APIBasePath+path] = cannedResponse{status: status, body: body}
}

// Requests returns a copy of every request received so far.
func (server *Server) Requests() []RecordedRequest {
	server.mu.Lock()
	defer server.mu.Unlock()
	return append([]RecordedRequest(nil), server.requests...)
}

// APIURL returns the origin clients should use as their base URL.
func (server *Server) APIURL() string {
	return server.URL
}

// Seed registers an account directly and returns a session token for it.
func (server *Server) Seed(email, password string, role auth.UserRole) (string, *auth.User, error) {
	acct, err := server.createAccount(auth.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: "Seed",
		LastName:  "User",
		Role:      role,
	})
	if err != nil {
		return "", nil, err
	}
	token, err := server.issueAccessToken(&acct.user)
	return token, &acct.user, err
}

// AddCall appends a call record. Its ID is assigned by the fixture.
func (server *Server) AddCall(record apiclient.CallRecord) {
	server.mu.Lock()
	defer server.mu.Unlock()
	record.ID = int64(len(server.calls) + 1)
	server.calls = append(server.calls, record)
}

// record appends the request to the log.
func (server *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		server.mu.Lock()
		server.requests = append(server.requests, RecordedRequest{
			Method:        request.Method,
			Path:          request.URL.Path,
			Authorization: request.Header.Get(constants.HeaderAuthorization),
			RequestID:     request.Header.Get(constants.HeaderXRequestID),
		})
		server.mu.Unlock()
		next.ServeHTTP(writer, request)
	})
}

// override serves canned responses registered with [Server.Override].
func (server *Server) override(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		server.mu.Lock()
		canned, ok := server.overrides[request.Method+" "+strings.TrimSuffix(request.URL.Path, "/")]
		server.mu.Unlock()

		if !ok {
			next.ServeHTTP(writer, request)
			return
		}
		writer.Header().Set("Content-Type", "application/json")
		writer.WriteHeader(canned.status)
		_, _ = writer.Write([]byte(canned.body))
	})
}

// decode reads a JSON request body.
func decode(request *http.Request, out any) error {
	return json.NewDecoder(request.Body).Decode(out)
}
