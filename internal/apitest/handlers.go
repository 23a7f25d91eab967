// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package apitest

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/FarisAlahmad714/Buttdialer/internal/apiclient"
	"github.com/FarisAlahmad714/Buttdialer/internal/auth"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/apperr"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/middleware"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/respond"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/validate"
	"github.com/FarisAlahmad714/Buttdialer/pkg/pagination"
)

// # Auth

func (server *Server) handleRegister(writer http.ResponseWriter, request *http.Request) {
	var input auth.RegisterInput
	if err := decode(request, &input); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid request body"))
		return
	}

	acct, err := server.createAccount(input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	server.grant(writer, request, &acct.user)
}

func (server *Server) handleLogin(writer http.ResponseWriter, request *http.Request) {
	var input auth.LoginInput
	if err := decode(request, &input); err != nil {
		respond.Error(writer, request, apperr.ValidationError("Invalid request body"))
		return
	}

	server.mu.Lock()
	acct, ok := server.accounts[strings.ToLower(input.Email)]
	server.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(input.Password)) != nil {
		respond.Error(writer, request, apperr.Unauthorized("Incorrect email or password"))
		return
	}
	if !acct.user.IsActive {
		respond.Error(writer, request, apperr.FromStatus(http.StatusBadRequest, "Inactive user"))
		return
	}
	server.grant(writer, request, &acct.user)
}

// grant answers with a fresh access token for user.
func (server *Server) grant(writer http.ResponseWriter, request *http.Request, user *auth.User) {
	token, err := server.issueAccessToken(user)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, auth.Grant{AccessToken: token, TokenType: "bearer", User: user})
}

// createAccount validates input and stores a new account.
func (server *Server) createAccount(input auth.RegisterInput) (*account, error) {
	err := (&validate.Validator{}).
		Required("email", input.Email).
		Email("email", input.Email).
		Required("password", input.Password).
		Required("first_name", input.FirstName).
		Required("last_name", input.LastName).
		Err()
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = auth.UserRoleAgent
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	key := strings.ToLower(input.Email)
	if _, exists := server.accounts[key]; exists {
		return nil, apperr.FromStatus(http.StatusBadRequest, "Email already registered")
	}

	server.nextID++
	acct := &account{
		user: auth.User{
			ID:        auth.UserID(strconv.FormatInt(server.nextID, 10)),
			Email:     input.Email,
			FirstName: input.FirstName,
			LastName:  input.LastName,
			Role:      role,
			IsActive:  true,
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		},
		passwordHash: hash,
	}
	server.accounts[key] = acct
	return acct, nil
}

// issueAccessToken signs a session token whose subject is the user's email.
func (server *Server) issueAccessToken(user *auth.User) (string, error) {
	server.mu.Lock()
	signer := server.signer
	server.mu.Unlock()
	return signer.Sign(user.Email, "", server.options.AccessTTL)
}

// currentAccount resolves the bearer subject to its account.
func (server *Server) currentAccount(request *http.Request) (*account, error) {
	claims := middleware.GetClaims(request.Context())
	if claims == nil {
		return nil, apperr.Unauthorized("Not authenticated")
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	acct, ok := server.accounts[strings.ToLower(claims.Subject)]
	if !ok {
		return nil, apperr.Unauthorized("Could not validate credentials")
	}
	return acct, nil
}

// # Calls

func (server *Server) handleVoiceToken(writer http.ResponseWriter, request *http.Request) {
	acct, err := server.currentAccount(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	identity := "agent-" + string(acct.user.ID)

	server.mu.Lock()
	signer := server.signer
	server.mu.Unlock()

	token, err := signer.Sign(string(acct.user.ID), identity, server.options.VoiceTTL)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, apiclient.VoiceToken{Token: token, Identity: identity})
}

func (server *Server) handleCallHistory(writer http.ResponseWriter, request *http.Request) {
	acct, err := server.currentAccount(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	query := request.URL.Query()
	window := pagination.FromQuery(query)
	status := query.Get("status")

	visible := server.visibleCalls(acct)
	filtered := make([]apiclient.CallRecord, 0, len(visible))
	for _, call := range visible {
		if status != "" && call.Status != status {
			continue
		}
		filtered = append(filtered, call)
	}

	respond.OK(writer, pagination.Apply(filtered, window))
}

func (server *Server) handleCallStats(writer http.ResponseWriter, request *http.Request) {
	acct, err := server.currentAccount(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	stats := apiclient.CallStats{}
	for _, call := range server.visibleCalls(acct) {
		stats.TotalCalls++
		stats.TotalDuration += call.Duration
		if call.Status == "completed" {
			stats.AnsweredCalls++
		}
	}
	if stats.TotalCalls > 0 {
		stats.ConnectRate = float64(stats.AnsweredCalls) / float64(stats.TotalCalls) * 100
		stats.AverageDuration = float64(stats.TotalDuration) / float64(stats.TotalCalls)
	}
	respond.OK(writer, stats)
}

// visibleCalls returns every call for admins and the agent's own otherwise.
func (server *Server) visibleCalls(acct *account) []apiclient.CallRecord {
	agentID, _ := strconv.ParseInt(string(acct.user.ID), 10, 64)

	server.mu.Lock()
	defer server.mu.Unlock()

	calls := make([]apiclient.CallRecord, 0, len(server.calls))
	for _, call := range server.calls {
		if acct.user.Role != auth.UserRoleAdmin && call.AgentID != agentID {
			continue
		}
		calls = append(calls, call)
	}
	return calls
}
