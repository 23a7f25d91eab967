// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
)

// Exchanger defines the credential exchange contract with the backend.
//
// # Implementations
//
// The canonical implementation is the HTTP API client (package: `apiclient`).
type Exchanger interface {
	// Login trades an email and password for a bearer token.
	Login(ctx context.Context, input LoginInput) (*Grant, error)

	// Register creates an account and signs it in.
	Register(ctx context.Context, input RegisterInput) (*Grant, error)
}

// Grant is the backend's answer to a successful credential exchange.
type Grant struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
	User        *User  `json:"user"`
}

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput holds the data required to enroll a new agent.
//
// Role is omitted from the request when empty, letting the backend apply its
// default.
type RegisterInput struct {
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Role      UserRole `json:"role,omitempty"`
}

// # Persisted Record

// persistedRecord is the envelope written under [constants.SessionStorageKey].
//
// The same shape is produced by the web dashboard's persisted auth store, so
// both clients can share a record.
type persistedRecord struct {
	State   *Session `json:"state"`
	Version int      `json:"version"`
}

// encodeSession serializes s into the persisted envelope.
func encodeSession(s Session) ([]byte, error) {
	data, err := json.Marshal(persistedRecord{State: &s, Version: constants.SessionStorageVersion})
	if err != nil {
		return nil, fmt.Errorf("auth_session_encode_failed: %w", err)
	}
	return data, nil
}

// decodeSession parses a persisted record.
//
// Accepts the versioned envelope as well as a bare {user, token,
// isAuthenticated} object written by older builds.
func decodeSession(data []byte) (Session, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Session{}, fmt.Errorf("auth_session_decode_failed: %w", err)
	}

	if _, ok := envelope["state"]; ok {
		var record persistedRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return Session{}, fmt.Errorf("auth_session_decode_failed: %w", err)
		}
		if record.State == nil {
			return Session{}, nil
		}
		return *record.State, nil
	}

	var bare Session
	if err := json.Unmarshal(data, &bare); err != nil {
		return Session{}, fmt.Errorf("auth_session_decode_failed: %w", err)
	}
	return bare, nil
}
