// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Package auth holds the signed-in agent's identity and bearer credential.
//
// # Architecture
//
// The package is split the same way on every layer:
//   - user.go, session.go: entities and the pure session transition function.
//   - store.go: the persisted record format.
//   - service.go: login/register/logout orchestration and persistence.
//
// It never talks HTTP directly; the credential exchange is reached through
// the [Exchanger] interface implemented by the API client.
package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	UserRoleAdmin      UserRole = "admin"      // Sees every agent's calls and stats.
	UserRoleSupervisor UserRole = "supervisor" // Team lead.
	UserRoleAgent      UserRole = "agent"      // Default role for registered users.
)

// level maps a role to a numeric hierarchy level to easily check permissions.
func (r UserRole) level() int {
	switch r {
	case UserRoleAdmin:
		return 30
	case UserRoleSupervisor:
		return 20
	case UserRoleAgent:
		return 10
	default:
		return 0
	}
}

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// UserID is an opaque account identifier.
//
// The backend emits integer IDs; older persisted records and other backends
// may carry strings. Both decode into the same value, and numeric IDs are
// written back as JSON numbers so the persisted record keeps its shape.
type UserID string

// UnmarshalJSON accepts a JSON number or string.
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var text string
		if err := json.Unmarshal(data, &text); err != nil {
			return fmt.Errorf("auth: invalid user id: %w", err)
		}
		*id = UserID(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return fmt.Errorf("auth: invalid user id: %w", err)
	}
	*id = UserID(number.String())
	return nil
}

// MarshalJSON writes integer IDs as numbers and everything else as strings.
func (id UserID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// User represents the signed-in agent as returned by the auth endpoints.
//
// # Rules
//   - ID and Email are always present on a user returned by the backend.
//   - Role defaults to 'agent' on the backend when omitted at registration.
type User struct {
	ID        UserID    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      UserRole  `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// DisplayName returns "First Last", falling back to the email address.
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}
