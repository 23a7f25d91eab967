// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package auth

// Session is the authenticated identity and bearer credential of the
// current user.
//
// # Invariant
//
// IsAuthenticated is true iff both User and Token are present. Only [Reduce]
// produces sessions, and it restores the invariant on every step.
type Session struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Empty reports whether the session carries neither a user nor a token.
func (s Session) Empty() bool {
	return s.User == nil && s.Token == ""
}

// normalize recomputes IsAuthenticated and drops half-populated sessions.
func (s Session) normalize() Session {
	if s.User == nil || s.Token == "" {
		return Session{}
	}
	s.IsAuthenticated = true
	return s
}

// # Events

// Event is a session mutation fed to [Reduce].
type Event interface {
	sessionEvent()
}

// Authenticated is emitted after a successful login or registration exchange.
type Authenticated struct {
	User  *User
	Token string
}

// LoggedOut is emitted by an explicit logout.
type LoggedOut struct{}

// Rehydrated is emitted when a persisted snapshot is loaded.
type Rehydrated struct {
	Snapshot Session
}

// Unauthorized is emitted when the backend rejects the credential.
type Unauthorized struct{}

func (Authenticated) sessionEvent() {}
func (LoggedOut) sessionEvent()     {}
func (Rehydrated) sessionEvent()    {}
func (Unauthorized) sessionEvent()  {}

// Reduce returns the session that results from applying event to current.
//
// It has no side effects. Persistence and observer notification are the
// caller's concern.
func Reduce(current Session, event Event) Session {
	switch e := event.(type) {
	case Authenticated:
		return Session{User: e.User, Token: e.Token}.normalize()
	case Rehydrated:
		return e.Snapshot.normalize()
	case LoggedOut, Unauthorized:
		return Session{}
	default:
		return current
	}
}
