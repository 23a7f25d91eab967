// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

/*
Package constants provides centralized, immutable values for the dialer client.

It defines default timeouts, storage keys, and header names that are shared
between the API client, the session store, and the softphone.

Categories:

  - API: Base path, request timeout, and header names.
  - Storage: Persisted session keys and file names.
  - Softphone: Token refresh lead time and gateway keepalive timing.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the client logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "buttdialer"
	AppVersion = "0.1.0-dev"
)

// # API

const (
	// APIBasePath is the fixed versioned prefix joined to every request path.
	APIBasePath = "/api/v1"

	// DefaultRequestTimeout bounds every outbound API request.
	DefaultRequestTimeout = 10 * time.Second

	// HeaderAuthorization carries the bearer credential.
	HeaderAuthorization = "Authorization"

	// HeaderXRequestID is the correlation header attached to every request.
	HeaderXRequestID = "X-Request-ID"

	// HeaderXForwardedFor and HeaderXRealIP identify the caller behind a proxy.
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderXRealIP       = "X-Real-IP"

	// BearerPrefix is prepended to the credential in the Authorization header.
	BearerPrefix = "Bearer "

	// FallbackErrorMessage is shown when a failed response carries no message.
	FallbackErrorMessage = "An error occurred"

	// NetworkErrorMessage is shown when no response was received at all.
	NetworkErrorMessage = "Network error occurred"
)

// # Storage

const (
	// SessionStorageKey is the fixed key of the persisted session record.
	// Renaming it orphans every session persisted by an earlier version.
	SessionStorageKey = "auth-storage"

	// SessionStorageVersion is written alongside the persisted record.
	SessionStorageVersion = 0

	// RedisKeyPrefix namespaces all dialer keys in a shared Redis.
	RedisKeyPrefix = "dialer:"

	// JournalFileName is the default SQLite file of the call journal.
	JournalFileName = "journal.db"

	// WatchDebounce coalesces bursts of file events on the session file.
	WatchDebounce = 100 * time.Millisecond
)

// # Softphone

const (
	// TokenWillExpireLead is how long before a voice token's expiry the
	// transport raises the token-will-expire event.
	TokenWillExpireLead = 10 * time.Second

	// GatewayPingInterval is the keepalive period on the gateway socket.
	GatewayPingInterval = 30 * time.Second

	// GatewayReadDeadline is the read deadline refreshed on every pong.
	GatewayReadDeadline = 60 * time.Second

	// GatewayWriteDeadline bounds every write to the gateway socket.
	GatewayWriteDeadline = 10 * time.Second

	// GatewayDialTimeout bounds the initial WebSocket handshake.
	GatewayDialTimeout = 10 * time.Second

	// CallPlacementTimeout bounds the wait for the gateway to create a call.
	CallPlacementTimeout = 30 * time.Second

	// RecentCallsLimit is the default number of journal entries shown.
	RecentCallsLimit = 10

	// JournalWriteTimeout bounds a single journal write.
	JournalWriteTimeout = 5 * time.Second
)

// # Startup

const (
	// StartupTimeout bounds the dependency connections made at startup.
	StartupTimeout = 30 * time.Second
)

