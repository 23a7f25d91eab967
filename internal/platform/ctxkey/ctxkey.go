// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Package ctxkey defines typed context keys used by the API client and the softphone.
//
// # Safety
//
// Using a private, unexported type for keys prevents collisions with third-party
// packages that might also use context for storage.
package ctxkey

// key is an unexported type used for context keys to ensure type safety.
type key string

const (
	// KeyRequestID is the context key for the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyLogger is the context key for the per-operation [*log/slog.Logger].
	KeyLogger key = "logger"

	// KeyClaims is the context key for verified bearer claims on the
	// fixture backend.
	KeyClaims key = "claims"
)
