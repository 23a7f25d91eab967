// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/apperr"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/ctxkey"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/respond"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify tokens in middleware.
type TokenVerifier interface {
	Verify(tokenString string) (*sec.VoiceClaims, error)
}

// RequireBearer rejects requests without a valid bearer token with 401 and
// injects the verified claims into the request context.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. Verify the token via [TokenVerifier].
//  3. Inject [*sec.VoiceClaims] into the request context for downstream use.
func RequireBearer(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			authHeader := request.Header.Get("Authorization")

			// ── 1. Format Validation ──────────────────────────────────────────
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				respond.Error(writer, request, apperr.Unauthorized("Not authenticated"))
				return
			}

			// ── 2. Token Verification ─────────────────────────────────────────
			claims, err := verifier.Verify(parts[1])
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Could not validate credentials"))
				return
			}

			// ── 3. Context Injection ──────────────────────────────────────────
			ctx := context.WithValue(request.Context(), ctxkey.KeyClaims, claims)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// GetClaims retrieves the [*sec.VoiceClaims] from the [context.Context].
//
// # Returns
//   - A pointer to [*sec.VoiceClaims] if the request is authenticated.
//   - nil otherwise.
func GetClaims(ctx context.Context) *sec.VoiceClaims {
	claims, ok := ctx.Value(ctxkey.KeyClaims).(*sec.VoiceClaims)
	if !ok {
		return nil
	}
	return claims
}
