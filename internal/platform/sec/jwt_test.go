// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package sec_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/sec"
)

/*
TestSigner_RoundTrip verifies that minted tokens can be inspected and verified.
*/
func TestSigner_RoundTrip(t *testing.T) {
	signer := sec.NewSigner("test-secret", "buttdialer.test")

	token, err := signer.Sign("7", "agent-7", time.Hour)
	require.NoError(t, err)

	claims, err := sec.Inspect(token)
	require.NoError(t, err)
	assert.Equal(t, "agent-7", claims.Identity)
	assert.Equal(t, "7", claims.Subject)

	verified, err := signer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "buttdialer.test", verified.Issuer)

	_, err = sec.NewSigner("other-secret", "x").Verify(token)
	assert.Error(t, err)
}

/*
TestRefreshDelay computes the wait before a token enters its lead window.
*/
func TestRefreshDelay(t *testing.T) {
	signer := sec.NewSigner("test-secret", "buttdialer.test")
	token, err := signer.Sign("7", "agent-7", time.Minute)
	require.NoError(t, err)

	expiresAt, err := sec.ExpiresAt(token)
	require.NoError(t, err)

	// 1. Well before expiry
	delay, err := sec.RefreshDelay(token, 10*time.Second, expiresAt.Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 50*time.Second, delay)

	// 2. Already inside the lead window
	delay, err = sec.RefreshDelay(token, 10*time.Second, expiresAt.Add(-time.Second))
	require.NoError(t, err)
	assert.Zero(t, delay)
}

/*
TestExpiresAt_Errors covers malformed and unbounded tokens.
*/
func TestExpiresAt_Errors(t *testing.T) {
	_, err := sec.ExpiresAt("not-a-jwt")
	assert.Error(t, err)

	unbounded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "7"}).
		SignedString([]byte("k"))
	require.NoError(t, err)

	_, err = sec.ExpiresAt(unbounded)
	assert.ErrorIs(t, err, sec.ErrNoExpiry)
}
