// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Package sec inspects and mints the JWTs exchanged with the backend.
//
// # Architecture
//
// Voice access tokens are vendor JWTs. The client never verifies their
// signature (it holds no key) but it does read the registered claims to know
// when a replacement must be fetched. Minting is only used by the fixture
// backend in package tests.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoExpiry is returned when a token carries no 'exp' claim.
var ErrNoExpiry = errors.New("sec: token has no expiry")

// VoiceClaims represents the payload of a voice access token.
//
// Only the registered claims and the grant identity are decoded; vendor
// specific grants are ignored.
type VoiceClaims struct {
	jwt.RegisteredClaims

	// Identity is the device identity the grant was issued for (e.g. "agent-7").
	Identity string `json:"identity,omitempty"`
}

// Inspect decodes the claims of tokenString without verifying its signature.
func Inspect(tokenString string) (*VoiceClaims, error) {
	claims := &VoiceClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("sec: malformed token: %w", err)
	}
	return claims, nil
}

// ExpiresAt returns the expiry instant of tokenString.
//
// Returns [ErrNoExpiry] if the token is well-formed but unbounded.
func ExpiresAt(tokenString string) (time.Time, error) {
	claims, err := Inspect(tokenString)
	if err != nil {
		return time.Time{}, err
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// RefreshDelay returns how long to wait, from now, before a replacement for
// tokenString should be fetched so it arrives lead before expiry.
//
// The result is never negative: a token already inside its lead window
// yields zero.
func RefreshDelay(tokenString string, lead time.Duration, now time.Time) (time.Duration, error) {
	expiresAt, err := ExpiresAt(tokenString)
	if err != nil {
		return 0, err
	}
	delay := expiresAt.Add(-lead).Sub(now)
	if delay < 0 {
		delay = 0
	}
	return delay, nil
}

// # Minting

// Signer issues HS256 tokens.
type Signer struct {
	secret []byte
	issuer string
}

// NewSigner creates a Signer for the given shared secret and issuer.
func NewSigner(secret, issuer string) *Signer {
	return &Signer{secret: []byte(secret), issuer: issuer}
}

// Sign creates a token for subject valid for timeToLive.
func (signer *Signer) Sign(subject, identity string, timeToLive time.Duration) (string, error) {
	currentTime := time.Now()
	claims := VoiceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    signer.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		Identity: identity,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(signer.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity of a token issued by this Signer.
func (signer *Signer) Verify(tokenString string) (*VoiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &VoiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return signer.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}

	claims, ok := token.Claims.(*VoiceClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return claims, nil
}
