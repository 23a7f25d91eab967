// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Package uuidv7 wraps google/uuid to generate time-ordered UUIDv7 values.
//
// It is used for X-Request-ID correlation values and call journal keys, where
// time ordering keeps recent entries adjacent in the index.
package uuidv7

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
//
// # Safety
//
// It falls back to a random UUIDv4 if the clock sequence cannot be read.
func New() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
