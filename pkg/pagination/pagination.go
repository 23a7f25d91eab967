// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Package pagination parses and applies the skip/limit windows used by the
// call history endpoints.
package pagination

import (
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the number of records returned when no limit is given.
	DefaultLimit = 100
	// MaxLimit caps a single page.
	MaxLimit = 500
)

// Window selects records [Skip, Skip+Limit).
type Window struct {
	Skip  int
	Limit int
}

// FromQuery parses "skip" and "limit". Invalid or negative values fall back
// to the defaults; limits above [MaxLimit] are clamped.
func FromQuery(query url.Values) Window {
	window := Window{
		Skip:  parseInt(query.Get("skip"), 0),
		Limit: parseInt(query.Get("limit"), DefaultLimit),
	}
	if window.Limit == 0 {
		window.Limit = DefaultLimit
	}
	if window.Limit > MaxLimit {
		window.Limit = MaxLimit
	}
	return window
}

// Values encodes the window, omitting zero fields.
func (window Window) Values(query url.Values) {
	if window.Skip > 0 {
		query.Set("skip", strconv.Itoa(window.Skip))
	}
	if window.Limit > 0 {
		query.Set("limit", strconv.Itoa(window.Limit))
	}
}

// Apply returns the part of items inside window.
func Apply[T any](items []T, window Window) []T {
	start := min(window.Skip, len(items))
	end := len(items)
	if window.Limit > 0 {
		end = min(start+window.Limit, len(items))
	}
	return items[start:end]
}

func parseInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
