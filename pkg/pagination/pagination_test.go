// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package pagination_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FarisAlahmad714/Buttdialer/pkg/pagination"
)

/*
TestFromQuery verifies parsing and clamping of skip/limit.
*/
func TestFromQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  pagination.Window
	}{
		{"defaults", "", pagination.Window{Skip: 0, Limit: pagination.DefaultLimit}},
		{"explicit", "skip=20&limit=10", pagination.Window{Skip: 20, Limit: 10}},
		{"negative", "skip=-1&limit=-5", pagination.Window{Skip: 0, Limit: pagination.DefaultLimit}},
		{"garbage", "skip=x&limit=y", pagination.Window{Skip: 0, Limit: pagination.DefaultLimit}},
		{"zero_limit", "limit=0", pagination.Window{Skip: 0, Limit: pagination.DefaultLimit}},
		{"clamped", "limit=10000", pagination.Window{Skip: 0, Limit: pagination.MaxLimit}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, pagination.FromQuery(query))
		})
	}
}

/*
TestApply verifies windows inside, across and beyond the slice.
*/
func TestApply(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{2, 3}, pagination.Apply(items, pagination.Window{Skip: 1, Limit: 2}))
	assert.Equal(t, []int{4, 5}, pagination.Apply(items, pagination.Window{Skip: 3, Limit: 10}))
	assert.Empty(t, pagination.Apply(items, pagination.Window{Skip: 9, Limit: 2}))
	assert.Equal(t, items, pagination.Apply(items, pagination.Window{}))
}

/*
TestWindow_Values verifies that zero fields are omitted.
*/
func TestWindow_Values(t *testing.T) {
	query := url.Values{}
	pagination.Window{Limit: 25}.Values(query)
	assert.Equal(t, "limit=25", query.Encode())
}
