// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

/*
TestConvertToPgx5DSN verifies the scheme rewrite required by golang-migrate.
*/
func TestConvertToPgx5DSN(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"postgres://u:p@localhost:5432/dialer", "pgx5://u:p@localhost:5432/dialer"},
		{"postgresql://u:p@localhost/dialer", "pgx5://u:p@localhost/dialer"},
		{"pgx5://localhost/dialer", "pgx5://localhost/dialer"},
		{"host=localhost dbname=dialer", "host=localhost dbname=dialer"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, convertToPgx5DSN(tt.input))
		})
	}
}
