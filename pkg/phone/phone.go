// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Package phone normalises user-entered telephone numbers before dialing.
//
// # Usage
//
// Numbers typed into the dial pad or pasted from contact cards arrive with
// spaces, dashes, parentheses, and sometimes full-width digits from CJK input
// methods. [Normalize] reduces them to the compact form the voice gateway
// expects (e.g. "+15551234567").
package phone

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// separators are the formatting characters dropped during normalisation.
const separators = " -.()/ "

// Normalize converts an arbitrary user-entered number into its compact form.
//
// # Transformation Pipeline
//
// 1. Folds full-width characters to their ASCII equivalents (０-９, ＋).
// 2. Trims surrounding whitespace.
// 3. Drops formatting separators and inner whitespace.
// 4. Converts a leading international "00" prefix to "+".
//
// Letters and other symbols are preserved so that validation can reject them.
func Normalize(s string) string {
	// 1. Full-width → half-width
	result := width.Narrow.String(s)

	// 2. Surrounding whitespace
	result = strings.TrimSpace(result)

	// 3. Separators
	result = strings.Map(func(r rune) rune {
		if strings.ContainsRune(separators, r) || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, result)

	// 4. International prefix
	if strings.HasPrefix(result, "00") {
		result = "+" + result[2:]
	}

	return result
}
