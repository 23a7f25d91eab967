// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

/*
Package apperr defines the centralized error handling framework for the dialer.

It provides a rich error type that bridges the gap between low-level transport
failures and the user-facing messages shown by the shell.

Architecture:

  - AppError: A struct containing a machine-readable Code and a user-facing message.
  - Mapping: Explicit mapping from HTTP status codes to AppError codes.
  - Taxonomy: Authorization, network, validation, and call-setup failures.

Every error that leaves the API client is an [AppError] so callers can branch
on [AppError.Code] or [AppError.HTTPStatus] without parsing strings.
*/
package apperr

import (
	"errors"
	"net/http"
)

// Error codes.
const (
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
	CodeServer       = "SERVER_ERROR"
	CodeNetwork      = "NETWORK_ERROR"
	CodeDecode       = "DECODE_ERROR"
	CodeUnknown      = "UNKNOWN"
)

// AppError is the canonical error type of the dialer client.
//
// It carries the HTTP status code of the failed response (zero when no
// response was received), a machine-readable code, a user-facing message,
// and an optional slice of field-level validation errors.
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "UNAUTHORIZED").
	Code string `json:"code"`
	// Message is a human-readable description shown to the user.
	Message string `json:"error"`
	// HTTPStatus is the response status code, or 0 for transport failures.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for logging only.
	Cause error `json:"-"`
	// Details holds per-field validation errors for VALIDATION_ERROR.
	Details []FieldError `json:"details,omitempty"`
}

// FieldError represents a single field-level validation failure.
type FieldError struct {
	// Field is the JSON field name that failed validation.
	Field string `json:"field"`
	// Message is the human-readable description of the failure.
	Message string `json:"message"`
}

// Error implements the error interface. It returns the user-facing message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// # Response Errors

// FromStatus creates an [AppError] for a non-2xx response.
//
// The code is derived from the status; message is expected to be the text
// extracted from the response body (or the generic fallback).
func FromStatus(status int, message string) *AppError {
	return &AppError{
		Code:       codeForStatus(status),
		Message:    message,
		HTTPStatus: status,
	}
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return FromStatus(http.StatusUnauthorized, msg)
}

// codeForStatus maps an HTTP status code to an error code.
func codeForStatus(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return CodeBadRequest
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusUnprocessableEntity:
		return CodeValidation
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status >= 500:
		return CodeServer
	default:
		return CodeUnknown
	}
}

// # Client Errors

// Network creates an [AppError] for a request that never produced a response.
func Network(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeNetwork,
		Message: message,
		Cause:   cause,
	}
}

// Decode creates an [AppError] for a 2xx response whose body was unreadable.
func Decode(status int, cause error) *AppError {
	return &AppError{
		Code:       CodeDecode,
		Message:    "Unexpected response from server",
		HTTPStatus: status,
		Cause:      cause,
	}
}

// ValidationError creates a local validation [AppError] with optional per-field details.
func ValidationError(msg string, details ...FieldError) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: msg,
		Details: details,
	}
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsUnauthorized reports whether err carries a 401 response.
func IsUnauthorized(err error) bool {
	ae := As(err)
	return ae != nil && ae.HTTPStatus == http.StatusUnauthorized
}
