// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Package respond provides HTTP response helpers for the fixture backend.
//
// # Architecture
//
// The dialer backend answers with bare JSON resources on success and a
// {"detail": ...} body on failure. These helpers produce exactly that shape
// so the API client's interceptor is exercised against realistic responses.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/apperr"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/ctxutil"
)

// DetailEnvelope is the JSON body of an error response.
type DetailEnvelope struct {
	Detail any `json:"detail"`
}

// ValidationItem is one entry of a request validation failure.
type ValidationItem struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with payload as the body.
func OK(writer http.ResponseWriter, payload any) {
	JSON(writer, http.StatusOK, payload)
}

// Detail writes an error response carrying a plain message.
func Detail(writer http.ResponseWriter, statusCode int, message string) {
	JSON(writer, statusCode, DetailEnvelope{Detail: message})
}

// Error converts any Go error into an error response.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	var appError *apperr.AppError
	if !errors.As(err, &appError) {
		// Unexpected internal error: log full details but hide them from the client.
		ctxutil.GetLogger(request.Context()).ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
		)
		Detail(writer, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if appError.Code == apperr.CodeValidation && len(appError.Details) > 0 {
		items := make([]ValidationItem, 0, len(appError.Details))
		for _, detail := range appError.Details {
			items = append(items, ValidationItem{
				Loc:  []string{"body", detail.Field},
				Msg:  detail.Message,
				Type: "value_error",
			})
		}
		JSON(writer, http.StatusUnprocessableEntity, DetailEnvelope{Detail: items})
		return
	}

	status := appError.HTTPStatus
	switch {
	case status != 0:
	case appError.Code == apperr.CodeValidation:
		status = http.StatusUnprocessableEntity
	default:
		status = http.StatusInternalServerError
	}
	Detail(writer, status, appError.Message)
}
