// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

/*
Package apiclient is the single request surface to the dialer backend.

Every request goes through [Client.Do], which:

  - joins the path onto the fixed API base path,
  - attaches the bearer credential read from the current session,
  - tags the request with an X-Request-ID for log correlation,
  - and runs the response interceptor.

Interceptor:

  - Non-2xx: the message is taken from the body's "detail" (or "error") field,
    falling back to a generic text, and shown as an error notification.
  - 401: the unauthorized handler runs unconditionally (clear local state,
    send the user back to login).
  - No response at all: a generic network error notification.

All failures are returned as [*apperr.AppError].
*/
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FarisAlahmad714/Buttdialer/internal/notify"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/apperr"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/ctxutil"
	"github.com/FarisAlahmad714/Buttdialer/pkg/uuidv7"
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 1 << 20

// CredentialSource returns the bearer token for the next request, or "" when
// no session exists. It is consulted on every request.
type CredentialSource func() string

// UnauthorizedHandler is invoked after any response with status 401.
type UnauthorizedHandler func(ctx context.Context)

// Options configures a [Client].
type Options struct {
	// BaseURL is the backend origin, e.g. "http://localhost:8000".
	BaseURL string
	// Timeout bounds every request. Defaults to [constants.DefaultRequestTimeout].
	Timeout time.Duration

	Credentials    CredentialSource
	OnUnauthorized UnauthorizedHandler
	Notifier       notify.Notifier
	Logger         *slog.Logger

	// HTTPClient overrides the transport. Its Timeout is replaced by Timeout.
	HTTPClient *http.Client
}

// Client is the dialer backend API client.
//
// # Concurrency
//
// Client is safe for concurrent use once constructed.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	credentials    CredentialSource
	onUnauthorized UnauthorizedHandler
	notifier       notify.Notifier
	logger         *slog.Logger
}

// New validates opts and builds a [Client].
func New(opts Options) (*Client, error) {
	origin, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base url %q", opts.BaseURL)
	}
	origin.Path += constants.APIBasePath

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}

	httpClient := &http.Client{}
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		httpClient = &copied
	}
	httpClient.Timeout = timeout

	credentials := opts.Credentials
	if credentials == nil {
		credentials = func() string { return "" }
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:        origin,
		httpClient:     httpClient,
		credentials:    credentials,
		onUnauthorized: opts.OnUnauthorized,
		notifier:       notifier,
		logger:         logger,
	}, nil
}

// # Request Building

// NewRequest builds a request for path (relative to the API base path) with
// the credential supplied by token. A nil body sends no payload.
func (client *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body any, token string) (*http.Request, error) {
	endpoint := *client.baseURL
	endpoint.Path = client.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	if query != nil {
		endpoint.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("apiclient_encode_failed: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("apiclient_request_failed: %w", err)
	}

	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
	}

	requestID := ctxutil.GetRequestID(ctx)
	if requestID == "" {
		requestID = uuidv7.New()
	}
	request.Header.Set(constants.HeaderXRequestID, requestID)

	return request, nil
}

// # Execution

// Do sends a request and decodes a 2xx JSON body into out (if non-nil).
func (client *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	request, err := client.NewRequest(ctx, method, path, query, body, client.credentials())
	if err != nil {
		return err
	}

	logger := client.logger.With(
		slog.String("request_id", request.Header.Get(constants.HeaderXRequestID)),
		slog.String("method", method),
		slog.String("path", request.URL.Path),
	)
	started := time.Now()

	response, err := client.httpClient.Do(request)
	if err != nil {
		logger.WarnContext(ctx, "api_request_failed", slog.Any("error", err))
		client.notifier.Error(constants.NetworkErrorMessage)
		return apperr.Network(constants.NetworkErrorMessage, err)
	}
	defer response.Body.Close()

	logger.DebugContext(ctx, "api_request_finished",
		slog.Int("status", response.StatusCode),
		slog.Int64("latency_ms", time.Since(started).Milliseconds()),
	)

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return client.intercept(ctx, logger, response)
	}

	if out == nil || response.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		logger.WarnContext(ctx, "api_decode_failed", slog.Any("error", err))
		return apperr.Decode(response.StatusCode, err)
	}
	return nil
}

// intercept turns a non-2xx response into an [*apperr.AppError] and runs the
// notification and 401 side effects.
func (client *Client) intercept(ctx context.Context, logger *slog.Logger, response *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
	message := extractMessage(raw)

	logger.WarnContext(ctx, "api_request_rejected",
		slog.Int("status", response.StatusCode),
		slog.String("message", message),
	)
	client.notifier.Error(message)

	appErr := apperr.FromStatus(response.StatusCode, message)
	if response.StatusCode == http.StatusUnauthorized && client.onUnauthorized != nil {
		client.onUnauthorized(ctx)
	}
	return appErr
}

// extractMessage reads a human-readable message from an error body.
//
// Recognised shapes:
//   - {"detail": "text"}
//   - {"detail": [{"msg": "text", ...}, ...]} (request validation)
//   - {"error": "text"}
func extractMessage(raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return constants.FallbackErrorMessage
	}

	if len(body.Detail) > 0 {
		var text string
		if err := json.Unmarshal(body.Detail, &text); err == nil && text != "" {
			return text
		}

		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(body.Detail, &items); err == nil {
			messages := make([]string, 0, len(items))
			for _, item := range items {
				if item.Msg != "" {
					messages = append(messages, item.Msg)
				}
			}
			if len(messages) > 0 {
				return strings.Join(messages, "; ")
			}
		}
	}

	if body.Error != "" {
		return body.Error
	}
	return constants.FallbackErrorMessage
}

// IsTimeout reports whether err is a request that ran past the client timeout.
func IsTimeout(err error) bool {
	ae := apperr.As(err)
	if ae == nil || ae.Code != apperr.CodeNetwork {
		return false
	}
	var netErr interface{ Timeout() bool }
	return errors.As(ae.Cause, &netErr) && netErr.Timeout()
}
