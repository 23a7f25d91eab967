// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

/*
Package voicegw implements the softphone transport over a WebSocket voice
gateway that hosts the vendor SDK on the agent's behalf.

Architecture:

  - One socket per device, authorised with the voice access token.
  - Commands (device.register, call.connect, ...) are JSON [Message] frames.
  - A read pump feeds a single dispatch goroutine, so device and call
    events reach their handlers one at a time, in socket order.
  - The token-will-expire signal is synthesised locally from the token's
    'exp' claim and re-armed whenever the token is replaced.

Usage:

	transport := voicegw.New(voicegw.Options{URL: cfg.VoiceGatewayURL, Logger: logger})
	adapter := softphone.NewAdapter(transport, tokens, notifier, logger)
*/
package voicegw

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
)

// Options configures a [Transport].
type Options struct {
	// URL is the gateway WebSocket endpoint (ws:// or wss://).
	URL string

	// TokenLead is how long before expiry the token-will-expire event fires.
	// Defaults to [constants.TokenWillExpireLead].
	TokenLead time.Duration

	// Dialer defaults to [websocket.DefaultDialer].
	Dialer *websocket.Dialer

	Logger *slog.Logger
}

// Transport dials one gateway socket per device.
type Transport struct {
	url    string
	lead   time.Duration
	dialer *websocket.Dialer
	logger *slog.Logger
}

var _ softphone.Transport = (*Transport)(nil)

// New creates a gateway transport.
func New(opts Options) *Transport {
	transport := &Transport{
		url:    opts.URL,
		lead:   opts.TokenLead,
		dialer: opts.Dialer,
		logger: opts.Logger,
	}
	if transport.lead <= 0 {
		transport.lead = constants.TokenWillExpireLead
	}
	if transport.dialer == nil {
		transport.dialer = websocket.DefaultDialer
	}
	if transport.logger == nil {
		transport.logger = slog.Default()
	}
	return transport
}

// NewDevice implements [softphone.Transport]. It opens the socket but does
// not register; see [Device.Register].
func (transport *Transport) NewDevice(ctx context.Context, token string, opts softphone.DeviceOptions) (softphone.Device, error) {
	dialCtx, cancel := context.WithTimeout(ctx, constants.GatewayDialTimeout)
	defer cancel()

	header := http.Header{}
	header.Set(constants.HeaderAuthorization, constants.BearerPrefix+token)

	conn, response, err := transport.dialer.DialContext(dialCtx, transport.url, header)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("voicegw_dial_failed: status %d: %w", response.StatusCode, err)
		}
		return nil, fmt.Errorf("voicegw_dial_failed: %w", err)
	}

	device := newDevice(conn, opts, transport.lead, transport.logger)
	device.armExpiry(token)

	go device.writePump()
	go device.readPump()
	go device.dispatchLoop()

	transport.logger.DebugContext(ctx, "voicegw_connected", slog.String("url", transport.url))
	return device, nil
}
