// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Package softphone turns a voice transport's device and call events into a
// small call-session status and exposes imperative call controls.
//
// # Architecture
//
//   - status.go: the [Status] enum and the pure [Transition] table.
//   - transport.go: the [Transport] capability the adapter drives.
//   - adapter.go: [Adapter], which applies transitions and runs side effects.
//
// At most one call is active at a time; there is no call waiting.
package softphone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/FarisAlahmad714/Buttdialer/internal/notify"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/validate"
	"github.com/FarisAlahmad714/Buttdialer/pkg/phone"
)

// Call-setup errors returned by [Adapter.MakeCall] and [Adapter.Initialize].
var (
	ErrAlreadyInitialized = errors.New("softphone: already initialized")
	ErrDeviceNotReady     = errors.New("softphone: device not initialized")
	ErrCallInProgress     = errors.New("softphone: already on a call")
)

// Notification texts.
const (
	msgConnected     = "Softphone connected"
	msgConnectFailed = "Failed to connect softphone"
	msgDeviceError   = "Softphone error occurred"
	msgNumberMissing = "Please enter a phone number"
	msgCallInitiated = "Call initiated"
	msgCallFailed    = "Failed to make call"
	msgIncomingCall  = "Incoming call from "
)

// StatusFunc receives every status change. call is the call the change
// concerns, or nil.
type StatusFunc func(status Status, call Call)

// TokenFunc fetches a fresh voice access token.
type TokenFunc func(ctx context.Context) (string, error)

// CallSession is a snapshot of the adapter's state.
type CallSession struct {
	Status     Status
	ActiveCall Call
	Muted      bool
}

// statusChange is a committed status waiting for its callback.
type statusChange struct {
	status   Status
	call     Call
	callback StatusFunc
}

// Adapter is the call-session adapter.
//
// # Concurrency
//
// Adapter is safe for concurrent use. A status is committed together with
// the active call change that causes it, under one lock. Callbacks run
// afterwards, outside the lock and in commit order, so a callback may call
// back into the adapter.
type Adapter struct {
	transport Transport
	tokens    TokenFunc
	notifier  notify.Notifier
	logger    *slog.Logger

	mu         sync.Mutex
	device     Device
	active     Call
	placing    bool
	status     Status
	onStatus   StatusFunc
	cancel     context.CancelFunc
	lifetime   context.Context
	pending    []statusChange
	delivering bool
}

// NewAdapter creates an adapter that is not yet initialized.
func NewAdapter(transport Transport, tokens TokenFunc, notifier notify.Notifier, logger *slog.Logger) *Adapter {
	if notifier == nil {
		notifier = notify.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		transport: transport,
		tokens:    tokens,
		notifier:  notifier,
		logger:    logger,
		status:    StatusDisconnected,
	}
}

// # Lifecycle

// Initialize fetches a voice token, builds and registers a device, and
// reports [StatusReady] on success or [StatusError] on failure.
//
// # Returns
//   - [ErrAlreadyInitialized] if a device already exists. Call [Adapter.Disconnect] first.
//   - The token, construction, or registration error after reporting [StatusError].
func (adapter *Adapter) Initialize(ctx context.Context, onStatusChange StatusFunc) error {
	adapter.mu.Lock()
	if adapter.device != nil {
		adapter.mu.Unlock()
		return ErrAlreadyInitialized
	}
	adapter.onStatus = onStatusChange
	adapter.status = ""
	lifetime, cancel := context.WithCancel(context.WithoutCancel(ctx))
	adapter.lifetime, adapter.cancel = lifetime, cancel
	adapter.mu.Unlock()

	device, err := adapter.connectDevice(ctx)
	if err != nil {
		cancel()
		adapter.logger.ErrorContext(ctx, "softphone_initialize_failed", slog.Any("error", err))
		adapter.notifier.Error(msgConnectFailed)
		adapter.report(StatusError, nil)
		return fmt.Errorf("softphone_initialize_failed: %w", err)
	}

	adapter.logger.InfoContext(ctx, "softphone_initialized")
	adapter.notifier.Success(msgConnected)
	adapter.mu.Lock()
	// Skipped when disconnected while registering, or when the registered
	// event already settled the status.
	if adapter.device == device && adapter.status == "" {
		adapter.commitLocked(StatusReady, nil, false)
	}
	adapter.mu.Unlock()
	adapter.deliver()
	return nil
}

// connectDevice runs the token fetch, construction and registration steps.
func (adapter *Adapter) connectDevice(ctx context.Context) (Device, error) {
	token, err := adapter.tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("voice token: %w", err)
	}

	device, err := adapter.transport.NewDevice(ctx, token, DeviceOptions{AllowIncomingWhileBusy: false})
	if err != nil {
		return nil, fmt.Errorf("new device: %w", err)
	}

	adapter.mu.Lock()
	adapter.device = device
	adapter.mu.Unlock()
	device.OnEvent(adapter.deviceHandler(device))

	if err := device.Register(ctx); err != nil {
		adapter.mu.Lock()
		if adapter.device == device {
			adapter.device = nil
		}
		adapter.mu.Unlock()
		device.Destroy()
		return nil, fmt.Errorf("register: %w", err)
	}
	return device, nil
}

// Disconnect unregisters and destroys the device, forgets the active call,
// and reports [StatusDisconnected], even when already disconnected. The
// adapter needs a new [Adapter.Initialize] to be used again.
func (adapter *Adapter) Disconnect(ctx context.Context) {
	adapter.mu.Lock()
	device := adapter.device
	adapter.device = nil
	adapter.active = nil
	adapter.placing = false
	if adapter.cancel != nil {
		adapter.cancel()
		adapter.cancel = nil
	}
	adapter.commitLocked(StatusDisconnected, nil, true)
	adapter.mu.Unlock()

	if device != nil {
		if err := device.Unregister(ctx); err != nil {
			adapter.logger.WarnContext(ctx, "softphone_unregister_failed", slog.Any("error", err))
		}
		device.Destroy()
	}
	adapter.deliver()
}

// # Call Control

// MakeCall places an outbound call to number and reports [StatusConnecting].
//
// Only E.164 telephone numbers are dialled; vendor client identities and
// short codes are refused. Success and failure raise a notification.
//
// # Returns
//   - A validation error if number is empty or not a dialable E.164 number.
//   - [ErrDeviceNotReady] if no device is registered.
//   - [ErrCallInProgress] if a call is already active.
//   - The transport's placement error. Status is left unchanged.
func (adapter *Adapter) MakeCall(ctx context.Context, number string) (Call, error) {
	call, err := adapter.placeCall(ctx, number)
	if err != nil {
		if strings.TrimSpace(number) == "" {
			adapter.notifier.Error(msgNumberMissing)
		} else {
			adapter.notifier.Error(msgCallFailed)
		}
		return nil, err
	}
	adapter.notifier.Success(msgCallInitiated)
	return call, nil
}

func (adapter *Adapter) placeCall(ctx context.Context, number string) (Call, error) {
	number = phone.Normalize(number)
	if err := (&validate.Validator{}).Required("to", number).Phone("to", number).Err(); err != nil {
		return nil, err
	}

	adapter.mu.Lock()
	device := adapter.device
	switch {
	case device == nil || device.State() != DeviceRegistered:
		adapter.mu.Unlock()
		return nil, ErrDeviceNotReady
	case adapter.active != nil || adapter.placing:
		adapter.mu.Unlock()
		return nil, ErrCallInProgress
	}
	adapter.placing = true
	adapter.mu.Unlock()

	call, err := device.Connect(ctx, ConnectParams{To: number})

	adapter.mu.Lock()
	adapter.placing = false
	if err == nil && adapter.device != device {
		// Disconnected while placing.
		err = ErrDeviceNotReady
	}
	if err != nil {
		adapter.mu.Unlock()
		if call != nil {
			_ = call.Disconnect()
		}
		adapter.logger.WarnContext(ctx, "softphone_place_call_failed", slog.Any("error", err))
		return nil, fmt.Errorf("softphone_place_call_failed: %w", err)
	}
	adapter.active = call
	adapter.commitLocked(StatusConnecting, call, false)
	adapter.mu.Unlock()

	adapter.logger.InfoContext(ctx, "softphone_call_placed",
		slog.String("call_id", call.ID()),
		slog.String("to", number),
	)
	adapter.deliver()
	call.OnEvent(adapter.callHandler(call))
	return call, nil
}

// AcceptCall answers the active call. No-op without one.
func (adapter *Adapter) AcceptCall() error {
	return adapter.withActive(func(call Call) error { return call.Accept() })
}

// RejectCall declines the active call. No-op without one.
func (adapter *Adapter) RejectCall() error {
	return adapter.withActive(func(call Call) error { return call.Reject() })
}

// Hangup ends the active call. No-op without one.
func (adapter *Adapter) Hangup() error {
	return adapter.withActive(func(call Call) error { return call.Disconnect() })
}

// Mute mutes the active call. No-op without one.
func (adapter *Adapter) Mute() error {
	return adapter.withActive(func(call Call) error { return call.Mute(true) })
}

// Unmute unmutes the active call. No-op without one.
func (adapter *Adapter) Unmute() error {
	return adapter.withActive(func(call Call) error { return call.Mute(false) })
}

func (adapter *Adapter) withActive(action func(Call) error) error {
	adapter.mu.Lock()
	call := adapter.active
	adapter.mu.Unlock()

	if call == nil {
		return nil
	}
	return action(call)
}

// # Queries

// Status returns the last reported status.
func (adapter *Adapter) Status() Status {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	return adapter.status
}

// Session returns a snapshot of the call session.
func (adapter *Adapter) Session() CallSession {
	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	session := CallSession{Status: adapter.status, ActiveCall: adapter.active}
	if adapter.active != nil {
		session.Muted = adapter.active.IsMuted()
	}
	return session
}

// IsMuted reports whether the active call is muted.
func (adapter *Adapter) IsMuted() bool {
	return adapter.Session().Muted
}

// CallStatus returns the active call's transport status, or "ready".
func (adapter *Adapter) CallStatus() string {
	adapter.mu.Lock()
	call := adapter.active
	adapter.mu.Unlock()

	if call == nil {
		return string(StatusReady)
	}
	return call.Status()
}

// IsConnected reports whether the device is registered.
func (adapter *Adapter) IsConnected() bool {
	adapter.mu.Lock()
	device := adapter.device
	adapter.mu.Unlock()
	return device != nil && device.State() == DeviceRegistered
}

// # Event Handling

// deviceHandler applies device-level events raised by device. Events of a
// device that is no longer current are ignored.
func (adapter *Adapter) deviceHandler(device Device) func(DeviceEvent) {
	return func(event DeviceEvent) {
		adapter.mu.Lock()
		current := adapter.device == device
		adapter.mu.Unlock()
		if current {
			adapter.handleDeviceEvent(event)
		}
	}
}

// handleDeviceEvent applies one device-level event.
func (adapter *Adapter) handleDeviceEvent(event DeviceEvent) {
	switch event.Type {
	case EventTokenWillExpire:
		adapter.mu.Lock()
		lifetime := adapter.lifetime
		adapter.mu.Unlock()
		go adapter.refreshToken(lifetime)
		return

	case EventIncoming:
		if event.Call == nil {
			return
		}
		adapter.mu.Lock()
		busy := adapter.active != nil || adapter.placing || adapter.device == nil
		if !busy {
			adapter.active = event.Call
			adapter.commitLocked(StatusIncoming, event.Call, false)
		}
		adapter.mu.Unlock()

		if busy {
			adapter.logger.Info("softphone_incoming_rejected_busy", slog.String("call_id", event.Call.ID()))
			_ = event.Call.Reject()
			return
		}
		adapter.logger.Info("softphone_incoming_call",
			slog.String("call_id", event.Call.ID()),
			slog.String("from", event.Call.Remote()),
		)
		adapter.notifier.Info(msgIncomingCall + event.Call.Remote())
		adapter.deliver()
		event.Call.OnEvent(adapter.callHandler(event.Call))
		return

	case EventDeviceError:
		adapter.logger.Error("softphone_device_error", slog.Any("error", event.Err))
		adapter.notifier.Error(msgDeviceError)

	case EventUnregistered:
		adapter.logger.Info("softphone_device_unregistered")
	}

	adapter.mu.Lock()
	if adapter.device == nil {
		adapter.mu.Unlock()
		return
	}
	current := adapter.status
	if current == "" {
		// Still initializing; registration counts as ready.
		current = StatusReady
	}
	effect := Transition(current, event.Type)
	if effect.ClearCall {
		adapter.active = nil
	}
	adapter.commitLocked(effect.Status, nil, false)
	adapter.mu.Unlock()

	adapter.deliver()
}

// callHandler applies call-level events for call. Events of a call that is no
// longer active are ignored.
func (adapter *Adapter) callHandler(call Call) func(CallEvent) {
	return func(event CallEvent) {
		adapter.mu.Lock()
		if adapter.active != call {
			adapter.mu.Unlock()
			return
		}
		effect := Transition(adapter.status, event.Type)
		if effect.ClearCall {
			adapter.active = nil
		}
		adapter.commitLocked(effect.Status, call, false)
		adapter.mu.Unlock()

		if event.Type == EventCallError {
			adapter.logger.Warn("softphone_call_error", slog.String("call_id", call.ID()), slog.Any("error", event.Err))
		} else {
			adapter.logger.Debug("softphone_call_event", slog.String("call_id", call.ID()), slog.String("event", string(event.Type)))
		}
		adapter.deliver()
	}
}

// refreshToken replaces the device token. Failures are logged and ignored;
// the device keeps its current token until it expires.
func (adapter *Adapter) refreshToken(ctx context.Context) {
	token, err := adapter.tokens(ctx)
	if err != nil {
		adapter.logger.WarnContext(ctx, "voice_token_refresh_failed", slog.Any("error", err))
		return
	}

	adapter.mu.Lock()
	device := adapter.device
	adapter.mu.Unlock()
	if device == nil {
		return
	}

	if err := device.UpdateToken(token); err != nil {
		adapter.logger.WarnContext(ctx, "voice_token_refresh_failed", slog.Any("error", err))
		return
	}
	adapter.logger.DebugContext(ctx, "voice_token_refreshed")
}

// report commits status and delivers the callback.
func (adapter *Adapter) report(status Status, call Call) {
	adapter.mu.Lock()
	adapter.commitLocked(status, call, false)
	adapter.mu.Unlock()
	adapter.deliver()
}

// commitLocked records status and queues its callback when the status
// changed, or unconditionally with force. The caller holds mu and calls
// [Adapter.deliver] after releasing it.
func (adapter *Adapter) commitLocked(status Status, call Call, force bool) {
	if adapter.status == status && !force {
		return
	}
	adapter.status = status
	if adapter.onStatus != nil {
		adapter.pending = append(adapter.pending, statusChange{status: status, call: call, callback: adapter.onStatus})
	}
}

// deliver runs queued callbacks in commit order. One goroutine delivers at
// a time; changes committed meanwhile, including from inside a callback, are
// picked up by the same loop.
func (adapter *Adapter) deliver() {
	adapter.mu.Lock()
	if adapter.delivering {
		adapter.mu.Unlock()
		return
	}
	adapter.delivering = true
	for len(adapter.pending) > 0 {
		change := adapter.pending[0]
		adapter.pending = adapter.pending[1:]
		adapter.mu.Unlock()
		change.callback(change.status, change.call)
		adapter.mu.Lock()
	}
	adapter.pending = nil
	adapter.delivering = false
	adapter.mu.Unlock()
}
