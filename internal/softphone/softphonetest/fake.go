// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

// Package softphonetest provides an in-memory voice transport for tests.
//
// Devices and calls behave like the vendor SDK: local actions (accept, reject,
// disconnect) raise the matching call event, and far-end events are injected
// with [Call.Emit] and [Device.Emit]. Events are dispatched synchronously on
// the caller's goroutine.
package softphonetest

import (
	"context"
	"sync"

	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
	"github.com/FarisAlahmad714/Buttdialer/pkg/uuidv7"
)

// Transport is a fake [softphone.Transport].
type Transport struct {
	// NewDeviceErr, RegisterErr and ConnectErr make the matching step fail.
	NewDeviceErr error
	RegisterErr  error
	ConnectErr   error

	mu      sync.Mutex
	devices []*Device
}

var _ softphone.Transport = (*Transport)(nil)

// NewDevice implements [softphone.Transport].
func (transport *Transport) NewDevice(_ context.Context, token string, opts softphone.DeviceOptions) (softphone.Device, error) {
	transport.mu.Lock()
	defer transport.mu.Unlock()

	if transport.NewDeviceErr != nil {
		return nil, transport.NewDeviceErr
	}
	device := &Device{transport: transport, options: opts, tokens: []string{token}, state: softphone.DeviceUnregistered}
	transport.devices = append(transport.devices, device)
	return device, nil
}

// LastDevice returns the most recently created device, or nil.
func (transport *Transport) LastDevice() *Device {
	transport.mu.Lock()
	defer transport.mu.Unlock()
	if len(transport.devices) == 0 {
		return nil
	}
	return transport.devices[len(transport.devices)-1]
}

// Device is a fake [softphone.Device].
type Device struct {
	transport *Transport
	options   softphone.DeviceOptions

	mu      sync.Mutex
	handler func(softphone.DeviceEvent)
	state   softphone.DeviceState
	tokens  []string
	calls   []*Call
}

// Options returns the options the device was built with.
func (device *Device) Options() softphone.DeviceOptions { return device.options }

// OnEvent implements [softphone.Device].
func (device *Device) OnEvent(handler func(softphone.DeviceEvent)) {
	device.mu.Lock()
	device.handler = handler
	device.mu.Unlock()
}

// Register implements [softphone.Device]. It raises registered on success.
func (device *Device) Register(context.Context) error {
	if err := device.transport.RegisterErr; err != nil {
		return err
	}
	device.setState(softphone.DeviceRegistered)
	device.Emit(softphone.DeviceEvent{Type: softphone.EventRegistered})
	return nil
}

// Unregister implements [softphone.Device].
func (device *Device) Unregister(context.Context) error {
	device.setState(softphone.DeviceUnregistered)
	device.Emit(softphone.DeviceEvent{Type: softphone.EventUnregistered})
	return nil
}

// Destroy implements [softphone.Device].
func (device *Device) Destroy() {
	device.setState(softphone.DeviceDestroyed)
}

// UpdateToken implements [softphone.Device].
func (device *Device) UpdateToken(token string) error {
	device.mu.Lock()
	defer device.mu.Unlock()
	device.tokens = append(device.tokens, token)
	return nil
}

// Tokens returns every token the device was given, oldest first.
func (device *Device) Tokens() []string {
	device.mu.Lock()
	defer device.mu.Unlock()
	return append([]string(nil), device.tokens...)
}

// Connect implements [softphone.Device].
func (device *Device) Connect(_ context.Context, params softphone.ConnectParams) (softphone.Call, error) {
	if err := device.transport.ConnectErr; err != nil {
		return nil, err
	}
	call := NewCall(softphone.DirectionOutbound, params.To)
	call.status = "connecting"

	device.mu.Lock()
	device.calls = append(device.calls, call)
	device.mu.Unlock()
	return call, nil
}

// Calls returns the outbound calls placed on this device.
func (device *Device) Calls() []*Call {
	device.mu.Lock()
	defer device.mu.Unlock()
	return append([]*Call(nil), device.calls...)
}

// State implements [softphone.Device].
func (device *Device) State() softphone.DeviceState {
	device.mu.Lock()
	defer device.mu.Unlock()
	return device.state
}

// Ring delivers an inbound call from number and returns it.
func (device *Device) Ring(from string) *Call {
	call := NewCall(softphone.DirectionInbound, from)
	call.status = "pending"
	device.Emit(softphone.DeviceEvent{Type: softphone.EventIncoming, Call: call})
	return call
}

// Emit delivers event to the device handler.
func (device *Device) Emit(event softphone.DeviceEvent) {
	device.mu.Lock()
	handler := device.handler
	device.mu.Unlock()
	if handler != nil {
		handler(event)
	}
}

func (device *Device) setState(state softphone.DeviceState) {
	device.mu.Lock()
	device.state = state
	device.mu.Unlock()
}

// Call is a fake [softphone.Call].
type Call struct {
	id        string
	direction softphone.Direction
	remote    string

	mu       sync.Mutex
	handler  func(softphone.CallEvent)
	pending  []softphone.CallEvent
	draining bool
	muted    bool
	status   string
	actions  []string
}

var _ softphone.Call = (*Call)(nil)

// NewCall creates a call that is not attached to any device.
func NewCall(direction softphone.Direction, remote string) *Call {
	return &Call{id: uuidv7.New(), direction: direction, remote: remote, status: "pending"}
}

// ID implements [softphone.Call].
func (call *Call) ID() string { return call.id }

// Direction implements [softphone.Call].
func (call *Call) Direction() softphone.Direction { return call.direction }

// Remote implements [softphone.Call].
func (call *Call) Remote() string { return call.remote }

// OnEvent implements [softphone.Call]. Held events are flushed to handler.
func (call *Call) OnEvent(handler func(softphone.CallEvent)) {
	call.mu.Lock()
	call.handler = handler
	call.mu.Unlock()
	call.drain()
}

// Accept implements [softphone.Call].
func (call *Call) Accept() error {
	call.act("accept", "open")
	call.Emit(softphone.CallEvent{Type: softphone.EventAccept})
	return nil
}

// Reject implements [softphone.Call].
func (call *Call) Reject() error {
	call.act("reject", "closed")
	call.Emit(softphone.CallEvent{Type: softphone.EventReject})
	return nil
}

// Disconnect implements [softphone.Call].
func (call *Call) Disconnect() error {
	call.act("disconnect", "closed")
	call.Emit(softphone.CallEvent{Type: softphone.EventDisconnect})
	return nil
}

// Mute implements [softphone.Call].
func (call *Call) Mute(muted bool) error {
	call.mu.Lock()
	defer call.mu.Unlock()
	call.muted = muted
	if muted {
		call.actions = append(call.actions, "mute")
	} else {
		call.actions = append(call.actions, "unmute")
	}
	return nil
}

// IsMuted implements [softphone.Call].
func (call *Call) IsMuted() bool {
	call.mu.Lock()
	defer call.mu.Unlock()
	return call.muted
}

// Status implements [softphone.Call].
func (call *Call) Status() string {
	call.mu.Lock()
	defer call.mu.Unlock()
	return call.status
}

// Actions returns the local actions taken on the call, in order.
func (call *Call) Actions() []string {
	call.mu.Lock()
	defer call.mu.Unlock()
	return append([]string(nil), call.actions...)
}

// Emit delivers a far-end event, or holds it until a handler is set.
func (call *Call) Emit(event softphone.CallEvent) {
	call.mu.Lock()
	switch event.Type {
	case softphone.EventAccept:
		call.status = "open"
	case softphone.EventDisconnect, softphone.EventCancel, softphone.EventReject, softphone.EventCallError:
		call.status = "closed"
	}
	call.pending = append(call.pending, event)
	call.mu.Unlock()
	call.drain()
}

// drain hands pending events to the handler in emit order. One goroutine
// drains at a time; events emitted meanwhile, even from inside the handler,
// are delivered by the same loop.
func (call *Call) drain() {
	call.mu.Lock()
	if call.handler == nil || call.draining {
		call.mu.Unlock()
		return
	}
	call.draining = true
	for len(call.pending) > 0 {
		event := call.pending[0]
		call.pending = call.pending[1:]
		handler := call.handler
		call.mu.Unlock()
		handler(event)
		call.mu.Lock()
	}
	call.draining = false
	call.mu.Unlock()
}

func (call *Call) act(action, status string) {
	call.mu.Lock()
	defer call.mu.Unlock()
	call.actions = append(call.actions, action)
	call.status = status
}
