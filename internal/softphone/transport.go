// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package softphone

import "context"

// Transport is the voice capability the adapter drives: device registration
// plus call signaling and media. Implementations wrap a vendor SDK or a
// gateway that hosts one.
type Transport interface {
	// NewDevice constructs an unregistered device authorised by token.
	NewDevice(ctx context.Context, token string, opts DeviceOptions) (Device, error)
}

// DeviceOptions tunes a new [Device].
type DeviceOptions struct {
	// AllowIncomingWhileBusy lets a second inbound call ring during a call.
	AllowIncomingWhileBusy bool
}

// DeviceState is the registration state of a [Device].
type DeviceState string

const (
	DeviceUnregistered DeviceState = "unregistered"
	DeviceRegistering  DeviceState = "registering"
	DeviceRegistered   DeviceState = "registered"
	DeviceDestroyed    DeviceState = "destroyed"
)

// DeviceEvent is raised by a [Device].
//
// Call is set for [EventIncoming]; Err for [EventDeviceError].
type DeviceEvent struct {
	Type Event
	Call Call
	Err  error
}

// CallEvent is raised by a [Call]. Err is set for [EventCallError].
type CallEvent struct {
	Type Event
	Err  error
}

// ConnectParams describes an outbound call.
type ConnectParams struct {
	To string
}

// Device is a registered endpoint able to place and receive calls.
//
// # Event Delivery
//
// Events are delivered one at a time, in the order the transport produced
// them, from a single goroutine per device.
type Device interface {
	OnEvent(handler func(DeviceEvent))
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
	Destroy()
	UpdateToken(token string) error
	Connect(ctx context.Context, params ConnectParams) (Call, error)
	State() DeviceState
}

// Direction tells who placed a call.
type Direction string

const (
	DirectionOutbound Direction = "outbound"
	DirectionInbound  Direction = "inbound"
)

// Call is one voice call.
//
// Events raised before OnEvent is called are held and delivered, in order,
// once a handler is set.
type Call interface {
	ID() string
	Direction() Direction
	// Remote is the other party's number.
	Remote() string

	OnEvent(handler func(CallEvent))
	Accept() error
	Reject() error
	Disconnect() error
	Mute(muted bool) error
	IsMuted() bool
	// Status is the transport's own call status (pending, ringing, open, closed).
	Status() string
}
