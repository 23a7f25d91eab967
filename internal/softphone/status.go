// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package softphone

// Status is the call-session state reported to the status callback.
type Status string

const (
	StatusReady        Status = "ready"        // Idle and registered.
	StatusConnecting   Status = "connecting"   // Outbound dial in progress.
	StatusIncoming     Status = "incoming"     // Inbound offer ringing.
	StatusConnected    Status = "connected"    // Media established.
	StatusError        Status = "error"        // Device or call fault.
	StatusDisconnected Status = "disconnected" // Torn down; terminal.
)

// HasCall reports whether s requires an active call.
func (s Status) HasCall() bool {
	switch s {
	case StatusIncoming, StatusConnecting, StatusConnected:
		return true
	default:
		return false
	}
}

// Event is a lifecycle event raised by the voice transport.
type Event string

// Device-level events.
const (
	EventRegistered      Event = "registered"
	EventUnregistered    Event = "unregistered"
	EventDeviceError     Event = "device_error"
	EventIncoming        Event = "incoming"
	EventTokenWillExpire Event = "tokenWillExpire"
)

// Call-level events. Each is terminal for its call except EventAccept.
const (
	EventAccept     Event = "accept"
	EventDisconnect Event = "disconnect"
	EventCancel     Event = "cancel"
	EventReject     Event = "reject"
	EventCallError  Event = "error"
)

// Effect is the outcome of applying an [Event] to a [Status].
type Effect struct {
	// Status is the next status. Equal to the current one when unchanged.
	Status Status
	// ClearCall drops the active call reference.
	ClearCall bool
	// TrackCall records the event's call as the active call.
	TrackCall bool
}

// Transition returns the effect of event on current.
//
// # Table
//
//	accept                       -> connected          (call kept)
//	disconnect | cancel | reject -> ready              (call cleared)
//	error (call)                 -> error              (call cleared)
//	registered                   -> ready              (unless a call is up)
//	device_error                 -> error              (call cleared)
//	incoming                     -> incoming           (call tracked)
//	tokenWillExpire, unregistered: no change
//
// A disconnected session ignores everything; it needs a fresh initialize.
// Transition is pure; the adapter applies the effect.
func Transition(current Status, event Event) Effect {
	if current == StatusDisconnected {
		return Effect{Status: current}
	}

	switch event {
	case EventAccept:
		return Effect{Status: StatusConnected}
	case EventDisconnect, EventCancel, EventReject:
		return Effect{Status: StatusReady, ClearCall: true}
	case EventCallError:
		return Effect{Status: StatusError, ClearCall: true}
	case EventRegistered:
		if current.HasCall() {
			return Effect{Status: current}
		}
		return Effect{Status: StatusReady}
	case EventDeviceError:
		return Effect{Status: StatusError, ClearCall: true}
	case EventIncoming:
		return Effect{Status: StatusIncoming, TrackCall: true}
	default:
		return Effect{Status: current}
	}
}
