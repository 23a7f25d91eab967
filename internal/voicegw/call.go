// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package voicegw

import (
	"sync"

	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
)

// Call is a gateway-backed [softphone.Call]. Local actions are sent as
// commands; the resulting events arrive from the gateway.
type Call struct {
	id        string
	direction softphone.Direction
	remote    string
	device    *Device

	// delivering serialises handler calls, including the flush of held events.
	delivering sync.Mutex

	mu      sync.Mutex
	handler func(softphone.CallEvent)
	held    []softphone.CallEvent
	muted   bool
	status  string
}

var _ softphone.Call = (*Call)(nil)

func (call *Call) ID() string                     { return call.id }
func (call *Call) Direction() softphone.Direction { return call.direction }
func (call *Call) Remote() string                 { return call.remote }

// OnEvent implements [softphone.Call].
func (call *Call) OnEvent(handler func(softphone.CallEvent)) {
	call.delivering.Lock()
	defer call.delivering.Unlock()

	call.mu.Lock()
	call.handler = handler
	held := call.held
	call.held = nil
	call.mu.Unlock()

	for _, event := range held {
		handler(event)
	}
}

func (call *Call) Accept() error {
	return call.device.write(TypeCallAccept, CallIDPayload{CallID: call.id})
}

func (call *Call) Reject() error {
	return call.device.write(TypeCallReject, CallIDPayload{CallID: call.id})
}

func (call *Call) Disconnect() error {
	return call.device.write(TypeCallDisconnect, CallIDPayload{CallID: call.id})
}

// Mute implements [softphone.Call]. The local flag flips once the command is
// queued.
func (call *Call) Mute(muted bool) error {
	if err := call.device.write(TypeCallMute, MutePayload{CallID: call.id, Muted: muted}); err != nil {
		return err
	}
	call.mu.Lock()
	call.muted = muted
	call.mu.Unlock()
	return nil
}

func (call *Call) IsMuted() bool {
	call.mu.Lock()
	defer call.mu.Unlock()
	return call.muted
}

func (call *Call) Status() string {
	call.mu.Lock()
	defer call.mu.Unlock()
	return call.status
}

// deliver applies a gateway event, holding it until a handler is set.
func (call *Call) deliver(event softphone.CallEvent) {
	call.delivering.Lock()
	defer call.delivering.Unlock()

	call.mu.Lock()
	switch event.Type {
	case softphone.EventAccept:
		call.status = "open"
	default:
		call.status = "closed"
	}
	handler := call.handler
	if handler == nil {
		call.held = append(call.held, event)
	}
	call.mu.Unlock()

	if handler != nil {
		handler(event)
	}
}
