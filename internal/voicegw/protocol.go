// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package voicegw

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope for every frame on the gateway socket.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a message with the current timestamp.
func NewMessage(msgType string, payload any) (*Message, error) {
	message := &Message{Type: msgType, Timestamp: time.Now().UTC()}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("voicegw: marshal payload: %w", err)
		}
		message.Payload = data
	}
	return message, nil
}

// Decode unmarshals the payload into out.
func (message *Message) Decode(out any) error {
	if len(message.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(message.Payload, out); err != nil {
		return fmt.Errorf("voicegw: decode %s: %w", message.Type, err)
	}
	return nil
}

// Client to gateway commands.
const (
	TypeDeviceRegister    = "device.register"
	TypeDeviceUnregister  = "device.unregister"
	TypeDeviceUpdateToken = "device.update_token"
	TypeCallConnect       = "call.connect"
	TypeCallAccept        = "call.accept"
	TypeCallReject        = "call.reject"
	TypeCallDisconnect    = "call.disconnect"
	TypeCallMute          = "call.mute"
)

// Gateway to client events. Call lifecycle events reuse the command names
// (call.accept, call.reject, call.disconnect) plus the two below.
const (
	TypeDeviceRegistered   = "device.registered"
	TypeDeviceUnregistered = "device.unregistered"
	TypeDeviceError        = "device.error"
	TypeDeviceIncoming     = "device.incoming"
	TypeCallCreated        = "call.created"
	TypeCallFailed         = "call.failed"
	TypeCallCancel         = "call.cancel"
	TypeCallError          = "call.error"

	// typeTokenWillExpire is raised locally, never sent by the gateway.
	typeTokenWillExpire = "device.token_will_expire"
)

// # Payloads

type RegisterPayload struct {
	AllowIncomingWhileBusy bool `json:"allow_incoming_while_busy"`
}

type UpdateTokenPayload struct {
	Token string `json:"token"`
}

type ConnectPayload struct {
	RequestID string `json:"request_id"`
	To        string `json:"to"`
}

type CallIDPayload struct {
	CallID string `json:"call_id"`
}

type MutePayload struct {
	CallID string `json:"call_id"`
	Muted  bool   `json:"muted"`
}

type ErrorPayload struct {
	CallID    string `json:"call_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Message   string `json:"message"`
}

type IncomingPayload struct {
	CallID string `json:"call_id"`
	From   string `json:"from"`
}

type CreatedPayload struct {
	RequestID string `json:"request_id"`
	CallID    string `json:"call_id"`
}
