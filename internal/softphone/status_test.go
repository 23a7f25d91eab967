// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package softphone_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
)

/*
TestTransition verifies the status table without any transport.
*/
func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		current softphone.Status
		event   softphone.Event
		want    softphone.Effect
	}{
		{"accept_outbound", softphone.StatusConnecting, softphone.EventAccept, softphone.Effect{Status: softphone.StatusConnected}},
		{"accept_inbound", softphone.StatusIncoming, softphone.EventAccept, softphone.Effect{Status: softphone.StatusConnected}},
		{"disconnect", softphone.StatusConnected, softphone.EventDisconnect, softphone.Effect{Status: softphone.StatusReady, ClearCall: true}},
		{"cancel", softphone.StatusIncoming, softphone.EventCancel, softphone.Effect{Status: softphone.StatusReady, ClearCall: true}},
		{"reject", softphone.StatusConnecting, softphone.EventReject, softphone.Effect{Status: softphone.StatusReady, ClearCall: true}},
		{"call_error", softphone.StatusConnected, softphone.EventCallError, softphone.Effect{Status: softphone.StatusError, ClearCall: true}},
		{"registered_idle", softphone.StatusError, softphone.EventRegistered, softphone.Effect{Status: softphone.StatusReady}},
		{"registered_mid_call", softphone.StatusConnected, softphone.EventRegistered, softphone.Effect{Status: softphone.StatusConnected}},
		{"device_error", softphone.StatusConnected, softphone.EventDeviceError, softphone.Effect{Status: softphone.StatusError, ClearCall: true}},
		{"incoming", softphone.StatusReady, softphone.EventIncoming, softphone.Effect{Status: softphone.StatusIncoming, TrackCall: true}},
		{"token_will_expire", softphone.StatusConnected, softphone.EventTokenWillExpire, softphone.Effect{Status: softphone.StatusConnected}},
		{"unregistered", softphone.StatusReady, softphone.EventUnregistered, softphone.Effect{Status: softphone.StatusReady}},
		{"disconnected_is_terminal", softphone.StatusDisconnected, softphone.EventRegistered, softphone.Effect{Status: softphone.StatusDisconnected}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, softphone.Transition(tt.current, tt.event))
		})
	}
}

/*
TestStatus_HasCall verifies which statuses carry an active call.
*/
func TestStatus_HasCall(t *testing.T) {
	withCall := map[softphone.Status]bool{
		softphone.StatusReady:        false,
		softphone.StatusConnecting:   true,
		softphone.StatusIncoming:     true,
		softphone.StatusConnected:    true,
		softphone.StatusError:        false,
		softphone.StatusDisconnected: false,
	}
	for status, want := range withCall {
		assert.Equal(t, want, status.HasCall(), status)
	}
}
