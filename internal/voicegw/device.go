// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

package voicegw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
	"github.com/FarisAlahmad714/Buttdialer/internal/platform/sec"
	"github.com/FarisAlahmad714/Buttdialer/internal/softphone"
	"github.com/FarisAlahmad714/Buttdialer/pkg/uuidv7"
)

// ErrClosed is returned by operations on a destroyed device or a lost socket.
var ErrClosed = errors.New("voicegw: device closed")

// registerKey is the waiter key of the pending registration.
const registerKey = "register"

type reply struct {
	call *Call
	err  error
}

type waiter struct {
	to    string
	reply chan reply
}

// Device is a gateway-backed [softphone.Device].
type Device struct {
	conn    *websocket.Conn
	options softphone.DeviceOptions
	lead    time.Duration
	logger  *slog.Logger

	send      chan []byte
	inbox     chan *Message
	done      chan struct{}
	closeOnce sync.Once
	lost      chan struct{}
	lostOnce  sync.Once

	// delivering serialises handler calls, including the flush of held events.
	delivering sync.Mutex

	mu      sync.Mutex
	handler func(softphone.DeviceEvent)
	held    []softphone.DeviceEvent
	state   softphone.DeviceState
	calls   map[string]*Call
	waiters map[string]waiter
	expiry  *time.Timer
}

var _ softphone.Device = (*Device)(nil)

func newDevice(conn *websocket.Conn, opts softphone.DeviceOptions, lead time.Duration, logger *slog.Logger) *Device {
	return &Device{
		conn:    conn,
		options: opts,
		lead:    lead,
		logger:  logger,
		send:    make(chan []byte, 64),
		inbox:   make(chan *Message, 64),
		done:    make(chan struct{}),
		lost:    make(chan struct{}),
		state:   softphone.DeviceUnregistered,
		calls:   make(map[string]*Call),
		waiters: make(map[string]waiter),
	}
}

// # Device API

// OnEvent implements [softphone.Device]. Events raised before a handler is
// set are held and flushed to it.
func (device *Device) OnEvent(handler func(softphone.DeviceEvent)) {
	device.delivering.Lock()
	defer device.delivering.Unlock()

	device.mu.Lock()
	device.handler = handler
	held := device.held
	device.held = nil
	device.mu.Unlock()

	for _, event := range held {
		handler(event)
	}
}

// Register implements [softphone.Device]. It blocks until the gateway
// acknowledges the registration or reports an error.
func (device *Device) Register(ctx context.Context) error {
	device.setState(softphone.DeviceRegistering)
	result, err := device.request(ctx, registerKey, "", TypeDeviceRegister, RegisterPayload{
		AllowIncomingWhileBusy: device.options.AllowIncomingWhileBusy,
	})
	if err == nil {
		err = result.err
	}
	if err != nil {
		device.setState(softphone.DeviceUnregistered)
		return fmt.Errorf("voicegw_register_failed: %w", err)
	}
	return nil
}

// Unregister implements [softphone.Device]. The gateway confirms with
// device.unregistered.
func (device *Device) Unregister(context.Context) error {
	return device.write(TypeDeviceUnregister, nil)
}

// Destroy implements [softphone.Device]. It closes the socket; no event is
// raised afterwards.
func (device *Device) Destroy() {
	device.closeOnce.Do(func() {
		close(device.done)
		device.mu.Lock()
		device.state = softphone.DeviceDestroyed
		if device.expiry != nil {
			device.expiry.Stop()
		}
		device.mu.Unlock()
		_ = device.conn.Close()
	})
}

// UpdateToken implements [softphone.Device].
func (device *Device) UpdateToken(token string) error {
	if err := device.write(TypeDeviceUpdateToken, UpdateTokenPayload{Token: token}); err != nil {
		return err
	}
	device.armExpiry(token)
	return nil
}

// Connect implements [softphone.Device]. It blocks until the gateway has
// created the call or refused it.
func (device *Device) Connect(ctx context.Context, params softphone.ConnectParams) (softphone.Call, error) {
	requestID := uuidv7.New()
	result, err := device.request(ctx, requestID, params.To, TypeCallConnect, ConnectPayload{
		RequestID: requestID,
		To:        params.To,
	})
	if err != nil {
		return nil, err
	}
	if result.err != nil {
		return nil, result.err
	}
	return result.call, nil
}

// State implements [softphone.Device].
func (device *Device) State() softphone.DeviceState {
	device.mu.Lock()
	defer device.mu.Unlock()
	return device.state
}

// # Request/Reply

// request sends a command and waits for the reply keyed by key.
func (device *Device) request(ctx context.Context, key, to, msgType string, payload any) (reply, error) {
	ch := make(chan reply, 1)
	device.mu.Lock()
	device.waiters[key] = waiter{to: to, reply: ch}
	device.mu.Unlock()

	defer func() {
		device.mu.Lock()
		delete(device.waiters, key)
		device.mu.Unlock()
	}()

	if err := device.write(msgType, payload); err != nil {
		return reply{}, err
	}

	select {
	case result := <-ch:
		return result, nil
	case <-device.done:
		return reply{}, ErrClosed
	case <-device.lost:
		return reply{}, ErrClosed
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

// resolve completes the waiter for key. It reports false if none is pending.
func (device *Device) resolve(key string, result reply) (waiter, bool) {
	device.mu.Lock()
	pending, ok := device.waiters[key]
	delete(device.waiters, key)
	device.mu.Unlock()

	if ok {
		pending.reply <- result
	}
	return pending, ok
}

// # Socket Pumps

func (device *Device) write(msgType string, payload any) error {
	message, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("voicegw: marshal message: %w", err)
	}

	select {
	case <-device.lost:
		return ErrClosed
	default:
	}

	select {
	case device.send <- data:
		return nil
	case <-device.done:
		return ErrClosed
	case <-device.lost:
		return ErrClosed
	}
}

// enqueue hands a message to the dispatch goroutine.
func (device *Device) enqueue(message *Message) {
	select {
	case device.inbox <- message:
	case <-device.done:
	}
}

func (device *Device) readPump() {
	_ = device.conn.SetReadDeadline(time.Now().Add(constants.GatewayReadDeadline))
	device.conn.SetPongHandler(func(string) error {
		return device.conn.SetReadDeadline(time.Now().Add(constants.GatewayReadDeadline))
	})

	for {
		_, data, err := device.conn.ReadMessage()
		if err != nil {
			select {
			case <-device.done:
				return
			default:
			}
			device.logger.Warn("voicegw_connection_lost", slog.Any("error", err))
			device.drop()
			lost, _ := NewMessage(TypeDeviceError, ErrorPayload{Message: "gateway connection lost: " + err.Error()})
			device.enqueue(lost)
			return
		}

		var message Message
		if err := json.Unmarshal(data, &message); err != nil {
			device.logger.Warn("voicegw_message_invalid", slog.Any("error", err))
			continue
		}
		device.enqueue(&message)
	}
}

func (device *Device) writePump() {
	ticker := time.NewTicker(constants.GatewayPingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-device.send:
			_ = device.conn.SetWriteDeadline(time.Now().Add(constants.GatewayWriteDeadline))
			if err := device.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				device.logger.Warn("voicegw_write_failed", slog.Any("error", err))
				device.drop()
				return
			}

		case <-ticker.C:
			_ = device.conn.SetWriteDeadline(time.Now().Add(constants.GatewayWriteDeadline))
			if err := device.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				device.drop()
				return
			}

		case <-device.done:
			return
		case <-device.lost:
			return
		}
	}
}

// drop marks the socket as gone: the device is no longer registered, pending
// requests fail with [ErrClosed] and commands are refused. The dispatch loop
// keeps running so queued events, including the connection-lost error, still
// reach the handler.
func (device *Device) drop() {
	device.lostOnce.Do(func() {
		device.mu.Lock()
		if device.state != softphone.DeviceDestroyed {
			device.state = softphone.DeviceUnregistered
		}
		if device.expiry != nil {
			device.expiry.Stop()
			device.expiry = nil
		}
		device.mu.Unlock()
		close(device.lost)
		_ = device.conn.Close()
	})
}

func (device *Device) dispatchLoop() {
	for {
		select {
		case message := <-device.inbox:
			device.dispatch(message)
		case <-device.done:
			return
		}
	}
}

// # Dispatch

// dispatch runs on the dispatch goroutine only.
func (device *Device) dispatch(message *Message) {
	switch message.Type {
	case TypeDeviceRegistered:
		device.setState(softphone.DeviceRegistered)
		device.resolve(registerKey, reply{})
		device.emit(softphone.DeviceEvent{Type: softphone.EventRegistered})

	case TypeDeviceUnregistered:
		device.setState(softphone.DeviceUnregistered)
		device.emit(softphone.DeviceEvent{Type: softphone.EventUnregistered})

	case TypeDeviceError:
		var payload ErrorPayload
		_ = message.Decode(&payload)
		err := errors.New(payload.Message)
		if _, ok := device.resolve(registerKey, reply{err: err}); ok {
			return
		}
		device.emit(softphone.DeviceEvent{Type: softphone.EventDeviceError, Err: err})

	case typeTokenWillExpire:
		device.emit(softphone.DeviceEvent{Type: softphone.EventTokenWillExpire})

	case TypeDeviceIncoming:
		var payload IncomingPayload
		if err := message.Decode(&payload); err != nil || payload.CallID == "" {
			device.logger.Warn("voicegw_incoming_invalid", slog.Any("error", err))
			return
		}
		call := device.track(payload.CallID, softphone.DirectionInbound, payload.From, "pending")
		device.emit(softphone.DeviceEvent{Type: softphone.EventIncoming, Call: call})

	case TypeCallCreated:
		var payload CreatedPayload
		if err := message.Decode(&payload); err != nil {
			device.logger.Warn("voicegw_created_invalid", slog.Any("error", err))
			return
		}
		device.mu.Lock()
		pending, ok := device.waiters[payload.RequestID]
		device.mu.Unlock()
		if !ok {
			// The caller gave up; drop the orphan.
			_ = device.write(TypeCallDisconnect, CallIDPayload{CallID: payload.CallID})
			return
		}
		call := device.track(payload.CallID, softphone.DirectionOutbound, pending.to, "connecting")
		device.resolve(payload.RequestID, reply{call: call})

	case TypeCallFailed:
		var payload ErrorPayload
		_ = message.Decode(&payload)
		device.resolve(payload.RequestID, reply{err: errors.New(payload.Message)})

	case TypeCallAccept, TypeCallReject, TypeCallDisconnect, TypeCallCancel, TypeCallError:
		var payload ErrorPayload
		_ = message.Decode(&payload)
		device.mu.Lock()
		call := device.calls[payload.CallID]
		device.mu.Unlock()
		if call == nil {
			return
		}
		event := callEvent(message.Type, payload.Message)
		if event.Type != softphone.EventAccept {
			device.mu.Lock()
			delete(device.calls, payload.CallID)
			device.mu.Unlock()
		}
		call.deliver(event)

	default:
		device.logger.Debug("voicegw_message_ignored", slog.String("type", message.Type))
	}
}

func callEvent(msgType, message string) softphone.CallEvent {
	switch msgType {
	case TypeCallAccept:
		return softphone.CallEvent{Type: softphone.EventAccept}
	case TypeCallReject:
		return softphone.CallEvent{Type: softphone.EventReject}
	case TypeCallCancel:
		return softphone.CallEvent{Type: softphone.EventCancel}
	case TypeCallError:
		return softphone.CallEvent{Type: softphone.EventCallError, Err: errors.New(message)}
	default:
		return softphone.CallEvent{Type: softphone.EventDisconnect}
	}
}

func (device *Device) track(id string, direction softphone.Direction, remote, status string) *Call {
	call := &Call{id: id, direction: direction, remote: remote, status: status, device: device}
	device.mu.Lock()
	device.calls[id] = call
	device.mu.Unlock()
	return call
}

func (device *Device) emit(event softphone.DeviceEvent) {
	device.delivering.Lock()
	defer device.delivering.Unlock()

	device.mu.Lock()
	handler := device.handler
	if handler == nil {
		device.held = append(device.held, event)
	}
	device.mu.Unlock()

	if handler != nil {
		handler(event)
	}
}

// setState changes the state unless the device is destroyed or its socket
// is gone.
func (device *Device) setState(state softphone.DeviceState) {
	device.mu.Lock()
	defer device.mu.Unlock()
	if device.state == softphone.DeviceDestroyed {
		return
	}
	select {
	case <-device.lost:
		return
	default:
	}
	device.state = state
}

// armExpiry schedules the token-will-expire event for token. Tokens without
// a readable expiry never fire it.
func (device *Device) armExpiry(token string) {
	delay, err := sec.RefreshDelay(token, device.lead, time.Now())

	device.mu.Lock()
	defer device.mu.Unlock()
	if device.expiry != nil {
		device.expiry.Stop()
		device.expiry = nil
	}
	if err != nil {
		device.logger.Debug("voicegw_token_expiry_unknown", slog.Any("error", err))
		return
	}
	if device.state == softphone.DeviceDestroyed {
		return
	}
	select {
	case <-device.lost:
		return
	default:
	}
	device.expiry = time.AfterFunc(delay, func() {
		device.enqueue(&Message{Type: typeTokenWillExpire, Timestamp: time.Now().UTC()})
	})
}
