// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	internal_token "github.com/rapidaai/meet/internal/token"
)

// envelope is the wire frame in both directions. Requests may carry a
// callbackId; the matching ack echoes it back as a "callback" event.
type envelope struct {
	Event      string          `json:"event"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CallbackId string          `json:"callbackId,omitempty"`
}

const ackEvent = "callback"

// Connection is one authenticated websocket. Gorilla websockets allow a
// single concurrent writer, so every outbound frame goes through writeMu.
type Connection struct {
	Id       string
	Identity *internal_token.Identity

	ws      *websocket.Conn
	writeMu sync.Mutex

	mu            sync.Mutex
	meetingCode   string
	meetingId     uint64
	participantId uint64
	closed        bool
}

func newConnection(id string, ws *websocket.Conn, identity *internal_token.Identity) *Connection {
	return &Connection{Id: id, Identity: identity, ws: ws}
}

// Bind attaches the connection to a meeting after a successful join.
func (c *Connection) Bind(meetingCode string, meetingId, participantId uint64) {
	c.mu.Lock()
	c.meetingCode = meetingCode
	c.meetingId = meetingId
	c.participantId = participantId
	c.mu.Unlock()
}

// Binding returns the bound meeting, or ok=false before join-meeting.
func (c *Connection) Binding() (meetingCode string, meetingId, participantId uint64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.meetingCode, c.meetingId, c.participantId, c.meetingCode != ""
}

// Send pushes one event to the client. Errors are returned for the caller
// to decide; a broken connection is cleaned up by its read loop.
func (c *Connection) Send(event string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.ws.WriteJSON(envelope{Event: event, Payload: raw})
}

// Ack answers one request via its callback id.
func (c *Connection) Ack(callbackId string, payload interface{}) {
	if callbackId == "" {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return
	}
	_ = c.ws.WriteJSON(envelope{Event: ackEvent, Payload: raw, CallbackId: callbackId})
}

func (c *Connection) Close() {
	c.writeMu.Lock()
	if c.closed {
		c.writeMu.Unlock()
		return
	}
	c.closed = true
	c.writeMu.Unlock()
	_ = c.ws.Close()
}
