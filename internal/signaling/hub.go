// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"fmt"
	"strings"
	"sync"
)

// Group name constructors. A connection sits in at most one of these at a
// time; MoveToScope enforces that atomically.
func LobbyGroup(meetingCode string) string   { return "lobby:" + meetingCode }
func MeetingGroup(meetingCode string) string { return "meeting:" + meetingCode }
func BreakoutGroup(breakoutId uint64) string { return fmt.Sprintf("breakout:%d", breakoutId) }

func isScopeGroup(group string) bool {
	return strings.HasPrefix(group, "lobby:") ||
		strings.HasPrefix(group, "meeting:") ||
		strings.HasPrefix(group, "breakout:")
}

// Hub tracks broadcast group membership. One mutex guards both directions
// of the mapping so a scope move is atomic relative to sends.
type Hub struct {
	mu      sync.Mutex
	groups  map[string]map[string]*Connection
	members map[string]map[string]bool
}

func NewHub() *Hub {
	return &Hub{
		groups:  make(map[string]map[string]*Connection),
		members: make(map[string]map[string]bool),
	}
}

// MoveToScope removes the connection from any lobby/meeting/breakout group
// and joins the target group in one critical section.
func (h *Hub) MoveToScope(conn *Connection, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for g := range h.members[conn.Id] {
		if isScopeGroup(g) {
			h.leaveLocked(conn.Id, g)
		}
	}
	h.joinLocked(conn, group)
}

// LeaveAll drops the connection from every group. Called on disconnect.
func (h *Hub) LeaveAll(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for g := range h.members[conn.Id] {
		h.leaveLocked(conn.Id, g)
	}
	delete(h.members, conn.Id)
}

func (h *Hub) joinLocked(conn *Connection, group string) {
	if h.groups[group] == nil {
		h.groups[group] = make(map[string]*Connection)
	}
	h.groups[group][conn.Id] = conn
	if h.members[conn.Id] == nil {
		h.members[conn.Id] = make(map[string]bool)
	}
	h.members[conn.Id][group] = true
}

func (h *Hub) leaveLocked(connId, group string) {
	if conns, ok := h.groups[group]; ok {
		delete(conns, connId)
		if len(conns) == 0 {
			delete(h.groups, group)
		}
	}
	if groups, ok := h.members[connId]; ok {
		delete(groups, group)
	}
}

// Groups reports the groups a connection belongs to.
func (h *Hub) Groups(connId string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.members[connId]))
	for g := range h.members[connId] {
		out = append(out, g)
	}
	return out
}

// Members snapshots the connections in a group.
func (h *Hub) Members(group string) []*Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Connection, 0, len(h.groups[group]))
	for _, conn := range h.groups[group] {
		out = append(out, conn)
	}
	return out
}

// Find returns a connection in a group by user id.
func (h *Hub) Find(group string, userId uint64) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conn := range h.groups[group] {
		if conn.Identity.UserId == userId {
			return conn
		}
	}
	return nil
}

// FindByEmail scans every group for a connection with the given email.
func (h *Hub) FindByEmail(email string) *Connection {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, conns := range h.groups {
		for _, conn := range conns {
			if conn.Identity.Email == email {
				return conn
			}
		}
	}
	return nil
}

// Broadcast sends one event to every member of a group, minus exclusions.
// The membership snapshot is taken under the lock, the writes happen off it.
func (h *Hub) Broadcast(group, event string, payload interface{}, exclude ...string) {
	conns := h.Members(group)
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	for _, conn := range conns {
		if excluded[conn.Id] {
			continue
		}
		_ = conn.Send(event, payload)
	}
}
