// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	internal_token "github.com/rapidaai/meet/internal/token"
)

func hubConn(id string, userId uint64) *Connection {
	return newConnection(id, nil, &internal_token.Identity{
		UserId: userId,
		Email:  "user@example.com",
		Name:   "User",
	})
}

func scopeGroupsOf(h *Hub, connId string) []string {
	var out []string
	for _, g := range h.Groups(connId) {
		if isScopeGroup(g) {
			out = append(out, g)
		}
	}
	return out
}

func TestMoveToScopeIsExclusive(t *testing.T) {
	hub := NewHub()
	conn := hubConn("c1", 1)

	hub.MoveToScope(conn, LobbyGroup("abc-defg-hij"))
	assert.Len(t, scopeGroupsOf(hub, "c1"), 1, "one scope group after first move")

	hub.MoveToScope(conn, MeetingGroup("abc-defg-hij"))
	groups := scopeGroupsOf(hub, "c1")
	assert.Len(t, groups, 1, "a connection sits in at most one scope group")
	assert.Equal(t, MeetingGroup("abc-defg-hij"), groups[0], "latest scope wins")

	hub.MoveToScope(conn, BreakoutGroup(4))
	groups = scopeGroupsOf(hub, "c1")
	assert.Len(t, groups, 1, "still exactly one scope group")
	assert.Equal(t, BreakoutGroup(4), groups[0], "breakout scope replaces meeting scope")
}

func TestMembersAndFind(t *testing.T) {
	hub := NewHub()
	alice := hubConn("c1", 1)
	bob := hubConn("c2", 2)

	hub.MoveToScope(alice, MeetingGroup("abc-defg-hij"))
	hub.MoveToScope(bob, MeetingGroup("abc-defg-hij"))

	assert.Len(t, hub.Members(MeetingGroup("abc-defg-hij")), 2, "both members present")
	found := hub.Find(MeetingGroup("abc-defg-hij"), 2)
	assert.NotNil(t, found, "find by user id should hit")
	assert.Equal(t, "c2", found.Id, "the right connection is found")
	assert.Nil(t, hub.Find(MeetingGroup("abc-defg-hij"), 99), "missing user returns nil")
}

func TestLeaveAllEmptiesMembership(t *testing.T) {
	hub := NewHub()
	conn := hubConn("c1", 1)

	hub.MoveToScope(conn, MeetingGroup("abc-defg-hij"))
	hub.LeaveAll(conn)

	assert.Empty(t, hub.Groups("c1"), "no groups remain after LeaveAll")
	assert.Empty(t, hub.Members(MeetingGroup("abc-defg-hij")), "group is empty")
}
