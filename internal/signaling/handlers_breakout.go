// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"
)

func (e *Engine) handleCreateBreakout(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload createBreakoutPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	if err := e.admission.RequireModerator(ctx, meetingId, conn.Identity.UserId); err != nil {
		return nil, err
	}
	room := e.rooms.Get(code)
	if room == nil {
		return nil, newError(KindNotFound, "meeting room not found")
	}

	assigned, err := e.coordinator.Create(ctx, room, meetingId, payload.Rooms, payload.Duration,
		func() { e.closeBreakouts(code, meetingId) })
	if err != nil {
		return nil, err
	}

	e.hub.Broadcast(MeetingGroup(code), "breakout-created", gin.H{
		"rooms":    assigned.Rooms,
		"duration": payload.Duration,
	})
	// Reseat each assigned connection and hand it the breakout router's
	// capabilities so it can renegotiate its transports there.
	for _, assignment := range assigned.Assignments {
		targetConn := e.findConnection(meetingId, assignment.UserId)
		if targetConn == nil {
			continue
		}
		caps, err := room.RouterCapabilities(assignment.UserId)
		if err != nil {
			e.logger.Warnw("breakout capabilities lookup failed",
				"meeting", meetingId, "user", assignment.UserId, "error", err)
			continue
		}
		e.hub.MoveToScope(targetConn, BreakoutGroup(assignment.BreakoutId))
		_ = targetConn.Send("breakout-joined", gin.H{
			"breakoutRoom": gin.H{
				"id":     assignment.BreakoutId,
				"name":   assignment.Name,
				"endsAt": assignment.EndsAt,
			},
			"routerCapabilities": caps,
		})
	}
	return gin.H{"created": len(assigned.Rooms)}, nil
}

func (e *Engine) handleCloseBreakouts(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	code, meetingId, _, _ := conn.Binding()
	if err := e.admission.RequireModerator(ctx, meetingId, conn.Identity.UserId); err != nil {
		return nil, err
	}
	moved, err := e.dissolveBreakouts(ctx, code, meetingId)
	if err != nil {
		return nil, err
	}
	return gin.H{"moved": len(moved)}, nil
}

// closeBreakouts is the auto-close timer target.
func (e *Engine) closeBreakouts(code string, meetingId uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if _, err := e.dissolveBreakouts(ctx, code, meetingId); err != nil {
		e.logger.Warnw("breakout auto-close failed", "meeting", meetingId, "error", err)
	}
}

// dissolveBreakouts closes every breakout, reseats the returned users into
// the meeting group and pushes breakout-ended to each of them.
func (e *Engine) dissolveBreakouts(ctx context.Context, code string, meetingId uint64) ([]uint64, error) {
	room := e.rooms.Get(code)
	if room == nil {
		return nil, newError(KindNotFound, "meeting room not found")
	}
	moved, err := e.coordinator.CloseAll(ctx, room, meetingId)
	if err != nil {
		return nil, err
	}

	for _, userId := range moved {
		targetConn := e.findConnection(meetingId, userId)
		if targetConn == nil {
			continue
		}
		// The reseated peer negotiates fresh transports on the main router.
		caps, err := room.RouterCapabilities(userId)
		if err != nil {
			e.logger.Warnw("main capabilities lookup failed",
				"meeting", meetingId, "user", userId, "error", err)
			continue
		}
		e.hub.MoveToScope(targetConn, MeetingGroup(code))
		_ = targetConn.Send("breakout-ended", gin.H{
			"meetingCode":        code,
			"routerCapabilities": caps,
		})
	}
	e.hub.Broadcast(MeetingGroup(code), "breakout-closed", gin.H{"meetingCode": code})
	return moved, nil
}

func (e *Engine) handleBroadcastToBreakouts(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload breakoutBroadcastPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	_, meetingId, _, _ := conn.Binding()

	if err := e.admission.RequireModerator(ctx, meetingId, conn.Identity.UserId); err != nil {
		return nil, err
	}
	active, err := e.coordinator.ActiveRooms(ctx, meetingId)
	if err != nil {
		return nil, err
	}
	for _, b := range active {
		e.hub.Broadcast(BreakoutGroup(b.Id), "breakout-broadcast", gin.H{
			"message": payload.Message,
			"from":    conn.Identity.Name,
		})
	}
	return gin.H{"rooms": len(active)}, nil
}
