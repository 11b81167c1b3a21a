// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	internal_entity "github.com/rapidaai/meet/internal/entity"
)

func (e *Engine) handleLobbyAdmit(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload participantIdPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	target, err := e.admission.Admit(ctx, meetingId, conn.Identity.UserId, payload.ParticipantId)
	if err != nil {
		return nil, err
	}

	// The admitted client re-runs join-meeting and lands on the floor.
	if targetConn := e.hub.Find(LobbyGroup(code), target.UserId); targetConn != nil {
		_ = targetConn.Send("admitted", gin.H{"meetingCode": code})
	}
	return gin.H{"admitted": true}, nil
}

func (e *Engine) handleLobbyReject(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload participantIdPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	target, err := e.admission.Reject(ctx, meetingId, conn.Identity.UserId, payload.ParticipantId)
	if err != nil {
		return nil, err
	}

	if targetConn := e.hub.Find(LobbyGroup(code), target.UserId); targetConn != nil {
		_ = targetConn.Send("lobby-rejected", gin.H{"meetingCode": code})
		targetConn.Close()
	}
	return gin.H{"rejected": true}, nil
}

func (e *Engine) handleMoveToLobby(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload participantIdPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	target, err := e.admission.MoveToLobby(ctx, meetingId, conn.Identity.UserId, payload.ParticipantId)
	if err != nil {
		return nil, err
	}

	if room := e.rooms.Get(code); room != nil {
		e.dropPeerMedia(room, code, target.UserId, target.Id, "moved-to-lobby")
	}
	if targetConn := e.findConnection(meetingId, target.UserId); targetConn != nil {
		e.hub.MoveToScope(targetConn, LobbyGroup(code))
		_ = targetConn.Send("moved-to-lobby", gin.H{"meetingCode": code})
	}
	return gin.H{"moved": true}, nil
}

func (e *Engine) handleKickParticipant(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload participantIdPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	target, err := e.admission.Kick(ctx, meetingId, conn.Identity.UserId, payload.ParticipantId)
	if err != nil {
		return nil, err
	}

	if room := e.rooms.Get(code); room != nil {
		e.dropPeerMedia(room, code, target.UserId, target.Id, "kicked")
	}
	if targetConn := e.findConnection(meetingId, target.UserId); targetConn != nil {
		_ = targetConn.Send("kicked", gin.H{"meetingCode": code})
		targetConn.Close()
	}
	return gin.H{"kicked": true}, nil
}

func (e *Engine) handleTransferHost(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload transferHostPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	if err := e.admission.TransferHost(ctx, meetingId, conn.Identity.UserId, payload.NewHostId); err != nil {
		return nil, err
	}
	e.hub.Broadcast(MeetingGroup(code), "host-changed", gin.H{
		"newHostId": payload.NewHostId,
		"oldHostId": conn.Identity.UserId,
	})
	return gin.H{"transferred": true}, nil
}

// handleEndMeeting tears the whole meeting down: durable ENDED write, push
// meeting-ended to every scope, cancel breakout timers, close the room and
// every member connection.
func (e *Engine) handleEndMeeting(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	code, meetingId, _, _ := conn.Binding()

	meeting, err := e.admission.EndMeeting(ctx, meetingId, conn.Identity.UserId)
	if err != nil {
		return nil, err
	}

	e.coordinator.CancelTimer(meetingId)

	groups := []string{MeetingGroup(code), LobbyGroup(code)}
	if active, err := e.coordinator.ActiveRooms(ctx, meetingId); err == nil {
		for _, b := range active {
			groups = append(groups, BreakoutGroup(b.Id))
		}
	}
	payload := gin.H{"meetingCode": code, "endedAt": meeting.EndedAt}
	var members []*Connection
	for _, group := range groups {
		members = append(members, e.hub.Members(group)...)
		e.hub.Broadcast(group, "meeting-ended", payload)
	}

	// Closing the room stops all media; nothing is broadcast for this
	// meeting afterwards.
	e.rooms.Remove(code)

	for _, member := range members {
		if member.Id != conn.Id {
			member.Close()
		}
	}
	return gin.H{"ended": true}, nil
}

func (e *Engine) handleInviteParticipant(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload invitePayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	if err := e.admission.RequireModerator(ctx, meetingId, conn.Identity.UserId); err != nil {
		return nil, err
	}
	meeting, err := e.store.GetMeeting(ctx, meetingId)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateInvitation(ctx, &internal_entity.Invitation{
		MeetingId:       meetingId,
		Email:           payload.Email,
		InvitedByUserId: conn.Identity.UserId,
	}); err != nil {
		return nil, err
	}

	subject := fmt.Sprintf("%s invited you to %s", conn.Identity.Name, meeting.Title)
	body := fmt.Sprintf("Join the meeting with code %s.", code)
	if err := e.mailer.Send(ctx, payload.Email, subject, body, ""); err != nil {
		e.logger.Warnw("invitation email failed", "meeting", meetingId, "email", payload.Email, "error", err)
		return nil, newError(KindUpstreamUnavailable, "invitation stored but email delivery failed")
	}
	return gin.H{"invited": true}, nil
}
