// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"

	internal_entity "github.com/rapidaai/meet/internal/entity"
	internal_room "github.com/rapidaai/meet/internal/room"
	internal_sfu "github.com/rapidaai/meet/internal/sfu"
)

// handleJoinMeeting runs the admission machine and, on an admitted join,
// seats the peer and pushes the full catch-up state. A lobby hold parks the
// connection in the lobby group until a host admits it.
func (e *Engine) handleJoinMeeting(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload joinMeetingPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}

	result, err := e.admission.Join(ctx, payload.MeetingCode, conn.Identity)
	if err != nil {
		return nil, err
	}
	meeting := result.Meeting
	conn.Bind(meeting.Code, meeting.Id, result.Participant.Id)

	if result.Held {
		e.hub.MoveToScope(conn, LobbyGroup(meeting.Code))
		_ = conn.Send("lobby-waiting", gin.H{"meetingTitle": meeting.Title})
		// Let moderators see the new lobby arrival.
		e.hub.Broadcast(MeetingGroup(meeting.Code), "lobby-participant", result.Participant)
		return gin.H{"held": true}, nil
	}

	room, err := e.rooms.GetOrCreate(meeting.Code)
	if err != nil {
		return nil, err
	}
	// A stale peer from a dropped connection is replaced by the reconnect.
	if _, err := room.AddPeer(conn.Identity.UserId, conn.Identity.Name); err != nil {
		if !errors.Is(err, internal_room.ErrPeerExists) {
			return nil, err
		}
		_ = room.RemovePeer(conn.Identity.UserId)
		if _, err := room.AddPeer(conn.Identity.UserId, conn.Identity.Name); err != nil {
			return nil, err
		}
	}
	e.hub.MoveToScope(conn, MeetingGroup(meeting.Code))

	roster, err := e.admission.Roster(ctx, meeting.Id)
	if err != nil {
		return nil, err
	}
	caps, err := room.RouterCapabilities(conn.Identity.UserId)
	if err != nil {
		return nil, err
	}
	owned, err := room.OtherProducers(conn.Identity.UserId)
	if err != nil {
		return nil, err
	}
	existing := make([]gin.H, 0, len(owned))
	for _, op := range owned {
		existing = append(existing, gin.H{
			"producerId": op.Producer.Id(),
			"userId":     op.UserId,
			"kind":       op.Producer.Kind(),
			"appData":    op.Producer.AppData(),
		})
	}

	joined := gin.H{
		"meeting":            meeting,
		"participants":       roster,
		"routerCapabilities": caps,
		"existingProducers":  existing,
	}
	// Moderators also need the lobby queue that built up before they arrived.
	role := result.Participant.Role
	if role == internal_entity.RoleHost || role == internal_entity.RoleCoHost {
		if lobby, err := e.admission.LobbyList(ctx, meeting.Id); err == nil && len(lobby) > 0 {
			joined["lobbyParticipants"] = lobby
		}
	}
	_ = conn.Send("meeting-joined", joined)
	e.hub.Broadcast(MeetingGroup(meeting.Code), "participant-joined", result.Participant, conn.Id)

	return gin.H{"joined": true}, nil
}

func (e *Engine) handleCreateTransport(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload createTransportPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, _, _, _ := conn.Binding()
	room := e.rooms.Get(code)
	if room == nil {
		return nil, newError(KindNotFound, "meeting room not found")
	}
	transport, err := room.CreateTransport(conn.Identity.UserId, internal_sfu.TransportDirection(payload.Direction))
	if err != nil {
		return nil, err
	}
	return transport.Params(), nil
}

func (e *Engine) handleConnectTransport(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload connectTransportPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, _, _, _ := conn.Binding()
	room := e.rooms.Get(code)
	if room == nil {
		return nil, newError(KindNotFound, "meeting room not found")
	}
	if err := room.ConnectTransport(conn.Identity.UserId, payload.TransportId, payload.DtlsParameters); err != nil {
		return nil, err
	}
	return gin.H{"connected": true}, nil
}

func (e *Engine) handleProduce(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload producePayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, _, _, _ := conn.Binding()
	room := e.rooms.Get(code)
	if room == nil {
		return nil, newError(KindNotFound, "meeting room not found")
	}
	producer, err := room.Produce(conn.Identity.UserId, payload.TransportId,
		internal_sfu.MediaKind(payload.Kind), payload.RtpParameters, payload.AppData)
	if err != nil {
		return nil, err
	}

	scope, _ := room.PeerScope(conn.Identity.UserId)
	e.hub.Broadcast(e.scopeGroup(code, scope), "new-producer", gin.H{
		"producerId": producer.Id(),
		"userId":     conn.Identity.UserId,
		"kind":       producer.Kind(),
		"appData":    producer.AppData(),
	}, conn.Id)

	return gin.H{"producerId": producer.Id()}, nil
}

func (e *Engine) handleConsume(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload consumePayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, _, _, _ := conn.Binding()
	room := e.rooms.Get(code)
	if room == nil {
		return nil, newError(KindNotFound, "meeting room not found")
	}

	consumer, err := room.Consume(conn.Identity.UserId, payload.ProducerId, payload.RtpCapabilities)
	if err != nil {
		return nil, err
	}
	return gin.H{
		"id":            consumer.Id(),
		"producerId":    consumer.ProducerId(),
		"kind":          consumer.Kind(),
		"rtpParameters": consumer.RTPParameters(),
		"appData":       consumer.AppData(),
	}, nil
}

func (e *Engine) handleResumeConsumer(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload consumerIdPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, _, _, _ := conn.Binding()
	room := e.rooms.Get(code)
	if room == nil {
		return nil, newError(KindNotFound, "meeting room not found")
	}
	consumer, err := room.Consumer(conn.Identity.UserId, payload.ConsumerId)
	if err != nil {
		return nil, err
	}
	if err := consumer.Resume(); err != nil {
		return nil, err
	}
	return gin.H{"resumed": true}, nil
}

func (e *Engine) handleSetPreferredLayers(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload preferredLayersPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, _, _, _ := conn.Binding()
	room := e.rooms.Get(code)
	if room == nil {
		return nil, newError(KindNotFound, "meeting room not found")
	}
	consumer, err := room.Consumer(conn.Identity.UserId, payload.ConsumerId)
	if err != nil {
		return nil, err
	}
	if err := consumer.SetPreferredLayers(internal_sfu.PreferredLayers{
		Spatial:  payload.SpatialLayer,
		Temporal: payload.TemporalLayer,
	}); err != nil {
		return nil, err
	}
	return gin.H{"success": true}, nil
}

func (e *Engine) producerAction(conn *Connection, raw json.RawMessage, action string) (interface{}, error) {
	var payload producerIdPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, _, _, _ := conn.Binding()
	room := e.rooms.Get(code)
	if room == nil {
		return nil, newError(KindNotFound, "meeting room not found")
	}
	producer, err := room.Producer(conn.Identity.UserId, payload.ProducerId)
	if err != nil {
		return nil, err
	}

	var event string
	switch action {
	case "pause":
		err = producer.Pause()
		event = "producer-paused"
	case "resume":
		err = producer.Resume()
		event = "producer-resumed"
	case "close":
		err = room.CloseProducer(conn.Identity.UserId, payload.ProducerId)
		event = "producer-closed"
	}
	if err != nil {
		return nil, err
	}

	scope, scopeErr := room.PeerScope(conn.Identity.UserId)
	if scopeErr == nil {
		e.hub.Broadcast(e.scopeGroup(code, scope), event, gin.H{
			"producerId": payload.ProducerId,
			"userId":     conn.Identity.UserId,
		}, conn.Id)
	}
	return gin.H{"success": true}, nil
}

func (e *Engine) handlePauseProducer(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	return e.producerAction(conn, raw, "pause")
}

func (e *Engine) handleResumeProducer(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	return e.producerAction(conn, raw, "resume")
}

func (e *Engine) handleCloseProducer(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	return e.producerAction(conn, raw, "close")
}
