// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_admission

import (
	"context"
	"errors"
	"time"

	internal_entity "github.com/rapidaai/meet/internal/entity"
	internal_token "github.com/rapidaai/meet/internal/token"
	"github.com/rapidaai/meet/pkg/commons"
)

var (
	ErrPermissionDenied = errors.New("admission: permission denied")
	ErrRemoved          = errors.New("admission: participant was removed from this meeting")
	ErrMeetingEnded     = errors.New("admission: meeting has ended")
	ErrTargetIsHost     = errors.New("admission: action cannot target the host")
)

// JoinResult describes where a join landed: admitted straight to the floor
// or held in the lobby.
type JoinResult struct {
	Meeting     *internal_entity.Meeting
	Participant *internal_entity.Participant
	Held        bool
}

// Service is the admission and host state machine. Every transition lands as
// a durable participant status write before anything in-memory reacts.
type Service struct {
	store  Store
	logger commons.Logger
}

func NewService(store Store, logger commons.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// Join applies the entry transitions: a host or a lobby-disabled meeting
// goes straight to IN_MEETING, everyone else is held IN_LOBBY. A returning
// participant keeps their previous floor status (reconnect), a REMOVED one
// is rejected until a host re-admits them.
func (s *Service) Join(ctx context.Context, meetingCode string, identity *internal_token.Identity) (*JoinResult, error) {
	meeting, err := s.store.GetMeetingByCode(ctx, meetingCode)
	if err != nil {
		return nil, err
	}
	if meeting.Status == internal_entity.MeetingEnded {
		return nil, ErrMeetingEnded
	}

	isHost := meeting.HostUserId == identity.UserId

	participant, err := s.store.GetParticipant(ctx, meeting.Id, identity.UserId)
	switch {
	case errors.Is(err, ErrNotFound):
		participant = &internal_entity.Participant{
			UserId:    identity.UserId,
			MeetingId: meeting.Id,
			Role:      internal_entity.RoleParticipant,
			Status:    internal_entity.StatusInLobby,
			JoinedAt:  time.Now(),
			Name:      identity.Name,
			Email:     identity.Email,
			AvatarUrl: identity.Picture,
		}
		if isHost {
			participant.Role = internal_entity.RoleHost
		}
		if isHost || !meeting.LobbyEnabled {
			participant.Status = internal_entity.StatusInMeeting
		}
		if err := s.store.CreateParticipant(ctx, participant); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if participant.Status == internal_entity.StatusRemoved {
			return nil, ErrRemoved
		}
		// Reconnect: a participant who was on the floor stays there. A
		// breakout resident lands back on the main floor since their old
		// peer is gone. Only IN_LOBBY stays held.
		if participant.Status == internal_entity.StatusInBreakout {
			participant.Status = internal_entity.StatusInMeeting
			participant.BreakoutRoomId = nil
		}
		participant.LeftAt = nil
		if err := s.store.UpdateParticipant(ctx, participant); err != nil {
			return nil, err
		}
	}

	// First admitted join flips a scheduled meeting live.
	if participant.Status == internal_entity.StatusInMeeting &&
		meeting.Status == internal_entity.MeetingScheduled {
		meeting.Status = internal_entity.MeetingLive
		meeting.StartedAt = nowPtr(time.Now())
		if err := s.store.UpdateMeeting(ctx, meeting); err != nil {
			return nil, err
		}
	}

	s.logger.Infow("participant joined",
		"meeting", meeting.Code, "user", identity.UserId, "status", participant.Status)
	return &JoinResult{
		Meeting:     meeting,
		Participant: participant,
		Held:        participant.Status == internal_entity.StatusInLobby,
	}, nil
}

// requireHost loads the actor's participant row and checks the role gate.
func (s *Service) requireHost(ctx context.Context, meetingId, actorUserId uint64, hostOnly bool) (*internal_entity.Participant, error) {
	actor, err := s.store.GetParticipant(ctx, meetingId, actorUserId)
	if err != nil {
		return nil, err
	}
	if hostOnly {
		if actor.Role != internal_entity.RoleHost {
			return nil, ErrPermissionDenied
		}
		return actor, nil
	}
	if actor.Role != internal_entity.RoleHost && actor.Role != internal_entity.RoleCoHost {
		return nil, ErrPermissionDenied
	}
	return actor, nil
}

// RequireModerator checks that the user holds HOST or CO_HOST.
func (s *Service) RequireModerator(ctx context.Context, meetingId, userId uint64) error {
	_, err := s.requireHost(ctx, meetingId, userId, false)
	return err
}

// Admit moves a lobby participant to the floor.
func (s *Service) Admit(ctx context.Context, meetingId, actorUserId, participantId uint64) (*internal_entity.Participant, error) {
	if _, err := s.requireHost(ctx, meetingId, actorUserId, false); err != nil {
		return nil, err
	}
	target, err := s.store.GetParticipantById(ctx, participantId)
	if err != nil {
		return nil, err
	}
	if target.MeetingId != meetingId {
		return nil, ErrNotFound
	}
	target.Status = internal_entity.StatusInMeeting
	if err := s.store.UpdateParticipant(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Reject removes a lobby participant.
func (s *Service) Reject(ctx context.Context, meetingId, actorUserId, participantId uint64) (*internal_entity.Participant, error) {
	return s.remove(ctx, meetingId, actorUserId, participantId)
}

// Kick removes a floor participant. The host cannot be kicked.
func (s *Service) Kick(ctx context.Context, meetingId, actorUserId, participantId uint64) (*internal_entity.Participant, error) {
	return s.remove(ctx, meetingId, actorUserId, participantId)
}

func (s *Service) remove(ctx context.Context, meetingId, actorUserId, participantId uint64) (*internal_entity.Participant, error) {
	if _, err := s.requireHost(ctx, meetingId, actorUserId, false); err != nil {
		return nil, err
	}
	target, err := s.store.GetParticipantById(ctx, participantId)
	if err != nil {
		return nil, err
	}
	if target.MeetingId != meetingId {
		return nil, ErrNotFound
	}
	if target.Role == internal_entity.RoleHost {
		return nil, ErrTargetIsHost
	}
	target.Status = internal_entity.StatusRemoved
	target.BreakoutRoomId = nil
	target.LeftAt = nowPtr(time.Now())
	if err := s.store.UpdateParticipant(ctx, target); err != nil {
		return nil, err
	}
	s.logger.Infow("participant removed",
		"meeting", meetingId, "actor", actorUserId, "participant", participantId)
	return target, nil
}

// MoveToLobby sends a floor participant back to the lobby. The host cannot
// be moved.
func (s *Service) MoveToLobby(ctx context.Context, meetingId, actorUserId, participantId uint64) (*internal_entity.Participant, error) {
	if _, err := s.requireHost(ctx, meetingId, actorUserId, false); err != nil {
		return nil, err
	}
	target, err := s.store.GetParticipantById(ctx, participantId)
	if err != nil {
		return nil, err
	}
	if target.MeetingId != meetingId {
		return nil, ErrNotFound
	}
	if target.Role == internal_entity.RoleHost {
		return nil, ErrTargetIsHost
	}
	target.Status = internal_entity.StatusInLobby
	target.BreakoutRoomId = nil
	if err := s.store.UpdateParticipant(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// TransferHost hands the HOST role to another participant. Caller must hold
// HOST itself, co-host is not enough.
func (s *Service) TransferHost(ctx context.Context, meetingId, actorUserId, newHostUserId uint64) error {
	if _, err := s.requireHost(ctx, meetingId, actorUserId, true); err != nil {
		return err
	}
	if err := s.store.TransferHost(ctx, meetingId, newHostUserId); err != nil {
		return err
	}
	s.logger.Infow("host transferred",
		"meeting", meetingId, "from", actorUserId, "to", newHostUserId)
	return nil
}

// SetBreakout records a participant's breakout placement; a nil breakoutId
// puts them back on the main floor.
func (s *Service) SetBreakout(ctx context.Context, meetingId, userId uint64, breakoutId *uint64) error {
	participant, err := s.store.GetParticipant(ctx, meetingId, userId)
	if err != nil {
		return err
	}
	if breakoutId != nil {
		participant.Status = internal_entity.StatusInBreakout
		participant.BreakoutRoomId = breakoutId
	} else {
		participant.Status = internal_entity.StatusInMeeting
		participant.BreakoutRoomId = nil
	}
	return s.store.UpdateParticipant(ctx, participant)
}

// ClearBreakouts reverts every IN_BREAKOUT participant of the meeting to the
// main floor, including assignees who were offline the whole window.
func (s *Service) ClearBreakouts(ctx context.Context, meetingId uint64) error {
	return s.store.ClearBreakouts(ctx, meetingId)
}

// EndMeeting marks the meeting ended. Host only.
func (s *Service) EndMeeting(ctx context.Context, meetingId, actorUserId uint64) (*internal_entity.Meeting, error) {
	if _, err := s.requireHost(ctx, meetingId, actorUserId, true); err != nil {
		return nil, err
	}
	meeting, err := s.store.GetMeeting(ctx, meetingId)
	if err != nil {
		return nil, err
	}
	if meeting.Status == internal_entity.MeetingEnded {
		return meeting, nil
	}
	meeting.Status = internal_entity.MeetingEnded
	meeting.EndedAt = nowPtr(time.Now())
	if err := s.store.UpdateMeeting(ctx, meeting); err != nil {
		return nil, err
	}
	s.logger.Infow("meeting ended", "meeting", meeting.Code, "actor", actorUserId)
	return meeting, nil
}

// Disconnect stamps leftAt and keeps the status, so a reconnect lands the
// participant back where they were. Best-effort; callers swallow the error.
func (s *Service) Disconnect(ctx context.Context, meetingId, userId uint64) error {
	participant, err := s.store.GetParticipant(ctx, meetingId, userId)
	if err != nil {
		return err
	}
	participant.LeftAt = nowPtr(time.Now())
	return s.store.UpdateParticipant(ctx, participant)
}

// Roster lists the floor and breakout participants of a meeting.
func (s *Service) Roster(ctx context.Context, meetingId uint64) ([]*internal_entity.Participant, error) {
	return s.store.ListParticipants(ctx, meetingId,
		internal_entity.StatusInMeeting, internal_entity.StatusInBreakout)
}

// LobbyList lists the participants currently held in the lobby.
func (s *Service) LobbyList(ctx context.Context, meetingId uint64) ([]*internal_entity.Participant, error) {
	return s.store.ListParticipants(ctx, meetingId, internal_entity.StatusInLobby)
}
