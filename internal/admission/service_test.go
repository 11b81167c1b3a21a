// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_admission

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	internal_entity "github.com/rapidaai/meet/internal/entity"
	internal_token "github.com/rapidaai/meet/internal/token"
	"github.com/rapidaai/meet/pkg/commons"
)

func newTestService(t *testing.T) (*Service, Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "sqlite open should not fail")
	require.NoError(t, db.AutoMigrate(
		&internal_entity.Meeting{},
		&internal_entity.Participant{},
	), "migration should not fail")

	store := NewStore(commons.NewApplicationLogger(), db)
	return NewService(store, commons.NewApplicationLogger()), store
}

func seedMeeting(t *testing.T, store Store, lobbyEnabled bool) *internal_entity.Meeting {
	t.Helper()
	meeting := &internal_entity.Meeting{
		Code:         "abc-defg-hij",
		Title:        "Weekly Sync",
		HostUserId:   1,
		LobbyEnabled: lobbyEnabled,
		Status:       internal_entity.MeetingScheduled,
	}
	require.NoError(t, store.(*gormStore).db.Create(meeting).Error, "seed meeting should not fail")
	return meeting
}

func identity(userId uint64) *internal_token.Identity {
	return &internal_token.Identity{
		UserId: userId,
		Email:  fmt.Sprintf("user%d@example.com", userId),
		Name:   fmt.Sprintf("User %d", userId),
	}
}

func TestHostJoinsDirectly(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, true)

	result, err := service.Join(context.Background(), meeting.Code, identity(1))
	require.NoError(t, err, "host join should not fail")
	assert.False(t, result.Held, "host bypasses the lobby")
	assert.Equal(t, internal_entity.RoleHost, result.Participant.Role, "joining owner gets HOST")
	assert.Equal(t, internal_entity.MeetingLive, result.Meeting.Status, "first admitted join flips the meeting live")
	assert.NotNil(t, result.Meeting.StartedAt, "startedAt should be stamped")
}

func TestLobbyHoldsNonHost(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, true)

	result, err := service.Join(context.Background(), meeting.Code, identity(2))
	require.NoError(t, err, "join should not fail")
	assert.True(t, result.Held, "non-host is held when the lobby is on")
	assert.Equal(t, internal_entity.StatusInLobby, result.Participant.Status, "status should be IN_LOBBY")
	assert.Equal(t, internal_entity.MeetingScheduled, result.Meeting.Status,
		"a lobby hold is not an admitted join")
}

func TestLobbyDisabledAdmitsDirectly(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, false)

	result, err := service.Join(context.Background(), meeting.Code, identity(2))
	require.NoError(t, err, "join should not fail")
	assert.False(t, result.Held, "lobby off admits everyone")
	assert.Equal(t, internal_entity.StatusInMeeting, result.Participant.Status, "status should be IN_MEETING")
}

func TestAdmitFromLobby(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, true)
	ctx := context.Background()

	_, err := service.Join(ctx, meeting.Code, identity(1))
	require.NoError(t, err, "host join should not fail")
	held, err := service.Join(ctx, meeting.Code, identity(2))
	require.NoError(t, err, "guest join should not fail")

	admitted, err := service.Admit(ctx, meeting.Id, 1, held.Participant.Id)
	require.NoError(t, err, "admit should not fail")
	assert.Equal(t, internal_entity.StatusInMeeting, admitted.Status, "admitted guest is on the floor")

	_, err = service.Admit(ctx, meeting.Id, 2, held.Participant.Id)
	assert.ErrorIs(t, err, ErrPermissionDenied, "plain participants cannot admit")
}

func TestRejectedParticipantCannotRejoin(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, true)
	ctx := context.Background()

	_, err := service.Join(ctx, meeting.Code, identity(1))
	require.NoError(t, err, "host join should not fail")
	held, err := service.Join(ctx, meeting.Code, identity(2))
	require.NoError(t, err, "guest join should not fail")

	rejected, err := service.Reject(ctx, meeting.Id, 1, held.Participant.Id)
	require.NoError(t, err, "reject should not fail")
	assert.Equal(t, internal_entity.StatusRemoved, rejected.Status, "rejected guest is REMOVED")

	_, err = service.Join(ctx, meeting.Code, identity(2))
	assert.ErrorIs(t, err, ErrRemoved, "a REMOVED participant needs host re-admission")
}

func TestHostCannotBeKickedOrLobbied(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, false)
	ctx := context.Background()

	host, err := service.Join(ctx, meeting.Code, identity(1))
	require.NoError(t, err, "host join should not fail")
	_, err = service.Join(ctx, meeting.Code, identity(2))
	require.NoError(t, err, "guest join should not fail")

	// Promote the guest to co-host so they pass the role gate.
	guest, err := store.GetParticipant(ctx, meeting.Id, 2)
	require.NoError(t, err, "participant lookup should not fail")
	guest.Role = internal_entity.RoleCoHost
	require.NoError(t, store.UpdateParticipant(ctx, guest), "update should not fail")

	_, err = service.Kick(ctx, meeting.Id, 2, host.Participant.Id)
	assert.ErrorIs(t, err, ErrTargetIsHost, "the host cannot be kicked")
	_, err = service.MoveToLobby(ctx, meeting.Id, 2, host.Participant.Id)
	assert.ErrorIs(t, err, ErrTargetIsHost, "the host cannot be moved to the lobby")
}

func TestTransferHostKeepsExactlyOneHost(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, false)
	ctx := context.Background()

	_, err := service.Join(ctx, meeting.Code, identity(1))
	require.NoError(t, err, "host join should not fail")
	_, err = service.Join(ctx, meeting.Code, identity(2))
	require.NoError(t, err, "guest join should not fail")

	require.NoError(t, service.TransferHost(ctx, meeting.Id, 1, 2), "transfer should not fail")

	all, err := store.ListParticipants(ctx, meeting.Id)
	require.NoError(t, err, "list should not fail")
	hosts := 0
	for _, p := range all {
		if p.Role == internal_entity.RoleHost {
			hosts++
			assert.Equal(t, uint64(2), p.UserId, "the target should hold HOST")
		}
	}
	assert.Equal(t, 1, hosts, "exactly one HOST must exist after transfer")

	updated, err := store.GetMeeting(ctx, meeting.Id)
	require.NoError(t, err, "meeting lookup should not fail")
	assert.Equal(t, uint64(2), updated.HostUserId, "meeting host pointer should follow the transfer")

	// The old host is a plain participant now and cannot transfer again.
	err = service.TransferHost(ctx, meeting.Id, 1, 1)
	assert.ErrorIs(t, err, ErrPermissionDenied, "only the current HOST can transfer")
}

func TestCoHostCannotTransferHost(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, false)
	ctx := context.Background()

	_, err := service.Join(ctx, meeting.Code, identity(1))
	require.NoError(t, err, "host join should not fail")
	_, err = service.Join(ctx, meeting.Code, identity(2))
	require.NoError(t, err, "guest join should not fail")

	guest, err := store.GetParticipant(ctx, meeting.Id, 2)
	require.NoError(t, err, "participant lookup should not fail")
	guest.Role = internal_entity.RoleCoHost
	require.NoError(t, store.UpdateParticipant(ctx, guest), "update should not fail")

	err = service.TransferHost(ctx, meeting.Id, 2, 2)
	assert.ErrorIs(t, err, ErrPermissionDenied, "co-host is not enough for transfer-host")
}

func TestDisconnectKeepsStatusAndReconnectClearsLeftAt(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, false)
	ctx := context.Background()

	_, err := service.Join(ctx, meeting.Code, identity(2))
	require.NoError(t, err, "join should not fail")

	require.NoError(t, service.Disconnect(ctx, meeting.Id, 2), "disconnect should not fail")
	p, err := store.GetParticipant(ctx, meeting.Id, 2)
	require.NoError(t, err, "lookup should not fail")
	assert.NotNil(t, p.LeftAt, "disconnect stamps leftAt")
	assert.Equal(t, internal_entity.StatusInMeeting, p.Status, "disconnect keeps the status")

	rejoined, err := service.Join(ctx, meeting.Code, identity(2))
	require.NoError(t, err, "rejoin should not fail")
	assert.False(t, rejoined.Held, "a reconnecting floor participant is not re-held")
	assert.Nil(t, rejoined.Participant.LeftAt, "rejoin clears leftAt")
}

func TestEndMeetingHostOnly(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, false)
	ctx := context.Background()

	_, err := service.Join(ctx, meeting.Code, identity(1))
	require.NoError(t, err, "host join should not fail")
	_, err = service.Join(ctx, meeting.Code, identity(2))
	require.NoError(t, err, "guest join should not fail")

	_, err = service.EndMeeting(ctx, meeting.Id, 2)
	assert.ErrorIs(t, err, ErrPermissionDenied, "only the host ends the meeting")

	ended, err := service.EndMeeting(ctx, meeting.Id, 1)
	require.NoError(t, err, "end-meeting should not fail")
	assert.Equal(t, internal_entity.MeetingEnded, ended.Status, "status should be ENDED")
	assert.NotNil(t, ended.EndedAt, "endedAt should be stamped")

	_, err = service.Join(ctx, meeting.Code, identity(3))
	assert.ErrorIs(t, err, ErrMeetingEnded, "an ended meeting rejects joins")
}

func TestSetBreakoutRoundTrip(t *testing.T) {
	service, store := newTestService(t)
	meeting := seedMeeting(t, store, false)
	ctx := context.Background()

	_, err := service.Join(ctx, meeting.Code, identity(2))
	require.NoError(t, err, "join should not fail")

	breakoutId := uint64(9)
	require.NoError(t, service.SetBreakout(ctx, meeting.Id, 2, &breakoutId), "set breakout should not fail")
	p, err := store.GetParticipant(ctx, meeting.Id, 2)
	require.NoError(t, err, "lookup should not fail")
	assert.Equal(t, internal_entity.StatusInBreakout, p.Status, "status should be IN_BREAKOUT")
	require.NotNil(t, p.BreakoutRoomId, "breakoutRoomId is set while IN_BREAKOUT")
	assert.Equal(t, breakoutId, *p.BreakoutRoomId, "breakoutRoomId should match")

	require.NoError(t, service.SetBreakout(ctx, meeting.Id, 2, nil), "clear breakout should not fail")
	p, err = store.GetParticipant(ctx, meeting.Id, 2)
	require.NoError(t, err, "lookup should not fail")
	assert.Equal(t, internal_entity.StatusInMeeting, p.Status, "status should be back to IN_MEETING")
	assert.Nil(t, p.BreakoutRoomId, "breakoutRoomId is null outside breakouts")
}
