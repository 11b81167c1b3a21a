// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_breakout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	internal_admission "github.com/rapidaai/meet/internal/admission"
	internal_entity "github.com/rapidaai/meet/internal/entity"
	internal_room "github.com/rapidaai/meet/internal/room"
	internal_sfu "github.com/rapidaai/meet/internal/sfu"
	internal_token "github.com/rapidaai/meet/internal/token"
	"github.com/rapidaai/meet/pkg/commons"
)

type fixture struct {
	coordinator *Coordinator
	room        *internal_room.Room
	meeting     *internal_entity.Meeting
	admission   *internal_admission.Service
	store       internal_admission.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := commons.NewApplicationLogger()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "sqlite open should not fail")
	require.NoError(t, db.AutoMigrate(
		&internal_entity.Meeting{},
		&internal_entity.Participant{},
		&internal_entity.BreakoutRoom{},
	), "migration should not fail")

	meeting := &internal_entity.Meeting{
		Code:       "abc-defg-hij",
		Title:      "Planning",
		HostUserId: 1,
		Status:     internal_entity.MeetingLive,
	}
	require.NoError(t, db.Create(meeting).Error, "seed meeting should not fail")

	store := internal_admission.NewStore(logger, db)
	admission := internal_admission.NewService(store, logger)

	pool, err := internal_sfu.NewWorkerPool(internal_sfu.NewMemoryEngine(), 1, logger)
	require.NoError(t, err, "pool creation should not fail")
	t.Cleanup(func() { _ = pool.Close() })

	room, err := internal_room.NewRoom(meeting.Code, pool, logger)
	require.NoError(t, err, "room creation should not fail")
	t.Cleanup(func() { _ = room.Close() })

	ctx := context.Background()
	for userId := uint64(1); userId <= 3; userId++ {
		_, err := admission.Join(ctx, meeting.Code, &internal_token.Identity{
			UserId: userId,
			Email:  fmt.Sprintf("user%d@example.com", userId),
			Name:   fmt.Sprintf("User %d", userId),
		})
		require.NoError(t, err, "join should not fail")
		_, err = room.AddPeer(userId, fmt.Sprintf("User %d", userId))
		require.NoError(t, err, "add peer should not fail")
	}

	return &fixture{
		coordinator: NewCoordinator(db, admission, logger),
		room:        room,
		meeting:     meeting,
		admission:   admission,
		store:       store,
	}
}

func TestCreateAndCloseRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assigned, err := f.coordinator.Create(ctx, f.room, f.meeting.Id, []RoomConfig{
		{Name: "Design", UserIds: []uint64{2}},
		{Name: "Backend", UserIds: []uint64{3}},
	}, nil, nil)
	require.NoError(t, err, "create should not fail")
	assert.Len(t, assigned.Rooms, 2, "two breakout rows expected")
	assert.Len(t, assigned.Assignments, 2, "two users assigned")
	assert.Nil(t, assigned.Assignments[0].EndsAt, "no deadline without a duration")

	scope, err := f.room.PeerScope(2)
	require.NoError(t, err, "scope lookup should not fail")
	assert.NotEqual(t, internal_room.MainScope, scope, "assigned user should leave main")

	moved, err := f.coordinator.CloseAll(ctx, f.room, f.meeting.Id)
	require.NoError(t, err, "close should not fail")
	assert.ElementsMatch(t, []uint64{2, 3}, moved, "both users return to main")

	for _, userId := range []uint64{1, 2, 3} {
		scope, err := f.room.PeerScope(userId)
		require.NoError(t, err, "scope lookup should not fail")
		assert.Equal(t, internal_room.MainScope, scope, "everyone is back on main")
	}

	active, err := f.coordinator.ActiveRooms(ctx, f.meeting.Id)
	require.NoError(t, err, "active lookup should not fail")
	assert.Empty(t, active, "no active breakout rows remain")

	_, err = f.coordinator.CloseAll(ctx, f.room, f.meeting.Id)
	assert.ErrorIs(t, err, ErrNoneActive, "closing twice should report nothing active")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coordinator.Create(ctx, f.room, f.meeting.Id, nil, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig, "zero rooms must be rejected")

	tooMany := make([]RoomConfig, MaxRooms+1)
	for i := range tooMany {
		tooMany[i] = RoomConfig{Name: fmt.Sprintf("Room %d", i)}
	}
	_, err = f.coordinator.Create(ctx, f.room, f.meeting.Id, tooMany, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig, "more than the max rooms must be rejected")

	_, err = f.coordinator.Create(ctx, f.room, f.meeting.Id, []RoomConfig{{Name: ""}}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig, "empty room name must be rejected")

	longDuration := MaxDurationMins + 1
	_, err = f.coordinator.Create(ctx, f.room, f.meeting.Id,
		[]RoomConfig{{Name: "Design"}}, &longDuration, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig, "duration above the cap must be rejected")

	_, err = f.coordinator.Create(ctx, f.room, f.meeting.Id, []RoomConfig{
		{Name: "Design", UserIds: []uint64{2}},
		{Name: "Backend", UserIds: []uint64{2}},
	}, nil, nil)
	assert.ErrorIs(t, err, ErrDuplicateUsers, "one user cannot sit in two rooms")
}

func TestSecondCreateWhileActiveRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.coordinator.Create(ctx, f.room, f.meeting.Id,
		[]RoomConfig{{Name: "Design", UserIds: []uint64{2}}}, nil, nil)
	require.NoError(t, err, "create should not fail")

	_, err = f.coordinator.Create(ctx, f.room, f.meeting.Id,
		[]RoomConfig{{Name: "Another"}}, nil, nil)
	assert.ErrorIs(t, err, ErrAlreadyActive, "a second active set must be rejected")
}

func TestManualCloseCancelsAutoCloseTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	fired := make(chan struct{}, 1)
	duration := 1
	assigned, err := f.coordinator.Create(ctx, f.room, f.meeting.Id,
		[]RoomConfig{{Name: "Design", UserIds: []uint64{2}}}, &duration,
		func() { fired <- struct{}{} })
	require.NoError(t, err, "create should not fail")
	require.Len(t, assigned.Assignments, 1, "one user assigned")
	require.NotNil(t, assigned.Assignments[0].EndsAt,
		"a timed breakout carries its deadline to the assignment")

	_, err = f.coordinator.CloseAll(ctx, f.room, f.meeting.Id)
	require.NoError(t, err, "close should not fail")

	select {
	case <-fired:
		t.Fatal("auto-close fired after a manual close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNeverJoinedUsersAreSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assigned, err := f.coordinator.Create(ctx, f.room, f.meeting.Id,
		[]RoomConfig{{Name: "Design", UserIds: []uint64{2, 99}}}, nil, nil)
	require.NoError(t, err, "create should not fail")
	assert.Len(t, assigned.Assignments, 1, "a user without a participant row is not assigned")
	assert.Equal(t, uint64(2), assigned.Assignments[0].UserId, "the joined user is assigned")
}

func TestOfflineAssigneePlacedDurably(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// User 4 joined the meeting earlier but has no live peer right now.
	_, err := f.admission.Join(ctx, f.meeting.Code, &internal_token.Identity{
		UserId: 4,
		Email:  "user4@example.com",
		Name:   "User 4",
	})
	require.NoError(t, err, "join should not fail")

	assigned, err := f.coordinator.Create(ctx, f.room, f.meeting.Id,
		[]RoomConfig{{Name: "Design", UserIds: []uint64{2, 4}}}, nil, nil)
	require.NoError(t, err, "create should not fail")
	assert.Len(t, assigned.Assignments, 2, "the offline assignee is still assigned")

	p, err := f.store.GetParticipant(ctx, f.meeting.Id, 4)
	require.NoError(t, err, "participant lookup should not fail")
	assert.Equal(t, internal_entity.StatusInBreakout, p.Status,
		"durable placement does not depend on a live connection")
	require.NotNil(t, p.BreakoutRoomId, "breakoutRoomId is set while IN_BREAKOUT")

	_, err = f.room.PeerScope(4)
	assert.ErrorIs(t, err, internal_room.ErrPeerNotFound, "no live peer was seated")

	_, err = f.coordinator.CloseAll(ctx, f.room, f.meeting.Id)
	require.NoError(t, err, "close should not fail")

	p, err = f.store.GetParticipant(ctx, f.meeting.Id, 4)
	require.NoError(t, err, "participant lookup should not fail")
	assert.Equal(t, internal_entity.StatusInMeeting, p.Status,
		"dissolving breakouts reverts offline assignees too")
	assert.Nil(t, p.BreakoutRoomId, "breakoutRoomId is null outside breakouts")
}
