// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_breakout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	internal_admission "github.com/rapidaai/meet/internal/admission"
	internal_entity "github.com/rapidaai/meet/internal/entity"
	internal_room "github.com/rapidaai/meet/internal/room"
	"github.com/rapidaai/meet/pkg/commons"
)

var (
	ErrInvalidConfig  = errors.New("breakout: invalid breakout configuration")
	ErrAlreadyActive  = errors.New("breakout: meeting already has active breakouts")
	ErrNoneActive     = errors.New("breakout: no active breakouts")
	ErrDuplicateUsers = errors.New("breakout: participant assigned to more than one room")
)

const (
	MaxRooms        = 20
	MaxNameLength   = 100
	MaxDurationMins = 120
)

// RoomConfig is one requested breakout room with its assigned users.
type RoomConfig struct {
	Name    string   `json:"name"`
	UserIds []uint64 `json:"participantIds"`
}

// Assignment reports where one user ended up.
type Assignment struct {
	UserId     uint64
	BreakoutId uint64
	Name       string
	EndsAt     *time.Time
}

// Assigned is everything the caller needs to fan out breakout events.
type Assigned struct {
	Rooms       []*internal_entity.BreakoutRoom
	Assignments []Assignment
}

// Coordinator creates and dissolves breakout rooms: durable rows first, then
// router provisioning and peer moves, then an optional auto-close timer. A
// manual close cancels the timer; the timer fires the close function the
// caller supplied at create time.
type Coordinator struct {
	mu        sync.Mutex
	db        *gorm.DB
	admission *internal_admission.Service
	timers    map[uint64]*time.Timer
	logger    commons.Logger
}

func NewCoordinator(db *gorm.DB, admission *internal_admission.Service, logger commons.Logger) *Coordinator {
	return &Coordinator{
		db:        db,
		admission: admission,
		timers:    make(map[uint64]*time.Timer),
		logger:    logger,
	}
}

func validate(configs []RoomConfig, durationMins *int) error {
	if len(configs) < 1 || len(configs) > MaxRooms {
		return fmt.Errorf("%w: need 1..%d rooms, got %d", ErrInvalidConfig, MaxRooms, len(configs))
	}
	if durationMins != nil && (*durationMins < 1 || *durationMins > MaxDurationMins) {
		return fmt.Errorf("%w: duration must be 1..%d minutes", ErrInvalidConfig, MaxDurationMins)
	}
	seen := make(map[uint64]bool)
	for _, cfg := range configs {
		if len(cfg.Name) < 1 || len(cfg.Name) > MaxNameLength {
			return fmt.Errorf("%w: room name must be 1..%d characters", ErrInvalidConfig, MaxNameLength)
		}
		for _, userId := range cfg.UserIds {
			if seen[userId] {
				return ErrDuplicateUsers
			}
			seen[userId] = true
		}
	}
	return nil
}

// Create persists the breakout rooms, provisions a router per room, moves
// every assigned live peer and schedules autoClose when a duration is given.
// Users named in a config but not currently live are skipped.
func (c *Coordinator) Create(
	ctx context.Context,
	liveRoom *internal_room.Room,
	meetingId uint64,
	configs []RoomConfig,
	durationMins *int,
	autoClose func(),
) (*Assigned, error) {
	if err := validate(configs, durationMins); err != nil {
		return nil, err
	}

	var active int64
	if err := c.db.WithContext(ctx).Model(&internal_entity.BreakoutRoom{}).
		Where("meeting_id = ? AND is_active = ?", meetingId, true).
		Count(&active).Error; err != nil {
		return nil, fmt.Errorf("failed to count active breakouts: %w", err)
	}
	if active > 0 {
		return nil, ErrAlreadyActive
	}

	var endsAt *time.Time
	if durationMins != nil {
		t := time.Now().Add(time.Duration(*durationMins) * time.Minute)
		endsAt = &t
	}

	result := &Assigned{}
	for _, cfg := range configs {
		row := &internal_entity.BreakoutRoom{
			MeetingId: meetingId,
			Name:      cfg.Name,
			IsActive:  true,
			EndsAt:    endsAt,
		}
		if err := c.db.WithContext(ctx).Create(row).Error; err != nil {
			return nil, fmt.Errorf("failed to persist breakout room: %w", err)
		}
		if err := liveRoom.CreateBreakout(row.Id); err != nil {
			return nil, err
		}
		result.Rooms = append(result.Rooms, row)

		for _, userId := range cfg.UserIds {
			// Durable placement first; the live move only applies to peers
			// currently connected. An offline assignee keeps IN_BREAKOUT so
			// durable state stays authoritative for the whole window.
			breakoutId := row.Id
			if err := c.admission.SetBreakout(ctx, meetingId, userId, &breakoutId); err != nil {
				if errors.Is(err, internal_admission.ErrNotFound) {
					c.logger.Warnw("breakout assignee never joined the meeting",
						"meeting", meetingId, "user", userId)
					continue
				}
				return nil, err
			}
			if err := liveRoom.MovePeerToBreakout(userId, row.Id); err != nil &&
				!errors.Is(err, internal_room.ErrPeerNotFound) {
				return nil, err
			}
			result.Assignments = append(result.Assignments, Assignment{
				UserId:     userId,
				BreakoutId: row.Id,
				Name:       cfg.Name,
				EndsAt:     row.EndsAt,
			})
		}
	}

	if durationMins != nil && autoClose != nil {
		d := time.Duration(*durationMins) * time.Minute
		c.mu.Lock()
		c.timers[meetingId] = time.AfterFunc(d, autoClose)
		c.mu.Unlock()
	}

	c.logger.Infow("breakouts created",
		"meeting", meetingId, "rooms", len(result.Rooms), "assigned", len(result.Assignments))
	return result, nil
}

// CloseAll dissolves every active breakout of a meeting: cancel the timer,
// revert the durable rows and placements, then move every live breakout peer
// back to main. Returns the user ids that were reseated.
func (c *Coordinator) CloseAll(ctx context.Context, liveRoom *internal_room.Room, meetingId uint64) ([]uint64, error) {
	c.CancelTimer(meetingId)

	var rows []*internal_entity.BreakoutRoom
	err := c.db.WithContext(ctx).
		Where("meeting_id = ? AND is_active = ?", meetingId, true).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active breakouts: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoneActive
	}

	// Durable state first: rows inactive and every IN_BREAKOUT participant
	// reverted, offline assignees included. The live teardown follows.
	if err := c.db.WithContext(ctx).Model(&internal_entity.BreakoutRoom{}).
		Where("meeting_id = ? AND is_active = ?", meetingId, true).
		Update("is_active", false).Error; err != nil {
		return nil, fmt.Errorf("failed to deactivate breakouts: %w", err)
	}
	if err := c.admission.ClearBreakouts(ctx, meetingId); err != nil {
		return nil, err
	}

	moved, err := liveRoom.CloseAllBreakouts()
	if err != nil {
		return nil, err
	}

	c.logger.Infow("breakouts closed", "meeting", meetingId, "moved", len(moved))
	return moved, nil
}

// CancelTimer stops a pending auto-close without firing it.
func (c *Coordinator) CancelTimer(meetingId uint64) {
	c.mu.Lock()
	if timer, ok := c.timers[meetingId]; ok {
		timer.Stop()
		delete(c.timers, meetingId)
	}
	c.mu.Unlock()
}

// ActiveRooms lists the active breakout rows of a meeting.
func (c *Coordinator) ActiveRooms(ctx context.Context, meetingId uint64) ([]*internal_entity.BreakoutRoom, error) {
	var rows []*internal_entity.BreakoutRoom
	err := c.db.WithContext(ctx).
		Where("meeting_id = ? AND is_active = ?", meetingId, true).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active breakouts: %w", err)
	}
	return rows, nil
}
