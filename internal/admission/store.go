// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_admission

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	internal_entity "github.com/rapidaai/meet/internal/entity"
	"github.com/rapidaai/meet/pkg/commons"
)

var ErrNotFound = errors.New("admission: not found")

// Store is the durable side of the admission machine. Participant rows are
// the authoritative state; the in-memory room only mirrors the live subset.
type Store interface {
	GetMeetingByCode(ctx context.Context, code string) (*internal_entity.Meeting, error)
	GetMeeting(ctx context.Context, meetingId uint64) (*internal_entity.Meeting, error)
	UpdateMeeting(ctx context.Context, meeting *internal_entity.Meeting) error

	GetParticipant(ctx context.Context, meetingId, userId uint64) (*internal_entity.Participant, error)
	GetParticipantById(ctx context.Context, participantId uint64) (*internal_entity.Participant, error)
	ListParticipants(ctx context.Context, meetingId uint64, statuses ...internal_entity.ParticipantStatus) ([]*internal_entity.Participant, error)
	CreateParticipant(ctx context.Context, participant *internal_entity.Participant) error
	UpdateParticipant(ctx context.Context, participant *internal_entity.Participant) error

	// TransferHost demotes the current host, promotes the target and updates
	// the meeting's host pointer in one transaction.
	TransferHost(ctx context.Context, meetingId, newHostUserId uint64) error

	// ClearBreakouts reverts every IN_BREAKOUT participant of the meeting to
	// the main floor in one statement.
	ClearBreakouts(ctx context.Context, meetingId uint64) error

	CreateInvitation(ctx context.Context, invitation *internal_entity.Invitation) error
}

type gormStore struct {
	logger commons.Logger
	db     *gorm.DB
}

func NewStore(logger commons.Logger, db *gorm.DB) Store {
	return &gormStore{logger: logger, db: db}
}

func (s *gormStore) GetMeetingByCode(ctx context.Context, code string) (*internal_entity.Meeting, error) {
	var meeting internal_entity.Meeting
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&meeting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting by code: %w", err)
	}
	return &meeting, nil
}

func (s *gormStore) GetMeeting(ctx context.Context, meetingId uint64) (*internal_entity.Meeting, error) {
	var meeting internal_entity.Meeting
	if err := s.db.WithContext(ctx).First(&meeting, meetingId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meeting: %w", err)
	}
	return &meeting, nil
}

func (s *gormStore) UpdateMeeting(ctx context.Context, meeting *internal_entity.Meeting) error {
	if err := s.db.WithContext(ctx).Save(meeting).Error; err != nil {
		return fmt.Errorf("failed to update meeting: %w", err)
	}
	return nil
}

func (s *gormStore) GetParticipant(ctx context.Context, meetingId, userId uint64) (*internal_entity.Participant, error) {
	var participant internal_entity.Participant
	err := s.db.WithContext(ctx).
		Where("meeting_id = ? AND user_id = ?", meetingId, userId).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &participant, nil
}

func (s *gormStore) GetParticipantById(ctx context.Context, participantId uint64) (*internal_entity.Participant, error) {
	var participant internal_entity.Participant
	if err := s.db.WithContext(ctx).First(&participant, participantId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return &participant, nil
}

func (s *gormStore) ListParticipants(ctx context.Context, meetingId uint64, statuses ...internal_entity.ParticipantStatus) ([]*internal_entity.Participant, error) {
	query := s.db.WithContext(ctx).Where("meeting_id = ?", meetingId)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var participants []*internal_entity.Participant
	if err := query.Order("joined_at asc").Find(&participants).Error; err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, nil
}

func (s *gormStore) CreateParticipant(ctx context.Context, participant *internal_entity.Participant) error {
	if err := s.db.WithContext(ctx).Create(participant).Error; err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}
	return nil
}

func (s *gormStore) UpdateParticipant(ctx context.Context, participant *internal_entity.Participant) error {
	if err := s.db.WithContext(ctx).Save(participant).Error; err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

func (s *gormStore) TransferHost(ctx context.Context, meetingId, newHostUserId uint64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var meeting internal_entity.Meeting
		if err := tx.First(&meeting, meetingId).Error; err != nil {
			return fmt.Errorf("failed to load meeting: %w", err)
		}
		var target internal_entity.Participant
		if err := tx.Where("meeting_id = ? AND user_id = ?", meetingId, newHostUserId).
			First(&target).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("failed to load target participant: %w", err)
		}

		if err := tx.Model(&internal_entity.Participant{}).
			Where("meeting_id = ? AND role = ?", meetingId, internal_entity.RoleHost).
			Update("role", internal_entity.RoleParticipant).Error; err != nil {
			return fmt.Errorf("failed to demote host: %w", err)
		}
		if err := tx.Model(&internal_entity.Participant{}).
			Where("id = ?", target.Id).
			Update("role", internal_entity.RoleHost).Error; err != nil {
			return fmt.Errorf("failed to promote new host: %w", err)
		}
		if err := tx.Model(&internal_entity.Meeting{}).
			Where("id = ?", meetingId).
			Update("host_user_id", newHostUserId).Error; err != nil {
			return fmt.Errorf("failed to update meeting host: %w", err)
		}
		return nil
	})
}

func (s *gormStore) ClearBreakouts(ctx context.Context, meetingId uint64) error {
	err := s.db.WithContext(ctx).Model(&internal_entity.Participant{}).
		Where("meeting_id = ? AND status = ?", meetingId, internal_entity.StatusInBreakout).
		Updates(map[string]interface{}{
			"status":           internal_entity.StatusInMeeting,
			"breakout_room_id": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to clear breakout placements: %w", err)
	}
	return nil
}

func (s *gormStore) CreateInvitation(ctx context.Context, invitation *internal_entity.Invitation) error {
	if err := s.db.WithContext(ctx).Create(invitation).Error; err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

func nowPtr(t time.Time) *time.Time { return &t }
