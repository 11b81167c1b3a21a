// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	internal_entity "github.com/rapidaai/meet/internal/entity"
	internal_mailer "github.com/rapidaai/meet/internal/mailer"
	internal_room "github.com/rapidaai/meet/internal/room"
	"github.com/rapidaai/meet/pkg/commons"
)

const (
	tickInterval = time.Minute
	// reminderBatchSize caps one pass so a backlog cannot stall the tick.
	reminderBatchSize = 50
	// idleThreshold is how long an instant meeting may sit unused before GC.
	idleThreshold = 30 * time.Minute

	leaseKey = "meet:scheduler:lease"
	leaseTTL = 90 * time.Second
)

// Notifier is the signaling-side surface the scheduler needs: in-app pushes
// and liveness checks for the idle-meeting GC.
type Notifier interface {
	PushReminder(targetEmail string, payload interface{}) bool
	ConnectedUserIds(meetingId uint64) []uint64
}

// Scheduler runs the 1-minute maintenance tick: fire due reminders, then
// garbage-collect idle instant meetings. With redis configured, a lease
// keeps the passes on a single instance at a time.
type Scheduler struct {
	instanceId string
	db         *gorm.DB
	mailer     internal_mailer.Sender
	notifier   Notifier
	rooms      *internal_room.Registry
	redis      *redis.Client
	logger     commons.Logger
}

func NewScheduler(
	db *gorm.DB,
	sender internal_mailer.Sender,
	notifier Notifier,
	rooms *internal_room.Registry,
	redisClient *redis.Client,
	logger commons.Logger,
) *Scheduler {
	return &Scheduler{
		instanceId: uuid.New().String(),
		db:         db,
		mailer:     sender,
		notifier:   notifier,
		rooms:      rooms,
		redis:      redisClient,
		logger:     logger,
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	s.logger.Infow("reminder scheduler started", "instance", s.instanceId)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("reminder scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx, time.Now())
		}
	}
}

// Tick runs one scheduler round when this instance holds the lease.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	if !s.acquireLease(ctx) {
		return
	}
	if err := s.FireReminders(ctx, now); err != nil {
		s.logger.Errorw("reminder pass failed", "error", err)
	}
	if err := s.CollectIdleMeetings(ctx, now); err != nil {
		s.logger.Errorw("idle meeting gc failed", "error", err)
	}
}

// acquireLease takes or renews the single-runner lease. Without redis the
// deployment is assumed single-instance and the tick always runs.
func (s *Scheduler) acquireLease(ctx context.Context) bool {
	if s.redis == nil {
		return true
	}
	ok, err := s.redis.SetNX(ctx, leaseKey, s.instanceId, leaseTTL).Result()
	if err != nil {
		s.logger.Warnw("lease acquisition failed, skipping tick", "error", err)
		return false
	}
	if ok {
		return true
	}
	holder, err := s.redis.Get(ctx, leaseKey).Result()
	if err != nil || holder != s.instanceId {
		return false
	}
	// Renew our own lease.
	if err := s.redis.Set(ctx, leaseKey, s.instanceId, leaseTTL).Err(); err != nil {
		s.logger.Warnw("lease renewal failed", "error", err)
		return false
	}
	return true
}

// FireReminders is pass A: deliver due reminders. A reminder is marked sent
// only when every delivery succeeded, so the next tick retries the rest.
func (s *Scheduler) FireReminders(ctx context.Context, now time.Time) error {
	var due []*internal_entity.Reminder
	err := s.db.WithContext(ctx).
		Where("sent = ? AND trigger_at <= ?", false, now).
		Order("trigger_at asc").
		Limit(reminderBatchSize).
		Find(&due).Error
	if err != nil {
		return fmt.Errorf("failed to load due reminders: %w", err)
	}

	for _, reminder := range due {
		var meeting internal_entity.Meeting
		if err := s.db.WithContext(ctx).First(&meeting, reminder.MeetingId).Error; err != nil {
			s.logger.Warnw("reminder references missing meeting",
				"reminder", reminder.Id, "meeting", reminder.MeetingId)
			continue
		}

		delivered := true
		switch reminder.Type {
		case internal_entity.ReminderEmail:
			delivered = s.fireEmailReminder(ctx, reminder, &meeting)
		case internal_entity.ReminderInApp:
			s.notifier.PushReminder(reminder.TargetEmail, reminderPayload(reminder, &meeting))
		}
		if !delivered {
			continue
		}
		if err := s.db.WithContext(ctx).Model(reminder).Update("sent", true).Error; err != nil {
			s.logger.Errorw("failed to mark reminder sent", "reminder", reminder.Id, "error", err)
		}
	}
	return nil
}

// fireEmailReminder fans one email out to every non-removed participant,
// sequentially. Errors are logged; any failure leaves the reminder unsent.
func (s *Scheduler) fireEmailReminder(ctx context.Context, reminder *internal_entity.Reminder, meeting *internal_entity.Meeting) bool {
	var participants []*internal_entity.Participant
	err := s.db.WithContext(ctx).
		Where("meeting_id = ? AND status <> ?", meeting.Id, internal_entity.StatusRemoved).
		Find(&participants).Error
	if err != nil {
		s.logger.Errorw("failed to load reminder recipients", "reminder", reminder.Id, "error", err)
		return false
	}

	subject := fmt.Sprintf("Reminder: %s starts in %d minutes", meeting.Title, reminder.MinutesBefore)
	body := fmt.Sprintf("Your meeting %s (code %s) starts in %d minutes.",
		meeting.Title, meeting.Code, reminder.MinutesBefore)

	allOk := true
	for _, p := range participants {
		if err := s.mailer.Send(ctx, p.Email, subject, body, ""); err != nil {
			s.logger.Warnw("reminder email failed",
				"reminder", reminder.Id, "to", p.Email, "error", err)
			allOk = false
		}
	}
	return allOk
}

func reminderPayload(reminder *internal_entity.Reminder, meeting *internal_entity.Meeting) map[string]interface{} {
	return map[string]interface{}{
		"type":          reminder.Type,
		"meetingId":     meeting.Id,
		"meetingTitle":  meeting.Title,
		"meetingCode":   meeting.Code,
		"minutesBefore": reminder.MinutesBefore,
		"targetEmail":   reminder.TargetEmail,
	}
}

// CollectIdleMeetings is pass B: delete instant meetings that were never
// joined or that everyone abandoned more than idleThreshold ago. Dependent
// rows go with the cascade.
func (s *Scheduler) CollectIdleMeetings(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-idleThreshold)

	var candidates []*internal_entity.Meeting
	err := s.db.WithContext(ctx).
		Where("scheduled_at IS NULL AND status <> ?", internal_entity.MeetingEnded).
		Find(&candidates).Error
	if err != nil {
		return fmt.Errorf("failed to load gc candidates: %w", err)
	}

	for _, meeting := range candidates {
		collect := false
		switch meeting.Status {
		case internal_entity.MeetingScheduled:
			collect = meeting.CreatedDate.Before(cutoff)
		case internal_entity.MeetingLive:
			if len(s.notifier.ConnectedUserIds(meeting.Id)) > 0 {
				continue
			}
			var recent int64
			err := s.db.WithContext(ctx).Model(&internal_entity.Participant{}).
				Where("meeting_id = ? AND left_at > ?", meeting.Id, cutoff).
				Count(&recent).Error
			if err != nil {
				s.logger.Errorw("failed to check meeting activity", "meeting", meeting.Id, "error", err)
				continue
			}
			collect = recent == 0
		}
		if !collect {
			continue
		}

		if err := s.db.WithContext(ctx).Select("Participants", "BreakoutRooms", "Reminders").
			Delete(meeting).Error; err != nil {
			s.logger.Errorw("failed to delete idle meeting", "meeting", meeting.Id, "error", err)
			continue
		}
		s.rooms.Remove(meeting.Code)
		s.logger.Infow("collected idle instant meeting", "meeting", meeting.Id, "code", meeting.Code)
	}
	return nil
}
