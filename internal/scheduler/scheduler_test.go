// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"

	internal_entity "github.com/rapidaai/meet/internal/entity"
	internal_room "github.com/rapidaai/meet/internal/room"
	internal_sfu "github.com/rapidaai/meet/internal/sfu"
	"github.com/rapidaai/meet/pkg/commons"
)

type fakeMailer struct {
	sent    []string
	failFor map[string]bool
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, plain, html string) error {
	if m.failFor[to] {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakeNotifier struct {
	pushes    []string
	connected map[uint64][]uint64
}

func (n *fakeNotifier) PushReminder(targetEmail string, payload interface{}) bool {
	n.pushes = append(n.pushes, targetEmail)
	return true
}

func (n *fakeNotifier) ConnectedUserIds(meetingId uint64) []uint64 {
	return n.connected[meetingId]
}

type harness struct {
	scheduler *Scheduler
	db        *gorm.DB
	mailer    *fakeMailer
	notifier  *fakeNotifier
	rooms     *internal_room.Registry
}

func newHarness(t *testing.T) *harness {
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
		&internal_entity.Reminder{},
	), "migration should not fail")

	pool, err := internal_sfu.NewWorkerPool(internal_sfu.NewMemoryEngine(), 1, logger)
	require.NoError(t, err, "pool creation should not fail")
	t.Cleanup(func() { _ = pool.Close() })
	rooms := internal_room.NewRegistry(pool, logger)
	t.Cleanup(rooms.Close)

	mailer := &fakeMailer{failFor: make(map[string]bool)}
	notifier := &fakeNotifier{connected: make(map[uint64][]uint64)}
	return &harness{
		scheduler: NewScheduler(db, mailer, notifier, rooms, nil, logger),
		db:        db,
		mailer:    mailer,
		notifier:  notifier,
		rooms:     rooms,
	}
}

func (h *harness) seedMeeting(t *testing.T, code string, status internal_entity.MeetingStatus, scheduledAt *time.Time) *internal_entity.Meeting {
	t.Helper()
	meeting := &internal_entity.Meeting{
		Code:        code,
		Title:       "Standup",
		HostUserId:  1,
		Status:      status,
		ScheduledAt: scheduledAt,
	}
	require.NoError(t, h.db.Create(meeting).Error, "seed meeting should not fail")
	return meeting
}

func (h *harness) seedParticipant(t *testing.T, meetingId, userId uint64, email string, leftAt *time.Time) {
	t.Helper()
	require.NoError(t, h.db.Create(&internal_entity.Participant{
		UserId:    userId,
		MeetingId: meetingId,
		Role:      internal_entity.RoleParticipant,
		Status:    internal_entity.StatusInMeeting,
		JoinedAt:  time.Now(),
		LeftAt:    leftAt,
		Name:      "User",
		Email:     email,
	}).Error, "seed participant should not fail")
}

func TestEmailReminderFansOutAndMarksSent(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	future := now.Add(time.Hour)
	meeting := h.seedMeeting(t, "aaa-bbbb-ccc", internal_entity.MeetingScheduled, &future)
	h.seedParticipant(t, meeting.Id, 1, "host@example.com", nil)
	h.seedParticipant(t, meeting.Id, 2, "guest@example.com", nil)

	reminder := &internal_entity.Reminder{
		MeetingId:     meeting.Id,
		Type:          internal_entity.ReminderEmail,
		MinutesBefore: 15,
		TriggerAt:     now.Add(-time.Minute),
	}
	require.NoError(t, h.db.Create(reminder).Error, "seed reminder should not fail")

	require.NoError(t, h.scheduler.FireReminders(context.Background(), now), "pass should not fail")
	assert.ElementsMatch(t, []string{"host@example.com", "guest@example.com"}, h.mailer.sent,
		"every participant gets the email")

	var reloaded internal_entity.Reminder
	require.NoError(t, h.db.First(&reloaded, reminder.Id).Error, "reload should not fail")
	assert.True(t, reloaded.Sent, "fully delivered reminder is marked sent")
}

func TestPartialEmailFailureLeavesReminderUnsent(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	future := now.Add(time.Hour)
	meeting := h.seedMeeting(t, "aaa-bbbb-ccc", internal_entity.MeetingScheduled, &future)
	h.seedParticipant(t, meeting.Id, 1, "host@example.com", nil)
	h.seedParticipant(t, meeting.Id, 2, "broken@example.com", nil)
	h.mailer.failFor["broken@example.com"] = true

	reminder := &internal_entity.Reminder{
		MeetingId: meeting.Id,
		Type:      internal_entity.ReminderEmail,
		TriggerAt: now.Add(-time.Minute),
	}
	require.NoError(t, h.db.Create(reminder).Error, "seed reminder should not fail")

	require.NoError(t, h.scheduler.FireReminders(context.Background(), now), "pass should not fail")

	var reloaded internal_entity.Reminder
	require.NoError(t, h.db.First(&reloaded, reminder.Id).Error, "reload should not fail")
	assert.False(t, reloaded.Sent, "a partial failure leaves the reminder for the next tick")
}

func TestInAppReminderPushes(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	future := now.Add(time.Hour)
	meeting := h.seedMeeting(t, "aaa-bbbb-ccc", internal_entity.MeetingScheduled, &future)

	require.NoError(t, h.db.Create(&internal_entity.Reminder{
		MeetingId:   meeting.Id,
		Type:        internal_entity.ReminderInApp,
		TriggerAt:   now.Add(-time.Minute),
		TargetEmail: "guest@example.com",
	}).Error, "seed reminder should not fail")

	require.NoError(t, h.scheduler.FireReminders(context.Background(), now), "pass should not fail")
	assert.Equal(t, []string{"guest@example.com"}, h.notifier.pushes, "the target gets the push")
}

func TestFutureRemindersAreLeftAlone(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	future := now.Add(time.Hour)
	meeting := h.seedMeeting(t, "aaa-bbbb-ccc", internal_entity.MeetingScheduled, &future)

	require.NoError(t, h.db.Create(&internal_entity.Reminder{
		MeetingId:   meeting.Id,
		Type:        internal_entity.ReminderInApp,
		TriggerAt:   now.Add(10 * time.Minute),
		TargetEmail: "guest@example.com",
	}).Error, "seed reminder should not fail")

	require.NoError(t, h.scheduler.FireReminders(context.Background(), now), "pass should not fail")
	assert.Empty(t, h.notifier.pushes, "not-yet-due reminders do not fire")
}

func TestGcDeletesNeverJoinedInstantMeeting(t *testing.T) {
	h := newHarness(t)
	now := time.Now()
	meeting := h.seedMeeting(t, "aaa-bbbb-ccc", internal_entity.MeetingScheduled, nil)
	// Age the row past the idle threshold.
	require.NoError(t, h.db.Model(meeting).
		Update("created_date", now.Add(-time.Hour)).Error, "aging should not fail")

	require.NoError(t, h.scheduler.CollectIdleMeetings(context.Background(), now), "gc should not fail")

	var count int64
	require.NoError(t, h.db.Model(&internal_entity.Meeting{}).Count(&count).Error, "count should not fail")
	assert.Equal(t, int64(0), count, "the stale instant meeting is deleted")
}

func TestGcSparesScheduledAndActiveMeetings(t *testing.T) {
	h := newHarness(t)
	now := time.Now()

	// A calendar meeting is never GC material.
	future := now.Add(time.Hour)
	h.seedMeeting(t, "aaa-bbbb-ccc", internal_entity.MeetingScheduled, &future)

	// A live instant meeting with a connected participant stays.
	live := h.seedMeeting(t, "ddd-eeee-fff", internal_entity.MeetingLive, nil)
	require.NoError(t, h.db.Model(live).
		Update("created_date", now.Add(-time.Hour)).Error, "aging should not fail")
	h.notifier.connected[live.Id] = []uint64{7}

	// A live instant meeting with recent departures stays too.
	recent := h.seedMeeting(t, "ggg-hhhh-iii", internal_entity.MeetingLive, nil)
	left := now.Add(-5 * time.Minute)
	h.seedParticipant(t, recent.Id, 3, "late@example.com", &left)

	require.NoError(t, h.scheduler.CollectIdleMeetings(context.Background(), now), "gc should not fail")

	var count int64
	require.NoError(t, h.db.Model(&internal_entity.Meeting{}).Count(&count).Error, "count should not fail")
	assert.Equal(t, int64(3), count, "none of the three meetings is collected")
}

func TestGcDeletesAbandonedLiveMeeting(t *testing.T) {
	h := newHarness(t)
	now := time.Now()

	abandoned := h.seedMeeting(t, "jjj-kkkk-lll", internal_entity.MeetingLive, nil)
	left := now.Add(-time.Hour)
	h.seedParticipant(t, abandoned.Id, 4, "gone@example.com", &left)

	require.NoError(t, h.scheduler.CollectIdleMeetings(context.Background(), now), "gc should not fail")

	var count int64
	require.NoError(t, h.db.Model(&internal_entity.Meeting{}).Count(&count).Error, "count should not fail")
	assert.Equal(t, int64(0), count, "the abandoned live meeting is collected")

	var participants int64
	require.NoError(t, h.db.Model(&internal_entity.Participant{}).Count(&participants).Error,
		"count should not fail")
	assert.Equal(t, int64(0), participants, "dependent rows are cascaded")
}
