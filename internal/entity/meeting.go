// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_entity

import (
	"time"

	gorm_model "github.com/rapidaai/meet/pkg/models/gorm"
)

type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "SCHEDULED"
	MeetingLive      MeetingStatus = "LIVE"
	MeetingEnded     MeetingStatus = "ENDED"
)

type User struct {
	gorm_model.Audited
	Name      string `json:"name" gorm:"type:string;size:200;not null"`
	Email     string `json:"email" gorm:"type:string;size:320;not null;uniqueIndex"`
	AvatarUrl string `json:"avatarUrl" gorm:"type:string;size:2048"`
}

// Meeting is the durable record behind a room. Instant meetings have a nil
// ScheduledAt and are garbage-collected by the reminder scheduler when idle.
type Meeting struct {
	gorm_model.Audited
	Code         string        `json:"code" gorm:"type:string;size:12;not null;uniqueIndex"`
	Title        string        `json:"title" gorm:"type:string;size:200;not null"`
	HostUserId   uint64        `json:"hostUserId" gorm:"type:bigint;not null"`
	LobbyEnabled bool          `json:"lobbyEnabled" gorm:"not null;default:false"`
	Status       MeetingStatus `json:"status" gorm:"type:string;size:20;not null;default:SCHEDULED"`
	ScheduledAt  *time.Time    `json:"scheduledAt"`
	StartedAt    *time.Time    `json:"startedAt"`
	EndedAt      *time.Time    `json:"endedAt"`

	Participants  []*Participant  `json:"participants" gorm:"foreignKey:MeetingId;constraint:OnDelete:CASCADE"`
	BreakoutRooms []*BreakoutRoom `json:"breakoutRooms" gorm:"foreignKey:MeetingId;constraint:OnDelete:CASCADE"`
	Reminders     []*Reminder     `json:"reminders" gorm:"foreignKey:MeetingId;constraint:OnDelete:CASCADE"`
}

// CREATE TABLE meetings (
//     id BIGINT PRIMARY KEY,
//     created_date TIMESTAMP NOT NULL DEFAULT NOW(),
//     updated_date TIMESTAMP,
//     code VARCHAR(12) NOT NULL UNIQUE,
//     title VARCHAR(200) NOT NULL,
//     host_user_id BIGINT NOT NULL,
//     lobby_enabled BOOLEAN NOT NULL DEFAULT FALSE,
//     status VARCHAR(20) NOT NULL DEFAULT 'SCHEDULED',
//     scheduled_at TIMESTAMP,
//     started_at TIMESTAMP,
//     ended_at TIMESTAMP
// );
