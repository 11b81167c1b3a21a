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

type ParticipantRole string

const (
	RoleHost        ParticipantRole = "HOST"
	RoleCoHost      ParticipantRole = "CO_HOST"
	RoleParticipant ParticipantRole = "PARTICIPANT"
)

type ParticipantStatus string

const (
	StatusInLobby    ParticipantStatus = "IN_LOBBY"
	StatusInMeeting  ParticipantStatus = "IN_MEETING"
	StatusInBreakout ParticipantStatus = "IN_BREAKOUT"
	StatusRemoved    ParticipantStatus = "REMOVED"
)

// Participant binds a user to a meeting. Status is the authoritative
// admission state; the in-memory room only caches the live subset.
// BreakoutRoomId is non-null exactly while status is IN_BREAKOUT.
type Participant struct {
	gorm_model.Audited
	UserId         uint64            `json:"userId" gorm:"type:bigint;not null;uniqueIndex:idx_participant_user_meeting"`
	MeetingId      uint64            `json:"meetingId" gorm:"type:bigint;not null;uniqueIndex:idx_participant_user_meeting"`
	Role           ParticipantRole   `json:"role" gorm:"type:string;size:20;not null;default:PARTICIPANT"`
	Status         ParticipantStatus `json:"status" gorm:"type:string;size:20;not null;default:IN_LOBBY"`
	BreakoutRoomId *uint64           `json:"breakoutRoomId" gorm:"type:bigint"`
	JoinedAt       time.Time         `json:"joinedAt" gorm:"not null"`
	LeftAt         *time.Time        `json:"leftAt"`

	// Identity snapshot taken at first join so rosters survive profile edits.
	Name      string `json:"name" gorm:"type:string;size:200;not null"`
	Email     string `json:"email" gorm:"type:string;size:320;not null"`
	AvatarUrl string `json:"avatarUrl" gorm:"type:string;size:2048"`
}

type BreakoutRoom struct {
	gorm_model.Audited
	MeetingId uint64     `json:"meetingId" gorm:"type:bigint;not null;index"`
	Name      string     `json:"name" gorm:"type:string;size:100;not null"`
	IsActive  bool       `json:"isActive" gorm:"not null;default:true"`
	EndsAt    *time.Time `json:"endsAt"`
}

type Invitation struct {
	gorm_model.Audited
	MeetingId       uint64     `json:"meetingId" gorm:"type:bigint;not null;index"`
	Email           string     `json:"email" gorm:"type:string;size:320;not null"`
	InvitedByUserId uint64     `json:"invitedByUserId" gorm:"type:bigint;not null"`
	AcceptedAt      *time.Time `json:"acceptedAt"`
}
