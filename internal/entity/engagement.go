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

type ChatMessage struct {
	gorm_model.Audited
	MeetingId    uint64 `json:"meetingId" gorm:"type:bigint;not null;index"`
	UserId       uint64 `json:"userId" gorm:"type:bigint;not null"`
	SenderName   string `json:"senderName" gorm:"type:string;size:200;not null"`
	SenderAvatar string `json:"senderAvatar" gorm:"type:string;size:2048"`
	Content      string `json:"content" gorm:"type:text;not null"`
}

type Question struct {
	gorm_model.Audited
	MeetingId  uint64 `json:"meetingId" gorm:"type:bigint;not null;index"`
	UserId     uint64 `json:"userId" gorm:"type:bigint;not null"`
	AuthorName string `json:"authorName" gorm:"type:string;size:200;not null"`
	Content    string `json:"content" gorm:"type:text;not null"`
	Answered   bool   `json:"answered" gorm:"not null;default:false"`
	Pinned     bool   `json:"pinned" gorm:"not null;default:false"`

	Upvotes []*Upvote `json:"upvotes" gorm:"foreignKey:QuestionId;constraint:OnDelete:CASCADE"`
}

// Upvote rows are unique per (question, user). The constraint is what makes
// the upvote toggle idempotent under racing requests: a concurrent second
// insert loses on the index instead of double-counting.
type Upvote struct {
	gorm_model.Audited
	QuestionId uint64 `json:"questionId" gorm:"type:bigint;not null;uniqueIndex:idx_upvote_question_user"`
	UserId     uint64 `json:"userId" gorm:"type:bigint;not null;uniqueIndex:idx_upvote_question_user"`
}

type ReminderType string

const (
	ReminderEmail ReminderType = "EMAIL"
	ReminderInApp ReminderType = "IN_APP"
)

type Reminder struct {
	gorm_model.Audited
	MeetingId     uint64       `json:"meetingId" gorm:"type:bigint;not null;index"`
	Type          ReminderType `json:"type" gorm:"type:string;size:20;not null"`
	MinutesBefore int          `json:"minutesBefore" gorm:"type:int;not null"`
	TriggerAt     time.Time    `json:"triggerAt" gorm:"not null;index"`
	Sent          bool         `json:"sent" gorm:"not null;default:false"`
	TargetEmail   string       `json:"targetEmail" gorm:"type:string;size:320"`
}
