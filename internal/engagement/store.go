// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_engagement

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	internal_entity "github.com/rapidaai/meet/internal/entity"
	"github.com/rapidaai/meet/pkg/commons"
)

var ErrNotFound = errors.New("engagement: not found")

// ChatHistoryLimit caps how many messages a history request returns.
const ChatHistoryLimit = 100

// Store holds the in-meeting engagement surfaces: chat and Q&A.
type Store interface {
	SendChat(ctx context.Context, message *internal_entity.ChatMessage) error
	// ChatHistory returns the last ChatHistoryLimit messages in ascending
	// creation order.
	ChatHistory(ctx context.Context, meetingId uint64) ([]*internal_entity.ChatMessage, error)

	AskQuestion(ctx context.Context, question *internal_entity.Question) error
	GetQuestion(ctx context.Context, questionId uint64) (*internal_entity.Question, error)
	ListQuestions(ctx context.Context, meetingId uint64) ([]*internal_entity.Question, error)

	// ToggleUpvote flips the caller's upvote on a question and returns the
	// resulting count and whether the caller now has an upvote.
	ToggleUpvote(ctx context.Context, questionId, userId uint64) (count int64, upvoted bool, err error)

	ToggleAnswered(ctx context.Context, questionId uint64) (*internal_entity.Question, error)
	TogglePinned(ctx context.Context, questionId uint64) (*internal_entity.Question, error)
}

type gormStore struct {
	logger commons.Logger
	db     *gorm.DB
}

func NewStore(logger commons.Logger, db *gorm.DB) Store {
	return &gormStore{logger: logger, db: db}
}

func (s *gormStore) SendChat(ctx context.Context, message *internal_entity.ChatMessage) error {
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return fmt.Errorf("failed to persist chat message: %w", err)
	}
	return nil
}

func (s *gormStore) ChatHistory(ctx context.Context, meetingId uint64) ([]*internal_entity.ChatMessage, error) {
	// Newest N selected descending, then reversed so the client renders
	// oldest first.
	var messages []*internal_entity.ChatMessage
	err := s.db.WithContext(ctx).
		Where("meeting_id = ?", meetingId).
		Order("created_date desc").
		Limit(ChatHistoryLimit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *gormStore) AskQuestion(ctx context.Context, question *internal_entity.Question) error {
	if err := s.db.WithContext(ctx).Create(question).Error; err != nil {
		return fmt.Errorf("failed to persist question: %w", err)
	}
	return nil
}

func (s *gormStore) GetQuestion(ctx context.Context, questionId uint64) (*internal_entity.Question, error) {
	var question internal_entity.Question
	if err := s.db.WithContext(ctx).First(&question, questionId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &question, nil
}

func (s *gormStore) ListQuestions(ctx context.Context, meetingId uint64) ([]*internal_entity.Question, error) {
	var questions []*internal_entity.Question
	err := s.db.WithContext(ctx).
		Preload("Upvotes").
		Where("meeting_id = ?", meetingId).
		Order("created_date asc").
		Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	return questions, nil
}

func (s *gormStore) ToggleUpvote(ctx context.Context, questionId, userId uint64) (int64, bool, error) {
	if _, err := s.GetQuestion(ctx, questionId); err != nil {
		return 0, false, err
	}

	upvoted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("question_id = ? AND user_id = ?", questionId, userId).
			Delete(&internal_entity.Upvote{})
		if result.Error != nil {
			return fmt.Errorf("failed to remove upvote: %w", result.Error)
		}
		if result.RowsAffected > 0 {
			return nil
		}
		// Nothing to remove, so this toggle adds one. A concurrent duplicate
		// loses on the unique index; treat that as the vote already counted.
		err := tx.Create(&internal_entity.Upvote{QuestionId: questionId, UserId: userId}).Error
		if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("failed to add upvote: %w", err)
		}
		upvoted = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&internal_entity.Upvote{}).
		Where("question_id = ?", questionId).Count(&count).Error; err != nil {
		return 0, false, fmt.Errorf("failed to count upvotes: %w", err)
	}
	return count, upvoted, nil
}

func (s *gormStore) ToggleAnswered(ctx context.Context, questionId uint64) (*internal_entity.Question, error) {
	question, err := s.GetQuestion(ctx, questionId)
	if err != nil {
		return nil, err
	}
	question.Answered = !question.Answered
	if err := s.db.WithContext(ctx).Save(question).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle answered: %w", err)
	}
	return question, nil
}

func (s *gormStore) TogglePinned(ctx context.Context, questionId uint64) (*internal_entity.Question, error) {
	question, err := s.GetQuestion(ctx, questionId)
	if err != nil {
		return nil, err
	}
	question.Pinned = !question.Pinned
	if err := s.db.WithContext(ctx).Save(question).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle pinned: %w", err)
	}
	return question, nil
}
