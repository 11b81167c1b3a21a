// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_engagement

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
	"github.com/rapidaai/meet/pkg/commons"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gorm_logger.Default.LogMode(gorm_logger.Silent),
	})
	require.NoError(t, err, "sqlite open should not fail")
	require.NoError(t, db.AutoMigrate(
		&internal_entity.ChatMessage{},
		&internal_entity.Question{},
		&internal_entity.Upvote{},
	), "migration should not fail")
	return NewStore(commons.NewApplicationLogger(), db)
}

func TestChatHistoryReturnsLastHundredAscending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < ChatHistoryLimit+20; i++ {
		require.NoError(t, store.SendChat(ctx, &internal_entity.ChatMessage{
			MeetingId:  1,
			UserId:     2,
			SenderName: "Alice",
			Content:    fmt.Sprintf("message %d", i),
		}), "send chat should not fail")
	}

	history, err := store.ChatHistory(ctx, 1)
	require.NoError(t, err, "history should not fail")
	require.Len(t, history, ChatHistoryLimit, "history is capped at the limit")
	assert.Equal(t, "message 20", history[0].Content, "oldest surviving message comes first")
	assert.Equal(t, fmt.Sprintf("message %d", ChatHistoryLimit+19), history[len(history)-1].Content,
		"newest message comes last")
}

func TestChatHistoryScopedToMeeting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SendChat(ctx, &internal_entity.ChatMessage{
		MeetingId: 1, UserId: 2, SenderName: "Alice", Content: "mine",
	}), "send chat should not fail")
	require.NoError(t, store.SendChat(ctx, &internal_entity.ChatMessage{
		MeetingId: 9, UserId: 2, SenderName: "Alice", Content: "other",
	}), "send chat should not fail")

	history, err := store.ChatHistory(ctx, 1)
	require.NoError(t, err, "history should not fail")
	require.Len(t, history, 1, "only this meeting's messages")
	assert.Equal(t, "mine", history[0].Content, "wrong meeting's message leaked")
}

func TestUpvoteToggleIsIdempotentRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	question := &internal_entity.Question{
		MeetingId: 1, UserId: 2, AuthorName: "Alice", Content: "why is the sky blue",
	}
	require.NoError(t, store.AskQuestion(ctx, question), "ask should not fail")

	count, upvoted, err := store.ToggleUpvote(ctx, question.Id, 3)
	require.NoError(t, err, "first toggle should not fail")
	assert.True(t, upvoted, "first toggle adds the vote")
	assert.Equal(t, int64(1), count, "count should be 1")

	count, upvoted, err = store.ToggleUpvote(ctx, question.Id, 3)
	require.NoError(t, err, "second toggle should not fail")
	assert.False(t, upvoted, "second toggle removes the vote")
	assert.Equal(t, int64(0), count, "count returns to the pre-upvote state")
}

func TestUpvoteCountsDistinctUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	question := &internal_entity.Question{
		MeetingId: 1, UserId: 2, AuthorName: "Alice", Content: "when is lunch",
	}
	require.NoError(t, store.AskQuestion(ctx, question), "ask should not fail")

	for userId := uint64(10); userId < 13; userId++ {
		count, upvoted, err := store.ToggleUpvote(ctx, question.Id, userId)
		require.NoError(t, err, "toggle should not fail")
		assert.True(t, upvoted, "each distinct user adds one vote")
		assert.Equal(t, int64(userId-9), count, "count should grow per user")
	}
}

func TestToggleUpvoteUnknownQuestion(t *testing.T) {
	store := newTestStore(t)
	_, _, err := store.ToggleUpvote(context.Background(), 999, 1)
	assert.ErrorIs(t, err, ErrNotFound, "unknown question should surface ErrNotFound")
}

func TestAnsweredAndPinnedToggle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	question := &internal_entity.Question{
		MeetingId: 1, UserId: 2, AuthorName: "Alice", Content: "is this thing on",
	}
	require.NoError(t, store.AskQuestion(ctx, question), "ask should not fail")

	q, err := store.ToggleAnswered(ctx, question.Id)
	require.NoError(t, err, "toggle answered should not fail")
	assert.True(t, q.Answered, "first toggle marks answered")
	q, err = store.ToggleAnswered(ctx, question.Id)
	require.NoError(t, err, "toggle answered should not fail")
	assert.False(t, q.Answered, "second toggle unmarks")

	q, err = store.TogglePinned(ctx, question.Id)
	require.NoError(t, err, "toggle pinned should not fail")
	assert.True(t, q.Pinned, "first toggle pins")
	q, err = store.TogglePinned(ctx, question.Id)
	require.NoError(t, err, "toggle pinned should not fail")
	assert.False(t, q.Pinned, "second toggle unpins")
}

func TestListQuestionsWithUpvotes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	question := &internal_entity.Question{
		MeetingId: 1, UserId: 2, AuthorName: "Alice", Content: "first",
	}
	require.NoError(t, store.AskQuestion(ctx, question), "ask should not fail")
	_, _, err := store.ToggleUpvote(ctx, question.Id, 5)
	require.NoError(t, err, "toggle should not fail")

	questions, err := store.ListQuestions(ctx, 1)
	require.NoError(t, err, "list should not fail")
	require.Len(t, questions, 1, "one question expected")
	assert.Len(t, questions[0].Upvotes, 1, "upvotes should be preloaded")
}
