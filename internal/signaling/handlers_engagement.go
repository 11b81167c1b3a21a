// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"context"
	"encoding/json"

	"github.com/gin-gonic/gin"

	internal_entity "github.com/rapidaai/meet/internal/entity"
)

func (e *Engine) handleSendChat(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload chatPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	message := &internal_entity.ChatMessage{
		MeetingId:    meetingId,
		UserId:       conn.Identity.UserId,
		SenderName:   conn.Identity.Name,
		SenderAvatar: conn.Identity.Picture,
		Content:      payload.Content,
	}
	if err := e.engagement.SendChat(ctx, message); err != nil {
		return nil, err
	}
	e.hub.Broadcast(MeetingGroup(code), "new-chat", message)
	return gin.H{"messageId": message.Id}, nil
}

func (e *Engine) handleGetChatHistory(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	_, meetingId, _, _ := conn.Binding()
	messages, err := e.engagement.ChatHistory(ctx, meetingId)
	if err != nil {
		return nil, err
	}
	return gin.H{"messages": messages}, nil
}

func (e *Engine) handleAskQuestion(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload questionPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	question := &internal_entity.Question{
		MeetingId:  meetingId,
		UserId:     conn.Identity.UserId,
		AuthorName: conn.Identity.Name,
		Content:    payload.Content,
	}
	if err := e.engagement.AskQuestion(ctx, question); err != nil {
		return nil, err
	}
	e.hub.Broadcast(MeetingGroup(code), "new-question", question)
	return gin.H{"questionId": question.Id}, nil
}

func (e *Engine) handleUpvoteQuestion(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload questionIdPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, _, _, _ := conn.Binding()

	count, upvoted, err := e.engagement.ToggleUpvote(ctx, payload.QuestionId, conn.Identity.UserId)
	if err != nil {
		return nil, err
	}
	e.hub.Broadcast(MeetingGroup(code), "question-upvoted", gin.H{
		"questionId":  payload.QuestionId,
		"upvoteCount": count,
	})
	return gin.H{"upvoteCount": count, "hasUpvoted": upvoted}, nil
}

func (e *Engine) handleMarkAnswered(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload questionIdPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	if err := e.admission.RequireModerator(ctx, meetingId, conn.Identity.UserId); err != nil {
		return nil, err
	}
	question, err := e.engagement.ToggleAnswered(ctx, payload.QuestionId)
	if err != nil {
		return nil, err
	}
	e.hub.Broadcast(MeetingGroup(code), "question-answered", gin.H{
		"questionId": question.Id,
		"answered":   question.Answered,
	})
	return gin.H{"answered": question.Answered}, nil
}

func (e *Engine) handlePinQuestion(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error) {
	var payload questionIdPayload
	if err := decode(raw, &payload); err != nil {
		return nil, err
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}
	code, meetingId, _, _ := conn.Binding()

	if err := e.admission.RequireModerator(ctx, meetingId, conn.Identity.UserId); err != nil {
		return nil, err
	}
	question, err := e.engagement.TogglePinned(ctx, payload.QuestionId)
	if err != nil {
		return nil, err
	}
	e.hub.Broadcast(MeetingGroup(code), "question-pinned", gin.H{
		"questionId": question.Id,
		"pinned":     question.Pinned,
	})
	return gin.H{"pinned": question.Pinned}, nil
}
