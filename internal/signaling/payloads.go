// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"encoding/json"
	"strings"

	internal_breakout "github.com/rapidaai/meet/internal/breakout"
	internal_sfu "github.com/rapidaai/meet/internal/sfu"
	"github.com/rapidaai/meet/pkg/utils"
)

const (
	maxChatLength     = 2000
	maxQuestionLength = 1000
)

// decode unmarshals a payload or returns INVALID_ARGUMENT.
func decode(raw json.RawMessage, v interface{}) *SignalError {
	if len(raw) == 0 {
		return newError(KindInvalidArgument, "missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return newError(KindInvalidArgument, "malformed payload")
	}
	return nil
}

type joinMeetingPayload struct {
	MeetingCode string `json:"meetingCode"`
}

func (p *joinMeetingPayload) validate() *SignalError {
	if !utils.IsMeetingCode(p.MeetingCode) {
		return newError(KindInvalidArgument, "malformed meeting code")
	}
	return nil
}

type createTransportPayload struct {
	Direction string `json:"direction"`
}

func (p *createTransportPayload) validate() *SignalError {
	if p.Direction != string(internal_sfu.DirectionSend) && p.Direction != string(internal_sfu.DirectionRecv) {
		return newError(KindInvalidArgument, "direction must be send or recv")
	}
	return nil
}

type connectTransportPayload struct {
	TransportId    string                      `json:"transportId"`
	DtlsParameters internal_sfu.DTLSParameters `json:"dtlsParameters"`
}

func (p *connectTransportPayload) validate() *SignalError {
	if p.TransportId == "" {
		return newError(KindInvalidArgument, "transportId is required")
	}
	return nil
}

type producePayload struct {
	TransportId   string                     `json:"transportId"`
	Kind          string                     `json:"kind"`
	RtpParameters internal_sfu.RTPParameters `json:"rtpParameters"`
	AppData       internal_sfu.AppData       `json:"appData"`
}

func (p *producePayload) validate() *SignalError {
	if p.TransportId == "" {
		return newError(KindInvalidArgument, "transportId is required")
	}
	if p.Kind != string(internal_sfu.KindAudio) && p.Kind != string(internal_sfu.KindVideo) {
		return newError(KindInvalidArgument, "kind must be audio or video")
	}
	switch p.AppData.Type {
	case internal_sfu.AppTypeAudio, internal_sfu.AppTypeVideo, internal_sfu.AppTypeScreen:
	default:
		return newError(KindInvalidArgument, "appData.type must be audio, video or screen")
	}
	if len(p.RtpParameters.Codecs) == 0 || len(p.RtpParameters.Encodings) == 0 {
		return newError(KindInvalidArgument, "rtpParameters must carry codecs and encodings")
	}
	return nil
}

type consumePayload struct {
	ProducerId      string                       `json:"producerId"`
	RtpCapabilities internal_sfu.RTPCapabilities `json:"rtpCapabilities"`
}

func (p *consumePayload) validate() *SignalError {
	if p.ProducerId == "" {
		return newError(KindInvalidArgument, "producerId is required")
	}
	if len(p.RtpCapabilities.Codecs) == 0 {
		return newError(KindInvalidArgument, "rtpCapabilities must carry codecs")
	}
	return nil
}

type consumerIdPayload struct {
	ConsumerId string `json:"consumerId"`
}

func (p *consumerIdPayload) validate() *SignalError {
	if p.ConsumerId == "" {
		return newError(KindInvalidArgument, "consumerId is required")
	}
	return nil
}

type preferredLayersPayload struct {
	ConsumerId    string `json:"consumerId"`
	SpatialLayer  int    `json:"spatialLayer"`
	TemporalLayer int    `json:"temporalLayer"`
}

func (p *preferredLayersPayload) validate() *SignalError {
	if p.ConsumerId == "" {
		return newError(KindInvalidArgument, "consumerId is required")
	}
	if p.SpatialLayer < 0 || p.SpatialLayer > 2 || p.TemporalLayer < 0 || p.TemporalLayer > 2 {
		return newError(KindInvalidArgument, "layers must be 0..2")
	}
	return nil
}

type producerIdPayload struct {
	ProducerId string `json:"producerId"`
}

func (p *producerIdPayload) validate() *SignalError {
	if p.ProducerId == "" {
		return newError(KindInvalidArgument, "producerId is required")
	}
	return nil
}

type participantIdPayload struct {
	ParticipantId uint64 `json:"participantId"`
}

func (p *participantIdPayload) validate() *SignalError {
	if p.ParticipantId == 0 {
		return newError(KindInvalidArgument, "participantId is required")
	}
	return nil
}

type transferHostPayload struct {
	NewHostId uint64 `json:"newHostId"`
}

func (p *transferHostPayload) validate() *SignalError {
	if p.NewHostId == 0 {
		return newError(KindInvalidArgument, "newHostId is required")
	}
	return nil
}

type invitePayload struct {
	Email string `json:"email"`
}

func (p *invitePayload) validate() *SignalError {
	email := strings.TrimSpace(p.Email)
	if email == "" || !strings.Contains(email, "@") || len(email) > 320 {
		return newError(KindInvalidArgument, "a valid email is required")
	}
	return nil
}

type chatPayload struct {
	Content string `json:"content"`
}

func (p *chatPayload) validate() *SignalError {
	if len(p.Content) < 1 || len(p.Content) > maxChatLength {
		return newError(KindInvalidArgument, "content must be 1..2000 characters")
	}
	return nil
}

type questionPayload struct {
	Content string `json:"content"`
}

func (p *questionPayload) validate() *SignalError {
	if len(p.Content) < 1 || len(p.Content) > maxQuestionLength {
		return newError(KindInvalidArgument, "content must be 1..1000 characters")
	}
	return nil
}

type questionIdPayload struct {
	QuestionId uint64 `json:"questionId"`
}

func (p *questionIdPayload) validate() *SignalError {
	if p.QuestionId == 0 {
		return newError(KindInvalidArgument, "questionId is required")
	}
	return nil
}

type createBreakoutPayload struct {
	Rooms    []internal_breakout.RoomConfig `json:"rooms"`
	Duration *int                           `json:"duration,omitempty"`
}

type breakoutBroadcastPayload struct {
	Message string `json:"message"`
}

func (p *breakoutBroadcastPayload) validate() *SignalError {
	if len(p.Message) < 1 || len(p.Message) > maxChatLength {
		return newError(KindInvalidArgument, "message must be 1..2000 characters")
	}
	return nil
}
