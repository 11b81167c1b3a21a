// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"errors"

	internal_admission "github.com/rapidaai/meet/internal/admission"
	internal_breakout "github.com/rapidaai/meet/internal/breakout"
	internal_engagement "github.com/rapidaai/meet/internal/engagement"
	internal_room "github.com/rapidaai/meet/internal/room"
	internal_sfu "github.com/rapidaai/meet/internal/sfu"
)

// Kind is the error taxonomy used in acks. Per-request failures never close
// the connection; only auth failures do.
type Kind string

const (
	KindUnauthenticated     Kind = "UNAUTHENTICATED"
	KindNotBound            Kind = "NOT_BOUND"
	KindNotFound            Kind = "NOT_FOUND"
	KindPermissionDenied    Kind = "PERMISSION_DENIED"
	KindInvalidArgument     Kind = "INVALID_ARGUMENT"
	KindInvalidState        Kind = "INVALID_STATE"
	KindAlreadyExists       Kind = "ALREADY_EXISTS"
	KindCodecIncompatible   Kind = "CODEC_INCOMPATIBLE"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindInternal            Kind = "INTERNAL"
)

// SignalError pairs a taxonomy kind with a human message for the ack.
type SignalError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"error"`
}

func (e *SignalError) Error() string { return string(e.Kind) + ": " + e.Message }

func newError(kind Kind, message string) *SignalError {
	return &SignalError{Kind: kind, Message: message}
}

// classify maps domain errors onto the wire taxonomy. Anything unmapped is
// INTERNAL so internals never leak verbatim.
func classify(err error) *SignalError {
	var signalErr *SignalError
	if errors.As(err, &signalErr) {
		return signalErr
	}

	switch {
	case errors.Is(err, internal_admission.ErrPermissionDenied),
		errors.Is(err, internal_admission.ErrTargetIsHost):
		return newError(KindPermissionDenied, err.Error())
	case errors.Is(err, internal_admission.ErrRemoved):
		return newError(KindPermissionDenied, "you were removed from this meeting")
	case errors.Is(err, internal_admission.ErrMeetingEnded):
		return newError(KindInvalidState, "meeting has ended")
	case errors.Is(err, internal_admission.ErrNotFound),
		errors.Is(err, internal_engagement.ErrNotFound),
		errors.Is(err, internal_room.ErrPeerNotFound),
		errors.Is(err, internal_room.ErrBreakoutNotFound),
		errors.Is(err, internal_room.ErrProducerNotFound),
		errors.Is(err, internal_room.ErrConsumerNotFound),
		errors.Is(err, internal_room.ErrTransportNotFound),
		errors.Is(err, internal_sfu.ErrProducerNotFound):
		return newError(KindNotFound, "resource not found")
	case errors.Is(err, internal_room.ErrScreenShareOccupied):
		return newError(KindAlreadyExists, "another participant is already sharing their screen")
	case errors.Is(err, internal_room.ErrTransportExists),
		errors.Is(err, internal_room.ErrPeerExists):
		return newError(KindAlreadyExists, err.Error())
	case errors.Is(err, internal_sfu.ErrCodecIncompatible):
		return newError(KindCodecIncompatible, "cannot consume this producer with the given capabilities")
	case errors.Is(err, internal_room.ErrPeerClosed),
		errors.Is(err, internal_room.ErrRoomClosed),
		errors.Is(err, internal_sfu.ErrClosed),
		errors.Is(err, internal_sfu.ErrInvalidState):
		return newError(KindInvalidState, "resource is not in a usable state")
	case errors.Is(err, internal_sfu.ErrWorkerDead):
		return newError(KindUpstreamUnavailable, "media worker unavailable")
	case errors.Is(err, internal_breakout.ErrInvalidConfig),
		errors.Is(err, internal_breakout.ErrDuplicateUsers):
		return newError(KindInvalidArgument, err.Error())
	case errors.Is(err, internal_breakout.ErrAlreadyActive):
		return newError(KindAlreadyExists, "breakout rooms are already open")
	case errors.Is(err, internal_breakout.ErrNoneActive):
		return newError(KindInvalidState, "no breakout rooms are open")
	default:
		return newError(KindInternal, "internal error")
	}
}
