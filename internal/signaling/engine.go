// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	internal_admission "github.com/rapidaai/meet/internal/admission"
	internal_breakout "github.com/rapidaai/meet/internal/breakout"
	internal_engagement "github.com/rapidaai/meet/internal/engagement"
	internal_mailer "github.com/rapidaai/meet/internal/mailer"
	internal_room "github.com/rapidaai/meet/internal/room"
	internal_token "github.com/rapidaai/meet/internal/token"
	"github.com/rapidaai/meet/pkg/commons"
)

// requestTimeout bounds the server-side handling of one signaling request.
const requestTimeout = 5 * time.Second

type handlerFunc func(ctx context.Context, conn *Connection, raw json.RawMessage) (interface{}, error)

type handlerEntry struct {
	fn           handlerFunc
	needsBinding bool
}

// Engine dispatches signaling events: auth once at connect, then per message
// rate check, binding check, payload validation, authorization and action.
// Per-request failures are acked, never fatal to the connection.
type Engine struct {
	logger      commons.Logger
	verifier    *internal_token.Verifier
	limiter     *RateLimiter
	hub         *Hub
	rooms       *internal_room.Registry
	admission   *internal_admission.Service
	store       internal_admission.Store
	engagement  internal_engagement.Store
	coordinator *internal_breakout.Coordinator
	mailer      internal_mailer.Sender

	upgrader websocket.Upgrader
	handlers map[string]handlerEntry

	mu        sync.Mutex
	conns     map[string]*Connection
	accepting bool
}

func NewEngine(
	logger commons.Logger,
	verifier *internal_token.Verifier,
	rooms *internal_room.Registry,
	admission *internal_admission.Service,
	store internal_admission.Store,
	engagement internal_engagement.Store,
	coordinator *internal_breakout.Coordinator,
	sender internal_mailer.Sender,
) *Engine {
	e := &Engine{
		logger:      logger,
		verifier:    verifier,
		limiter:     NewRateLimiter(),
		hub:         NewHub(),
		rooms:       rooms,
		admission:   admission,
		store:       store,
		engagement:  engagement,
		coordinator: coordinator,
		mailer:      sender,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns:     make(map[string]*Connection),
		accepting: true,
	}
	e.handlers = map[string]handlerEntry{
		"join-meeting": {fn: e.handleJoinMeeting},

		"create-transport":     {fn: e.handleCreateTransport, needsBinding: true},
		"connect-transport":    {fn: e.handleConnectTransport, needsBinding: true},
		"produce":              {fn: e.handleProduce, needsBinding: true},
		"consume":              {fn: e.handleConsume, needsBinding: true},
		"resume-consumer":      {fn: e.handleResumeConsumer, needsBinding: true},
		"set-preferred-layers": {fn: e.handleSetPreferredLayers, needsBinding: true},
		"pause-producer":       {fn: e.handlePauseProducer, needsBinding: true},
		"resume-producer":      {fn: e.handleResumeProducer, needsBinding: true},
		"close-producer":       {fn: e.handleCloseProducer, needsBinding: true},

		"lobby-admit":        {fn: e.handleLobbyAdmit, needsBinding: true},
		"lobby-reject":       {fn: e.handleLobbyReject, needsBinding: true},
		"move-to-lobby":      {fn: e.handleMoveToLobby, needsBinding: true},
		"kick-participant":   {fn: e.handleKickParticipant, needsBinding: true},
		"transfer-host":      {fn: e.handleTransferHost, needsBinding: true},
		"end-meeting":        {fn: e.handleEndMeeting, needsBinding: true},
		"invite-participant": {fn: e.handleInviteParticipant, needsBinding: true},

		"send-chat":        {fn: e.handleSendChat, needsBinding: true},
		"get-chat-history": {fn: e.handleGetChatHistory, needsBinding: true},
		"ask-question":     {fn: e.handleAskQuestion, needsBinding: true},
		"upvote-question":  {fn: e.handleUpvoteQuestion, needsBinding: true},
		"mark-answered":    {fn: e.handleMarkAnswered, needsBinding: true},
		"pin-question":     {fn: e.handlePinQuestion, needsBinding: true},

		"create-breakout":        {fn: e.handleCreateBreakout, needsBinding: true},
		"close-breakouts":        {fn: e.handleCloseBreakouts, needsBinding: true},
		"broadcast-to-breakouts": {fn: e.handleBroadcastToBreakouts, needsBinding: true},
	}
	return e
}

// HandleWebsocket is the gin endpoint upgrading to a signaling connection.
// The bearer token comes from the Authorization header or ?token=.
func (e *Engine) HandleWebsocket(c *gin.Context) {
	e.mu.Lock()
	accepting := e.accepting
	e.mu.Unlock()
	if !accepting {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
		return
	}

	tokenString := c.Query("token")
	if tokenString == "" {
		tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	}
	identity, err := e.verifier.Verify(tokenString)
	if err != nil {
		e.logger.Warnw("rejecting unauthenticated connection", "error", err)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"kind":  KindUnauthenticated,
			"error": "invalid or missing token",
		})
		return
	}

	ws, err := e.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		e.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}

	conn := newConnection(uuid.New().String(), ws, identity)
	e.mu.Lock()
	e.conns[conn.Id] = conn
	e.mu.Unlock()

	e.logger.Infow("connection accepted", "conn", conn.Id, "user", identity.UserId)
	e.readLoop(conn)
}

// readLoop dispatches inbound frames FIFO until the socket breaks.
func (e *Engine) readLoop(conn *Connection) {
	defer e.onDisconnect(conn)
	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			e.logger.Debugw("dropping malformed frame", "conn", conn.Id)
			continue
		}
		e.dispatch(conn, &env)
	}
}

func (e *Engine) dispatch(conn *Connection, env *envelope) {
	// Overflow is a silent drop: no ack, no error.
	if !e.limiter.Allow(conn.Id, env.Event) {
		return
	}

	entry, ok := e.handlers[env.Event]
	if !ok {
		conn.Ack(env.CallbackId, newError(KindInvalidArgument, "unknown event"))
		return
	}
	if entry.needsBinding {
		if _, _, _, bound := conn.Binding(); !bound {
			conn.Ack(env.CallbackId, newError(KindNotBound, "join a meeting first"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	result, err := entry.fn(ctx, conn, env.Payload)
	if err != nil {
		conn.Ack(env.CallbackId, classify(err))
		return
	}
	conn.Ack(env.CallbackId, result)
}

// onDisconnect tears down everything the connection owned. Durable cleanup
// is best-effort; the in-memory room state is always cleaned.
func (e *Engine) onDisconnect(conn *Connection) {
	conn.Close()

	e.mu.Lock()
	delete(e.conns, conn.Id)
	e.mu.Unlock()

	code, meetingId, participantId, bound := conn.Binding()
	if bound {
		if room := e.rooms.Get(code); room != nil {
			e.dropPeerMedia(room, code, conn.Identity.UserId, participantId, "disconnected")
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		if err := e.admission.Disconnect(ctx, meetingId, conn.Identity.UserId); err != nil {
			e.logger.Debugw("disconnect status write failed", "user", conn.Identity.UserId, "error", err)
		}
		cancel()
	}

	e.hub.LeaveAll(conn)
	e.limiter.Release(conn.Id)
	e.logger.Infow("connection closed", "conn", conn.Id, "user", conn.Identity.UserId)
}

// dropPeerMedia removes the user's peer and fans out producer-closed and
// participant-left to the scope the peer was in. Events go out only after
// the producers are gone from the peer's set, so late consumers fail fast
// instead of attaching to a dying producer.
func (e *Engine) dropPeerMedia(room *internal_room.Room, code string, userId, participantId uint64, reason string) {
	producers, _ := room.PeerProducers(userId)
	scope, err := room.PeerScope(userId)
	if err != nil {
		return
	}
	group := e.scopeGroup(code, scope)

	if err := room.RemovePeer(userId); err != nil {
		return
	}

	for _, producer := range producers {
		e.hub.Broadcast(group, "producer-closed", gin.H{
			"producerId": producer.Id(),
			"userId":     userId,
		})
	}
	e.hub.Broadcast(group, "participant-left", gin.H{
		"participantId": participantId,
		"userId":        userId,
		"reason":        reason,
	})
}

func (e *Engine) scopeGroup(code, scope string) string {
	if scope == internal_room.MainScope {
		return MeetingGroup(code)
	}
	return "breakout:" + scope
}

// findConnection locates the live connection of a user inside a meeting.
func (e *Engine) findConnection(meetingId, userId uint64) *Connection {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, conn := range e.conns {
		_, boundMeeting, _, ok := conn.Binding()
		if ok && boundMeeting == meetingId && conn.Identity.UserId == userId {
			return conn
		}
	}
	return nil
}

// PushReminder delivers an in-app reminder to the connection logged in with
// the target email, if any. Used by the reminder scheduler.
func (e *Engine) PushReminder(targetEmail string, payload interface{}) bool {
	conn := e.hub.FindByEmail(targetEmail)
	if conn == nil {
		return false
	}
	return conn.Send("reminder", payload) == nil
}

// ConnectedUserIds lists users of a meeting with a live connection. The
// scheduler's idle-meeting GC consults this.
func (e *Engine) ConnectedUserIds(meetingId uint64) []uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []uint64
	for _, conn := range e.conns {
		_, boundMeeting, _, ok := conn.Binding()
		if ok && boundMeeting == meetingId {
			out = append(out, conn.Identity.UserId)
		}
	}
	return out
}

// Shutdown stops accepting and closes every connection.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	e.accepting = false
	conns := make([]*Connection, 0, len(e.conns))
	for _, conn := range e.conns {
		conns = append(conns, conn)
	}
	e.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
