// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package meeting_api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	internal_room "github.com/rapidaai/meet/internal/room"
	internal_sfu "github.com/rapidaai/meet/internal/sfu"
	internal_signaling "github.com/rapidaai/meet/internal/signaling"
	"github.com/rapidaai/meet/config"
	"github.com/rapidaai/meet/pkg/commons"
	"github.com/rapidaai/meet/pkg/connectors"
	"github.com/rapidaai/meet/pkg/utils"
)

// turnTtl is the validity window of minted TURN credentials.
const turnTtl = 24 * time.Hour

const turnUserSuffix = "meetuser"

// MeetingApi is the HTTP surface of the meeting service: liveness, ICE
// server credentials and the websocket upgrade into signaling.
type MeetingApi interface {
	Health(c *gin.Context)
	TurnCredentials(c *gin.Context)
	Websocket(c *gin.Context)
}

type meetingApi struct {
	cfg       *config.AppConfig
	logger    commons.Logger
	postgres  connectors.PostgresConnector
	rooms     *internal_room.Registry
	pool      *internal_sfu.WorkerPool
	signaling *internal_signaling.Engine
	startedAt time.Time
}

func New(
	cfg *config.AppConfig,
	logger commons.Logger,
	postgres connectors.PostgresConnector,
	rooms *internal_room.Registry,
	pool *internal_sfu.WorkerPool,
	signaling *internal_signaling.Engine,
) MeetingApi {
	return &meetingApi{
		cfg:       cfg,
		logger:    logger,
		postgres:  postgres,
		rooms:     rooms,
		pool:      pool,
		signaling: signaling,
		startedAt: time.Now(),
	}
}

func (a *meetingApi) Health(c *gin.Context) {
	status := "ok"
	if err := a.postgres.Ping(c.Request.Context()); err != nil {
		a.logger.Warnw("health check degraded", "error", err)
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"rooms":   a.rooms.Count(),
		"workers": a.pool.Size(),
		"uptime":  time.Since(a.startedAt).Round(time.Second).String(),
	})
}

// TurnCredentials mints time-limited TURN credentials per the coturn REST
// convention. The STUN url is always included; the TURN url and credential
// pair only when a relay is configured.
func (a *meetingApi) TurnCredentials(c *gin.Context) {
	urls := []string{a.cfg.StunServerUrl}
	var credentials utils.TurnCredentials
	if a.cfg.TurnServerUrl != "" && a.cfg.TurnSecret != "" {
		urls = append(urls, a.cfg.TurnServerUrl)
		credentials = utils.NewTurnCredentials(a.cfg.TurnSecret, turnUserSuffix, turnTtl, time.Now())
	}
	c.JSON(http.StatusOK, gin.H{
		"urls":       urls,
		"username":   credentials.Username,
		"credential": credentials.Credential,
	})
}

func (a *meetingApi) Websocket(c *gin.Context) {
	a.signaling.HandleWebsocket(c)
}
