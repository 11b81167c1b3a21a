// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package web_routers

import (
	"github.com/gin-gonic/gin"

	meetingApi "github.com/rapidaai/meet/api/meeting-api"
	internal_room "github.com/rapidaai/meet/internal/room"
	internal_sfu "github.com/rapidaai/meet/internal/sfu"
	internal_signaling "github.com/rapidaai/meet/internal/signaling"
	"github.com/rapidaai/meet/config"
	"github.com/rapidaai/meet/pkg/commons"
	"github.com/rapidaai/meet/pkg/connectors"
)

func MeetingApiRoutes(
	cfg *config.AppConfig,
	engine *gin.Engine,
	logger commons.Logger,
	postgres connectors.PostgresConnector,
	rooms *internal_room.Registry,
	pool *internal_sfu.WorkerPool,
	signaling *internal_signaling.Engine,
) {
	logger.Info("Meeting routes and connectors added to engine.")
	api := meetingApi.New(cfg, logger, postgres, rooms, pool, signaling)
	apiv1 := engine.Group("")
	{
		apiv1.GET("/health", api.Health)
		apiv1.GET("/turn-credentials", api.TurnCredentials)
		apiv1.GET("/ws", api.Websocket)
	}
}
