// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	internal_admission "github.com/rapidaai/meet/internal/admission"
	internal_breakout "github.com/rapidaai/meet/internal/breakout"
	internal_engagement "github.com/rapidaai/meet/internal/engagement"
	internal_entity "github.com/rapidaai/meet/internal/entity"
	internal_mailer "github.com/rapidaai/meet/internal/mailer"
	internal_room "github.com/rapidaai/meet/internal/room"
	internal_scheduler "github.com/rapidaai/meet/internal/scheduler"
	internal_sfu "github.com/rapidaai/meet/internal/sfu"
	internal_signaling "github.com/rapidaai/meet/internal/signaling"
	internal_token "github.com/rapidaai/meet/internal/token"
	web_routers "github.com/rapidaai/meet/api/routers"
	"github.com/rapidaai/meet/config"
	"github.com/rapidaai/meet/pkg/commons"
	"github.com/rapidaai/meet/pkg/connectors"
)

const shutdownGrace = 10 * time.Second

func main() {
	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("failed to initialize config: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("failed to load application config: %v", err)
	}

	logger := commons.NewApplicationLogger()
	defer func() { _ = logger.Sync() }()
	logger.Infow("starting meeting api", "name", cfg.Name, "version", cfg.Version)

	postgres, err := connectors.NewPostgresConnector(cfg.PostgresConfig, logger)
	if err != nil {
		logger.Errorw("postgres connection failed", "error", err)
		os.Exit(1)
	}
	db := postgres.DB(context.Background())
	if err := db.AutoMigrate(
		&internal_entity.User{},
		&internal_entity.Meeting{},
		&internal_entity.Participant{},
		&internal_entity.BreakoutRoom{},
		&internal_entity.ChatMessage{},
		&internal_entity.Question{},
		&internal_entity.Upvote{},
		&internal_entity.Reminder{},
		&internal_entity.Invitation{},
	); err != nil {
		logger.Errorw("migration failed", "error", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.RedisConfig.Host != "" {
		redisConn, err := connectors.NewRedisConnector(cfg.RedisConfig, logger)
		if err != nil {
			logger.Errorw("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer func() { _ = redisConn.Close() }()
		redisClient = redisConn.Client()
	}

	numWorkers := cfg.NumWorkers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU() / 2
		if numWorkers < 1 {
			numWorkers = 1
		}
	}
	mediaEngine := internal_sfu.NewPionEngine(internal_sfu.EngineConfig{
		ListenIp:    cfg.ListenIp,
		AnnouncedIp: cfg.AnnouncedIp,
		RtcMinPort:  uint16(cfg.RtcMinPort),
		RtcMaxPort:  uint16(cfg.RtcMaxPort),
	}, logger)
	pool, err := internal_sfu.NewWorkerPool(mediaEngine, numWorkers, logger)
	if err != nil {
		logger.Errorw("worker pool creation failed", "error", err)
		os.Exit(1)
	}
	rooms := internal_room.NewRegistry(pool, logger)

	store := internal_admission.NewStore(logger, db)
	admission := internal_admission.NewService(store, logger)
	engagement := internal_engagement.NewStore(logger, db)
	coordinator := internal_breakout.NewCoordinator(db, admission, logger)

	var sender internal_mailer.Sender
	if cfg.SendgridApiKey != "" {
		sender = internal_mailer.NewSendgridSender(cfg.SendgridApiKey, cfg.SmtpFromName, cfg.SmtpFromEmail, logger)
	} else {
		sender = internal_mailer.NewNoopSender(logger)
	}

	verifier := internal_token.NewVerifier(cfg.AuthSecret)
	signaling := internal_signaling.NewEngine(logger, verifier, rooms, admission, store, engagement, coordinator, sender)
	scheduler := internal_scheduler.NewScheduler(db, sender, signaling, rooms, redisClient, logger)

	gin.SetMode(gin.ReleaseMode)
	server := gin.New()
	server.Use(gin.Recovery())
	corsConfig := cors.DefaultConfig()
	if len(cfg.CorsOrigins) == 1 && cfg.CorsOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CorsOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	server.Use(cors.New(corsConfig))

	web_routers.MeetingApiRoutes(cfg, server, logger, postgres, rooms, pool, signaling)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: server,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		scheduler.Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		logger.Infow("meeting api listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Infow("shutdown signal received", "signal", sig.String())
			cancel()
		case <-groupCtx.Done():
		}
		return nil
	})
	// Teardown order: stop accepting, drain the listener, then rooms,
	// workers and finally the stores.
	group.Go(func() error {
		<-groupCtx.Done()
		signaling.Shutdown()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("http server shutdown incomplete", "error", err)
		}

		rooms.Close()
		if err := pool.Close(); err != nil {
			logger.Warnw("worker pool close failed", "error", err)
		}
		if err := postgres.Close(); err != nil {
			logger.Warnw("postgres close failed", "error", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Errorw("meeting api exited with error", "error", err)
		os.Exit(1)
	}
	logger.Infow("meeting api stopped")
}
