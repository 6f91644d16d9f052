// Package main provides the game server binary: the tile world, its tick
// loop, and the websocket transport in one process.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tileworld/internal/config"
	"github.com/cory-johannsen/tileworld/internal/frontend/ws"
	"github.com/cory-johannsen/tileworld/internal/game/command"
	"github.com/cory-johannsen/tileworld/internal/game/session"
	"github.com/cory-johannsen/tileworld/internal/gameserver"
	"github.com/cory-johannsen/tileworld/internal/observability"
	"github.com/cory-johannsen/tileworld/internal/server"
)

const shutdownGrace = 10 * time.Second

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, cfg.Server.Name)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting game server",
		zap.String("addr", cfg.Transport.Addr()),
		zap.String("state_backend", cfg.State.Backend),
	)

	loaded, err := loadWorld(cfg.Game, logger)
	if err != nil {
		logger.Fatal("loading world", zap.Error(err))
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("opening state store", zap.Error(err))
	}
	defer closeStore()

	sessions := session.NewManager(logger, cfg.Transport.OutboxSize)
	dispatcher := gameserver.NewDispatcher(logger, loaded.World, sessions, cfg.Game.TickInterval)
	handler := gameserver.NewHandler(logger, loaded.World, command.DefaultRegistry(), store, dispatcher)
	transport := ws.NewServer(cfg.Transport, ws.Deps{
		World:     loaded.World,
		Sessions:  sessions,
		Handler:   handler,
		Encoder:   ws.Encoder{Rooms: loaded.World, Footprints: loaded.Footprints},
		AdminHash: cfg.Game.AdminPasswordHash,
	}, logger)

	lifecycle := server.NewLifecycle(logger, shutdownGrace)
	lifecycle.Add("dispatcher", dispatcher)
	lifecycle.Add("websocket", transport)

	logger.Info("game server ready", zap.Duration("startup", time.Since(start)))
	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("server exited with error", zap.Error(err))
	}
}
