package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/tileworld/internal/config"
	"github.com/cory-johannsen/tileworld/internal/game/catalog"
	"github.com/cory-johannsen/tileworld/internal/game/footprint"
	"github.com/cory-johannsen/tileworld/internal/game/state"
	"github.com/cory-johannsen/tileworld/internal/game/world"
	"github.com/cory-johannsen/tileworld/internal/storage/postgres"
	"github.com/cory-johannsen/tileworld/internal/storage/sqlite"
)

// loadedWorld is the built world plus the registry its encoder needs.
type loadedWorld struct {
	World      *world.Manager
	Footprints *footprint.Registry
	Topology   world.TopologyReport
}

// loadWorld reads the asset manifest and room files, builds every room,
// and links their doors.
//
// Postcondition: Returns the world, or the first load, build, or topology error.
func loadWorld(cfg config.GameConfig, logger *zap.Logger) (*loadedWorld, error) {
	start := time.Now()
	manifest, err := footprint.LoadManifestFromFile(cfg.AssetsFile)
	if err != nil {
		return nil, err
	}
	reg := footprint.NewRegistry(manifest)

	specs, err := catalog.LoadRoomsFromDir(cfg.RoomsDir)
	if err != nil {
		return nil, err
	}
	builder := catalog.Builder{Kinds: catalog.Builtin(), Footprints: reg, IDs: world.NewIDAllocator(0)}
	rooms, err := builder.BuildAll(specs)
	if err != nil {
		return nil, fmt.Errorf("building rooms: %w", err)
	}

	report, err := world.BuildTopology(rooms, logger)
	if err != nil {
		return nil, err
	}
	w, err := world.NewManager(rooms, cfg.StartRoom)
	if err != nil {
		return nil, err
	}
	logger.Info("world loaded",
		zap.Int("assets", manifest.Len()),
		zap.Int("rooms", w.RoomCount()),
		zap.Int("doors_linked", report.Linked),
		zap.Strings("doors_skipped", report.Skipped),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &loadedWorld{World: w, Footprints: reg, Topology: report}, nil
}

// openStore opens the configured state backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (state.Store, func(), error) {
	start := time.Now()
	switch cfg.State.Backend {
	case config.BackendMemory:
		return state.NewMemoryStore(), func() {}, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(ctx, cfg.State.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("sqlite state opened",
			zap.String("path", cfg.State.SQLitePath),
			zap.Duration("elapsed", time.Since(start)),
		)
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Warn("closing sqlite", zap.Error(err))
			}
		}, nil
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Duration("elapsed", time.Since(start)),
		)
		return postgres.NewStateRepository(pool.DB()), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.State.Backend)
	}
}
