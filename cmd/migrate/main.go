// Package main applies the PostgreSQL schema that backs the tileworld state
// store. The migrations directory and connection settings come from the same
// configuration file the game server reads.
package main

import (
	"errors"
	"flag"
	"log"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/cory-johannsen/tileworld/internal/config"
	"github.com/cory-johannsen/tileworld/internal/observability"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	dir := flag.String("migrations", "", "directory of migration files (default state.migrations_dir)")
	action := flag.String("action", ActionUp, "one of up, down, version, force")
	steps := flag.Int("steps", 0, "number of steps for up or down (0 = all)")
	forceVersion := flag.Int("force-version", -1, "schema version recorded by -action force")
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
	logger = logger.Named("migrate")

	if err := requirePostgres(cfg.State); err != nil {
		logger.Fatal("checking state backend", zap.Error(err))
	}
	source := sourceURL(cfg.State, *dir)

	m, err := migrate.New(source, cfg.Database.DSN())
	if err != nil {
		logger.Fatal("creating migrator", zap.String("source", source), zap.Error(err))
	}
	defer m.Close()

	p := Plan{Action: *action, Steps: *steps, Version: *forceVersion}
	changed, err := Apply(m, p)
	if err != nil {
		logger.Fatal("migration failed", zap.String("action", p.Action), zap.Error(err))
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		logger.Info("no migrations applied", zap.String("source", source))
	case err != nil:
		logger.Fatal("reading schema version", zap.Error(err))
	default:
		logger.Info("schema version",
			zap.String("action", p.Action),
			zap.Bool("changed", changed),
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}
