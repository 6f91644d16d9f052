// Package testutil provides test helpers including database container
// management and a websocket test client.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/cory-johannsen/tileworld/internal/config"
	"github.com/cory-johannsen/tileworld/internal/storage/postgres"
)

// Environment switches for database-backed tests.
const (
	// EnvDSN points tests at an existing database.
	EnvDSN = "TEST_DSN"
	// EnvContainer=1 starts a throwaway PostgreSQL container.
	EnvContainer = "TILEWORLD_PG_CONTAINER"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container testcontainers.Container
	Pool      *postgres.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts a PostgreSQL test container and returns
// a connected Pool.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected pool,
// or fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:            host,
		Port:            mappedPort.Int(),
		User:            "test",
		Password:        "test",
		Name:            "test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	pool, err := postgres.NewPool(ctx, dbCfg)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("connecting to test postgres: %v [%s]", err, time.Since(start))
	}
	t.Logf("postgres container started [%s]", time.Since(start))

	t.Cleanup(func() {
		pool.Close()
		_ = container.Terminate(ctx)
	})
	return &PostgresContainer{container: container, Pool: pool, Config: dbCfg}
}

// NewPool returns a pool with the state schema applied. It uses TEST_DSN
// when set, a fresh container when TILEWORLD_PG_CONTAINER=1, and otherwise
// skips the test.
func NewPool(t *testing.T) *postgres.Pool {
	t.Helper()
	ctx := context.Background()

	var pool *postgres.Pool
	switch {
	case os.Getenv(EnvDSN) != "":
		p, err := postgres.Connect(ctx, os.Getenv(EnvDSN), nil)
		if err != nil {
			t.Fatalf("connecting to %s: %v", EnvDSN, err)
		}
		t.Cleanup(p.Close)
		pool = p
	case os.Getenv(EnvContainer) == "1":
		pool = NewPostgresContainer(t).Pool
	default:
		t.Skipf("set %s or %s=1 to run database tests", EnvDSN, EnvContainer)
	}

	if err := pool.EnsureSchema(ctx); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return pool
}
