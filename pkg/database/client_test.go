package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/riverrun/agentstream/pkg/config"
	"github.com/riverrun/agentstream/pkg/database"
)

func newTestPool(t *testing.T) (*config.DatabaseConfig, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := config.DefaultDatabaseConfig()
	cfg.Host = host
	cfg.Port = port.Int()
	cfg.User = "test"
	cfg.Password = "test"
	cfg.Database = "test"

	cleanup := func() {
		_ = testcontainers.TerminateContainer(pgContainer)
	}

	return cfg, cleanup
}

func TestOpenAppliesMigrationsAndPings(t *testing.T) {
	cfg, cleanup := newTestPool(t)
	defer cleanup()

	ctx := context.Background()
	pool, err := database.Open(ctx, cfg)
	require.NoError(t, err)
	defer pool.Close()

	health, err := database.Health(ctx, pool)
	require.NoError(t, err)
	require.Equal(t, "healthy", health.Status)

	var exists bool
	err = pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT FROM information_schema.tables WHERE table_name = 'message_events'
	)`).Scan(&exists)
	require.NoError(t, err)
	require.True(t, exists)
}
