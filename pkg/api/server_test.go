package api

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/riverrun/agentstream/pkg/agentgraph"
	"github.com/riverrun/agentstream/pkg/config"
	"github.com/riverrun/agentstream/pkg/database"
	"github.com/riverrun/agentstream/pkg/eventstore"
	"github.com/riverrun/agentstream/pkg/messagestore"
	"github.com/riverrun/agentstream/pkg/registry"
	"github.com/riverrun/agentstream/pkg/watcher"
)

func newTestServer(t *testing.T, graph agentgraph.Graph) *Server {
	t.Helper()
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
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgContainer) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dbCfg := config.DefaultDatabaseConfig()
	dbCfg.Host = host
	dbCfg.Port = port.Int()
	dbCfg.User = "test"
	dbCfg.Password = "test"
	dbCfg.Database = "test"

	pool, err := database.Open(ctx, dbCfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	cfg := config.Default()
	cfg.Database = dbCfg
	cfg.Driver.HeartbeatInterval = time.Hour
	cfg.Driver.ContentChunkDelay = 0
	cfg.Driver.WatcherPollInterval = 5 * time.Millisecond
	cfg.Driver.WatcherMaxWait = 2 * time.Second

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := eventstore.New(pool, cfg.Driver, log)
	messages := messagestore.New(pool)
	reg := registry.New(log)
	t.Cleanup(reg.Stop)
	watch := watcher.New(store, reg, nil, cfg.Driver, log)

	return NewServer(cfg, pool, messages, store, reg, watch, graph, nil, log)
}
