package eventstore_test

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
	"github.com/riverrun/agentstream/pkg/events"
	"github.com/riverrun/agentstream/pkg/eventstore"
)

func newTestStore(t *testing.T) *eventstore.Store {
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

	return eventstore.New(pool, config.DefaultDriverConfig(), nil)
}

func TestAppendAllocatesContiguousSeq(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	messageID := "msg-1"

	for i := 0; i < 5; i++ {
		ev, err := store.Append(ctx, messageID, "chat-1", events.New(events.Status{Text: "tick"}))
		require.NoError(t, err)
		seq, ok := events.ParseSeq(ev.ID)
		require.True(t, ok)
		require.Equal(t, int64(i), seq)
	}

	count, err := store.GetEventCount(ctx, messageID)
	require.NoError(t, err)
	require.Equal(t, int64(5), count)
}

func TestGetEventsSinceFiltersAndOrders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	messageID := "msg-2"

	var ids []string
	for i := 0; i < 10; i++ {
		ev, err := store.Append(ctx, messageID, "chat-2", events.New(events.Status{Text: "tick"}))
		require.NoError(t, err)
		ids = append(ids, ev.ID)
	}

	got, err := store.GetEvents(ctx, messageID, ids[6], 100)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, ev := range got {
		seq, ok := events.ParseSeq(ev.ID)
		require.True(t, ok)
		require.Equal(t, int64(7+i), seq)
	}
}

func TestGetEventsMalformedSinceIDReplaysFromBeginning(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	messageID := "msg-3"

	_, err := store.Append(ctx, messageID, "chat-3", events.New(events.Start{}))
	require.NoError(t, err)
	_, err = store.Append(ctx, messageID, "chat-3", events.New(events.End{Status: events.EndCompleted}))
	require.NoError(t, err)

	got, err := store.GetEvents(ctx, messageID, "not-a-valid-id", 100)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestDeleteEventsRemovesRowsAndCounter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	messageID := "msg-4"

	_, err := store.Append(ctx, messageID, "chat-4", events.New(events.Start{}))
	require.NoError(t, err)

	require.NoError(t, store.DeleteEvents(ctx, messageID))

	count, err := store.GetEventCount(ctx, messageID)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)

	// Re-appending after delete restarts the sequence at 0 since the
	// counter row itself was removed.
	ev, err := store.Append(ctx, messageID, "chat-4", events.New(events.Start{}))
	require.NoError(t, err)
	seq, ok := events.ParseSeq(ev.ID)
	require.True(t, ok)
	require.Equal(t, int64(0), seq)
}

func TestDeleteExpiredRemovesOnlyOldRows(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, "msg-5", "chat-5", events.New(events.Start{}))
	require.NoError(t, err)

	deleted, err := store.DeleteExpired(ctx, time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(0), deleted)

	deleted, err = store.DeleteExpired(ctx, -time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}
