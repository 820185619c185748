package persistence_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/gatewaytest"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/persistence"
	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/migrations"
)

func newSQLiteGateway(t *testing.T) task.Gateway {
	t.Helper()
	ctx := context.Background()

	conn, err := database.Open(ctx, database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: sqlite.MemoryPath,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))

	return persistence.NewSQLGateway(conn)
}

func TestSQLGateway_SQLite(t *testing.T) {
	gatewaytest.Run(t, newSQLiteGateway)
}

func TestSQLGateway_Postgres(t *testing.T) {
	url := os.Getenv("TASKCAL_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TASKCAL_TEST_DATABASE_URL not set")
	}

	gatewaytest.Run(t, func(t *testing.T) task.Gateway {
		ctx := context.Background()
		conn, err := database.Open(ctx, database.Config{URL: url})
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
		require.NoError(t, migrations.Run(ctx, conn))
		_, err = conn.Exec(ctx, `DELETE FROM tasks`)
		require.NoError(t, err)
		return persistence.NewSQLGateway(conn)
	})
}

func TestSQLGateway_ClosedConnection(t *testing.T) {
	ctx := context.Background()
	conn, err := database.Open(ctx, database.Config{SQLitePath: sqlite.MemoryPath})
	require.NoError(t, err)
	require.NoError(t, migrations.Run(ctx, conn))
	gw := persistence.NewSQLGateway(conn)
	require.NoError(t, conn.Close())

	_, err = gw.FetchAll(ctx)
	assert.True(t, task.IsTransport(err))

	_, err = gw.Create(ctx, task.Record{Title: "x", DueDate: "2024-05-01"})
	assert.True(t, task.IsTransport(err))

	assert.Error(t, gw.Ping(ctx))
}
