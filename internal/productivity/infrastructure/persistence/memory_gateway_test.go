package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/gatewaytest"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/persistence"
)

func TestMemoryGateway(t *testing.T) {
	gatewaytest.Run(t, func(*testing.T) task.Gateway {
		return persistence.NewMemoryGateway()
	})
}

func TestMemoryGateway_Seed(t *testing.T) {
	gw := persistence.NewMemoryGateway(
		task.Record{ID: "a", Title: "First", DueDate: "2024-05-01"},
		task.Record{Title: "Second", DueDate: "2024-05-02"},
	)

	records, err := gw.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.NotEmpty(t, records[1].ID)
}

func TestMemoryGateway_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := persistence.NewMemoryGateway().Create(ctx, task.Record{Title: "x"})
	assert.True(t, task.IsTransport(err))
	assert.ErrorIs(t, err, context.Canceled)
}
