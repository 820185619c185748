package persistence_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/gatewaytest"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/persistence"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

func TestInstrumentedGateway(t *testing.T) {
	gatewaytest.Run(t, func(*testing.T) task.Gateway {
		return persistence.NewInstrumentedGateway(persistence.NewMemoryGateway(), "memory", nil, nil)
	})
}

func TestInstrumentedGateway_RecordsOutcomes(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewInMemoryMetrics()
	gw := persistence.NewInstrumentedGateway(persistence.NewMemoryGateway(), "memory", metrics, nil)

	id, err := gw.Create(ctx, task.Record{Title: "Write report", DueDate: "2024-05-01"})
	require.NoError(t, err)
	_, err = gw.FetchAll(ctx)
	require.NoError(t, err)
	require.ErrorIs(t, gw.Delete(ctx, "missing"), task.ErrNotFound)
	require.NoError(t, gw.Delete(ctx, id))

	store := observability.T("store", "memory")
	op := func(name string) observability.Tag { return observability.T("op", name) }
	ok := observability.T("outcome", "ok")
	missing := observability.T("outcome", "not_found")

	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricGatewayCalls, store, op("create"), ok))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricGatewayCalls, store, op("fetch"), ok))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricGatewayCalls, store, op("delete"), ok))
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricGatewayCalls, store, op("delete"), missing))
	assert.Len(t, metrics.GetTimings(observability.MetricGatewayDuration, store, op("delete")), 2)
}

type pinglessGateway struct{ task.Gateway }

func TestInstrumentedGateway_Ping(t *testing.T) {
	ctx := context.Background()

	gw := persistence.NewInstrumentedGateway(persistence.NewMemoryGateway(), "memory", nil, nil)
	assert.NoError(t, gw.Ping(ctx))

	bare := persistence.NewInstrumentedGateway(pinglessGateway{persistence.NewMemoryGateway()}, "bare", nil, nil)
	assert.ErrorIs(t, bare.Ping(ctx), persistence.ErrPingUnsupported)
}
