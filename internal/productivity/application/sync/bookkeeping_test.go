package sync_test

import (
	"context"
	gosync "sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/internal/productivity/application/queries"
	"github.com/felixgeelhaar/taskcal/internal/productivity/application/sync"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/value_objects"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/persistence"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

func TestController_UpdateDoneStampsCompletion(t *testing.T) {
	gw := new(mockGateway)
	gw.On("FetchAll", mock.Anything).Return([]task.Record{
		{ID: "a", Title: "Standup", DueDate: "2024-05-02"},
		{ID: "b", Title: "Report", DueDate: "2024-05-02", Status: "completed", CompletedDate: "2024-04-30"},
	}, nil)
	var patches []task.RecordPatch
	var mu gosync.Mutex
	gw.On("Patch", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		mu.Lock()
		defer mu.Unlock()
		patches = append(patches, args.Get(2).(task.RecordPatch))
	}).Return(nil)
	c := newController(gw, sync.PolicyKeep)
	loaded(t, c)

	done := true
	op, err := c.Update(context.Background(), "a", task.Patch{Done: &done})
	require.NoError(t, err)
	require.NoError(t, waitOp(t, op))

	got, err := c.Get("a")
	require.NoError(t, err)
	assert.True(t, got.Done)
	require.NotNil(t, got.CompletedDate)
	assert.Equal(t, c.Today(), *got.CompletedDate)

	mission := queries.NewProjector(queries.DayOrderInsertion).Mission(c.Snapshot(), c.Today())
	ids := make([]string, 0, len(mission))
	for _, m := range mission {
		ids = append(ids, m.ID)
	}
	assert.Contains(t, ids, "a")

	// Already completed tasks keep their date.
	title := "Quarterly report"
	op, err = c.Update(context.Background(), "b", task.Patch{Title: &title, Done: &done})
	require.NoError(t, err)
	require.NoError(t, waitOp(t, op))
	got, _ = c.Get("b")
	require.NotNil(t, got.CompletedDate)
	assert.Equal(t, value_objects.MustDate(2024, 4, 30), *got.CompletedDate)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, patches, 2)
	assert.Equal(t, map[string]any{"status": "completed", "completedDate": "2024-05-02"}, patches[0].Fields())
}

func TestController_LoadSkipsBadIDs(t *testing.T) {
	gw := new(mockGateway)
	gw.On("FetchAll", mock.Anything).Return([]task.Record{
		{ID: "", Title: "No id", DueDate: "2024-05-01"},
		{ID: "b", Title: "Kept", DueDate: "2024-05-01"},
		{ID: "b", Title: "Twin", DueDate: "2024-05-03"},
		{ID: "c", Title: "Also kept", DueDate: "2024-05-02"},
	}, nil)
	metrics := observability.NewInMemoryMetrics()
	c := sync.NewController(gw, nil, metrics, nil, sync.Config{Now: fixedNow})

	require.NoError(t, c.Load(context.Background()))

	all := c.Snapshot()
	require.Len(t, all, 2)
	assert.Equal(t, "Kept", all[0].Title)
	assert.Equal(t, "c", all[1].ID)
	assert.Equal(t, int64(2), metrics.GetCounter(observability.MetricSyncLoadSkipped))
}

func TestController_LoadKeepsPendingCreate(t *testing.T) {
	t.Run("remote not yet visible", func(t *testing.T) {
		gw := newScriptedGateway(task.Record{ID: "a", Title: "A", DueDate: "2024-05-01"})
		c := newController(gw, sync.PolicyKeep)

		create, err := c.Create(context.Background(), task.Draft{Title: "New", DueDate: "2024-05-02"})
		require.NoError(t, err)
		call := gw.next(t)

		loaded(t, c)
		all := c.Snapshot()
		require.Len(t, all, 2)
		assert.Equal(t, create.ID(), all[1].ID)

		call.respond("d1", nil)
		require.NoError(t, waitOp(t, create))
		all = c.Snapshot()
		require.Len(t, all, 2)
		assert.Equal(t, "a", all[0].ID)
		assert.Equal(t, "d1", all[1].ID)
	})

	t.Run("remote already fetched", func(t *testing.T) {
		gw := newScriptedGateway()
		c := newController(gw, sync.PolicyKeep)

		create, err := c.Create(context.Background(), task.Draft{Title: "New", DueDate: "2024-05-02"})
		require.NoError(t, err)
		call := gw.next(t)

		gw.records = []task.Record{{ID: "d1", Title: "New", DueDate: "2024-05-02"}}
		loaded(t, c)
		call.respond("d1", nil)
		require.NoError(t, waitOp(t, create))

		all := c.Snapshot()
		require.Len(t, all, 1)
		assert.Equal(t, "d1", all[0].ID)
	})
}

func TestController_ReleasesBookkeeping(t *testing.T) {
	c := newController(persistence.NewMemoryGateway(), sync.PolicyKeep)
	ctx := context.Background()
	loaded(t, c)

	total := sync.AliasRetention + 10
	for i := 0; i < total; i++ {
		op, err := c.Create(ctx, task.Draft{Title: "t", DueDate: "2024-05-01"})
		require.NoError(t, err)
		toggle, err := c.Toggle(ctx, op.ID())
		require.NoError(t, err)
		require.NoError(t, waitOp(t, toggle))
	}
	c.Wait()

	trackers, aliases := c.Tracked()
	assert.Zero(t, trackers)
	assert.Equal(t, sync.AliasRetention, aliases)
	assert.Len(t, c.Snapshot(), total)

	loaded(t, c)
	trackers, aliases = c.Tracked()
	assert.Zero(t, trackers)
	assert.Zero(t, aliases)
}
