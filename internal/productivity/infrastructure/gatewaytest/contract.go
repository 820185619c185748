// Package gatewaytest holds the behavior every task.Gateway must share.
package gatewaytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
)

// Factory returns an empty gateway. Cleanup is registered on t.
type Factory func(t *testing.T) task.Gateway

func str(s string) *string { return &s }

// Run exercises the gateway contract against fresh gateways from newGateway.
func Run(t *testing.T, newGateway Factory) {
	ctx := context.Background()

	milk := task.Record{
		Title:    "Buy milk",
		Note:     "2 liters",
		DueDate:  "2024-05-01",
		Time:     "09:30",
		Status:   task.StatusPending,
		Priority: "high",
	}
	plants := task.Record{
		Title:   "Water plants",
		DueDate: "2024-05-02",
	}

	t.Run("empty store", func(t *testing.T) {
		records, err := newGateway(t).FetchAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("create then fetch keeps creation order", func(t *testing.T) {
		gw := newGateway(t)

		id1, err := gw.Create(ctx, milk)
		require.NoError(t, err)
		id2, err := gw.Create(ctx, plants)
		require.NoError(t, err)
		require.NotEmpty(t, id1)
		assert.NotEqual(t, id1, id2)

		records, err := gw.FetchAll(ctx)
		require.NoError(t, err)
		require.Len(t, records, 2)

		want1 := milk
		want1.ID = id1
		want2 := plants
		want2.ID = id2
		assert.Equal(t, want1, records[0])
		assert.Equal(t, want2, records[1], "absent optional fields stay absent")
	})

	t.Run("patch merges fields and clears the completion date", func(t *testing.T) {
		gw := newGateway(t)
		id, err := gw.Create(ctx, milk)
		require.NoError(t, err)

		require.NoError(t, gw.Patch(ctx, id, task.RecordPatch{
			Status:        str(task.StatusCompleted),
			CompletedDate: str("2024-05-01"),
		}))
		records, err := gw.FetchAll(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, task.StatusCompleted, records[0].Status)
		assert.Equal(t, "2024-05-01", records[0].CompletedDate)
		assert.Equal(t, milk.Title, records[0].Title)

		require.NoError(t, gw.Patch(ctx, id, task.RecordPatch{
			Status:             str(task.StatusPending),
			Title:              str("Buy oat milk"),
			ClearCompletedDate: true,
		}))
		records, err = gw.FetchAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, task.StatusPending, records[0].Status)
		assert.Empty(t, records[0].CompletedDate)
		assert.Equal(t, "Buy oat milk", records[0].Title)
		assert.Equal(t, milk.Note, records[0].Note)
	})

	t.Run("patch of a missing document", func(t *testing.T) {
		err := newGateway(t).Patch(ctx, "missing", task.RecordPatch{Title: str("x")})
		assert.ErrorIs(t, err, task.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		gw := newGateway(t)
		id1, err := gw.Create(ctx, milk)
		require.NoError(t, err)
		id2, err := gw.Create(ctx, plants)
		require.NoError(t, err)

		require.NoError(t, gw.Delete(ctx, id1))
		assert.ErrorIs(t, gw.Delete(ctx, id1), task.ErrNotFound)

		records, err := gw.FetchAll(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, id2, records[0].ID)
	})
}
