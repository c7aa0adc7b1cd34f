package storage_test

import (
	"context"
	"testing"

	"github.com/muizidn/cs-ai-help-admin-management/internal/testutil"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(logs []models.ExecutionLog) []string {
	out := make([]string, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.ID)
	}
	return out
}

func TestMockStore(t *testing.T) {
	ctx := context.Background()

	t.Run("AddAssignsIDAndRejectsDuplicates", func(t *testing.T) {
		store := storage.NewMockStore()
		require.NoError(t, store.Add(models.ExecutionLog{Status: models.RunningExecutionStatus}))
		found, err := store.FindOne(ctx, query.Eq(query.FieldID, "log-1"))
		require.NoError(t, err)
		assert.Equal(t, "log-1", found.ID)

		assert.Error(t, store.Add(models.ExecutionLog{ID: "log-1"}))
	})

	t.Run("FindOneNotFound", func(t *testing.T) {
		store := storage.NewMockStore(testutil.Trace("a"))
		_, err := store.FindOne(ctx, query.Eq(query.FieldID, "b"))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("FindSortsAndPages", func(t *testing.T) {
		store := storage.NewMockStore(testutil.Traces("t", 5)...)

		logs, err := store.Find(ctx, query.All(), storage.FindOptions{SortDirection: query.Descending, Skip: 1, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"t-4", "t-3"}, ids(logs))

		logs, err = store.Find(ctx, query.All(), storage.FindOptions{
			SortField: query.FieldStartTime, SortDirection: query.Ascending, Limit: 2,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"t-1", "t-2"}, ids(logs))

		logs, err = store.Find(ctx, query.All(), storage.FindOptions{Skip: 10})
		require.NoError(t, err)
		assert.NotNil(t, logs)
		assert.Empty(t, logs)
	})

	t.Run("EqualSortKeysBreakTiesByID", func(t *testing.T) {
		store := storage.NewMockStore(
			testutil.Trace("b", testutil.WithDuration(100)),
			testutil.Trace("a", testutil.WithDuration(100)),
		)
		logs, err := store.Find(ctx, query.All(), storage.FindOptions{
			SortField: query.FieldTotalDurationMs, SortDirection: query.Ascending,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(logs))

		logs, err = store.Find(ctx, query.All(), storage.FindOptions{
			SortField: query.FieldTotalDurationMs, SortDirection: query.Descending,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, ids(logs))
	})

	t.Run("CountAndAggregate", func(t *testing.T) {
		store := storage.NewMockStore(
			testutil.Trace("a", testutil.WithDuration(100)),
			testutil.Trace("b", testutil.WithDuration(300)),
			testutil.Trace("c", testutil.WithStatus(models.FailedExecutionStatus), testutil.WithDuration(50)),
			testutil.Trace("d", testutil.WithStatus(models.RunningExecutionStatus)),
		)
		n, err := store.Count(ctx, query.Ne(query.FieldStatus, "running"))
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		groups, err := store.Aggregate(ctx, storage.AggregateSpec{
			Match:    query.All(),
			GroupBy:  query.FieldStatus,
			SumField: query.FieldTotalDurationMs,
		})
		require.NoError(t, err)
		assert.Equal(t, []storage.Group{
			{Key: "completed", Count: 2, Sum: 400},
			{Key: "failed", Count: 1, Sum: 50},
			{Key: "running", Count: 1, Sum: 0},
		}, groups)
	})

	t.Run("FailWith", func(t *testing.T) {
		store := storage.NewMockStore(testutil.Trace("a"))
		boom := errors.New("boom")
		store.FailWith(boom)
		assert.ErrorIs(t, store.Ping(ctx), boom)
		_, err := store.Count(ctx, query.All())
		assert.ErrorIs(t, err, boom)

		store.FailWith(nil)
		assert.NoError(t, store.Ping(ctx))
		assert.Equal(t, 2, store.Calls("ping"))
		assert.Equal(t, 1, store.Calls("count"))
	})
}
