package stats_test

import (
	"context"
	"testing"

	"github.com/muizidn/cs-ai-help-admin-management/internal/testutil"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/stats"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	ctx := context.Background()

	t.Run("CountsPerStatusAndAveragesDuration", func(t *testing.T) {
		store := storage.NewMockStore(
			testutil.Trace("a", testutil.WithDuration(1000)),
			testutil.Trace("b", testutil.WithDuration(2001)),
			testutil.Trace("c", testutil.WithStatus(models.FailedExecutionStatus), testutil.WithDuration(500)),
			testutil.Trace("d", testutil.WithStatus(models.RunningExecutionStatus)),
		)
		s, err := stats.NewAggregator(store).Aggregate(ctx, query.All())
		require.NoError(t, err)
		assert.Equal(t, stats.Stats{
			Total:           4,
			Running:         1,
			Completed:       2,
			Failed:          1,
			AvgDurationMs:   875, // 3501 / 4 rounded
			TotalDurationMs: 3501,
		}, s)
		assert.Equal(t, 1, store.Calls("aggregate"))
	})

	t.Run("AppliesThePredicate", func(t *testing.T) {
		store := storage.NewMockStore(
			testutil.Trace("a", testutil.WithBusiness("biz-1")),
			testutil.Trace("b", testutil.WithBusiness("biz-2")),
		)
		s, err := stats.NewAggregator(store).Aggregate(ctx, query.Eq(query.FieldBusinessID, "biz-2"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), s.Total)
		assert.Equal(t, int64(1500), s.TotalDurationMs)
	})

	t.Run("NoMatchIsAllZeros", func(t *testing.T) {
		store := storage.NewMockStore(testutil.Trace("a"))
		s, err := stats.NewAggregator(store).Aggregate(ctx, query.Eq(query.FieldStatus, "failed"))
		require.NoError(t, err)
		assert.Equal(t, stats.Stats{}, s)
	})

	t.Run("StoreErrorIsReturned", func(t *testing.T) {
		store := storage.NewMockStore()
		boom := errors.New("connection reset")
		store.FailWith(boom)
		_, err := stats.NewAggregator(store).Aggregate(ctx, query.All())
		assert.ErrorIs(t, err, boom)
	})
}

func TestFromGroups(t *testing.T) {
	t.Run("UnknownStatusCountsTowardTotalOnly", func(t *testing.T) {
		s := stats.FromGroups([]storage.Group{
			{Key: "completed", Count: 2, Sum: 300},
			{Key: "", Count: 1, Sum: 0},
		})
		assert.Equal(t, int64(3), s.Total)
		assert.Equal(t, int64(2), s.Completed)
		assert.Equal(t, int64(100), s.AvgDurationMs)
	})

	t.Run("AverageRoundsHalfUp", func(t *testing.T) {
		s := stats.FromGroups([]storage.Group{{Key: "failed", Count: 2, Sum: 3}})
		assert.Equal(t, int64(2), s.AvgDurationMs)
	})

	t.Run("Empty", func(t *testing.T) {
		assert.Equal(t, stats.Stats{}, stats.FromGroups(nil))
	})

	t.Run("SpecGroupsByStatus", func(t *testing.T) {
		spec := stats.Spec(query.All())
		assert.Equal(t, query.FieldStatus, spec.GroupBy)
		assert.Equal(t, query.FieldTotalDurationMs, spec.SumField)
		assert.True(t, spec.Match.IsAll())
	})
}
