package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/muizidn/cs-ai-help-admin-management/internal/testutil"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/stats"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, logs ...models.ExecutionLog) (*CachedStore, *storage.MockStore, *miniredis.Miniredis, *logtest.Hook) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)

	logger, hook := logtest.NewNullLogger()
	next := storage.NewMockStore(logs...)
	store := NewCachedStore(next, client, time.Minute, logger)
	t.Cleanup(func() { _ = client.Close() })
	return store, next, mr, hook
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	all := stats.Spec(query.All())

	t.Run("AggregateIsServedFromCache", func(t *testing.T) {
		store, next, mr, _ := setup(t,
			testutil.Trace("a", testutil.WithDuration(100)),
			testutil.Trace("b", testutil.WithStatus(models.FailedExecutionStatus), testutil.WithDuration(300)),
		)
		agg := stats.NewAggregator(store)

		first, err := agg.Aggregate(ctx, query.All())
		require.NoError(t, err)
		second, err := agg.Aggregate(ctx, query.All())
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int64(2), second.Total)
		assert.Equal(t, int64(200), second.AvgDurationMs)
		assert.Equal(t, 1, next.Calls("aggregate"))

		key, err := cacheKey("aggregate", all)
		require.NoError(t, err)
		assert.True(t, mr.Exists(key))
		assert.Equal(t, time.Minute, mr.TTL(key))
	})

	t.Run("DifferentSpecsUseDifferentKeys", func(t *testing.T) {
		store, next, _, _ := setup(t, testutil.Trace("a"), testutil.Trace("b", testutil.WithBusiness("biz-2")))

		groups, err := store.Aggregate(ctx, stats.Spec(query.Eq(query.FieldBusinessID, "biz-2")))
		require.NoError(t, err)
		assert.Equal(t, []storage.Group{{Key: "completed", Count: 1, Sum: 1500}}, groups)
		groups, err = store.Aggregate(ctx, all)
		require.NoError(t, err)
		assert.Equal(t, []storage.Group{{Key: "completed", Count: 2, Sum: 3000}}, groups)
		assert.Equal(t, 2, next.Calls("aggregate"))
	})

	t.Run("CountIsNeverCached", func(t *testing.T) {
		store, next, mr, _ := setup(t, testutil.Trace("a"))

		n, err := store.Count(ctx, query.All())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, next.Add(testutil.Trace("b")))
		n, err = store.Count(ctx, query.All())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Equal(t, 2, next.Calls("count"))
		assert.Empty(t, mr.Keys())
	})

	t.Run("EntriesExpire", func(t *testing.T) {
		store, next, mr, _ := setup(t, testutil.Trace("a"))

		_, err := store.Aggregate(ctx, all)
		require.NoError(t, err)
		mr.FastForward(2 * time.Minute)
		_, err = store.Aggregate(ctx, all)
		require.NoError(t, err)
		assert.Equal(t, 2, next.Calls("aggregate"))
	})

	t.Run("CorruptEntryIsRecomputed", func(t *testing.T) {
		store, next, mr, _ := setup(t, testutil.Trace("a"))
		key, err := cacheKey("aggregate", all)
		require.NoError(t, err)
		require.NoError(t, mr.Set(key, "not json"))

		groups, err := store.Aggregate(ctx, all)
		require.NoError(t, err)
		assert.Len(t, groups, 1)
		assert.Equal(t, 1, next.Calls("aggregate"))
	})

	t.Run("RedisDownFallsThrough", func(t *testing.T) {
		store, next, mr, hook := setup(t, testutil.Trace("a"))
		mr.Close()

		groups, err := store.Aggregate(ctx, all)
		require.NoError(t, err)
		assert.Equal(t, []storage.Group{{Key: "completed", Count: 1, Sum: 1500}}, groups)
		assert.Equal(t, 1, next.Calls("aggregate"))

		require.NotEmpty(t, hook.AllEntries())
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	})

	t.Run("StoreErrorsAreNotCached", func(t *testing.T) {
		store, next, mr, _ := setup(t, testutil.Trace("a"))
		next.FailWith(assert.AnError)

		_, err := store.Aggregate(ctx, all)
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, mr.Keys())
	})

	t.Run("OtherCallsPassThrough", func(t *testing.T) {
		store, next, _, _ := setup(t, testutil.Trace("a"))

		_, err := store.FindOne(ctx, query.Eq(query.FieldID, "a"))
		require.NoError(t, err)
		_, err = store.FindOne(ctx, query.Eq(query.FieldID, "a"))
		require.NoError(t, err)
		assert.Equal(t, 2, next.Calls("findOne"))
		assert.NoError(t, store.Ping(ctx))
	})
}

func TestNewRedisClient(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "mysql://nope")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(context.Background(), "redis://"+addr)
	assert.Error(t, err)
}

func TestCacheKey(t *testing.T) {
	a, err := cacheKey("aggregate", stats.Spec(query.Eq(query.FieldStatus, "failed")))
	require.NoError(t, err)
	b, err := cacheKey("aggregate", stats.Spec(query.Eq(query.FieldStatus, "failed")))
	require.NoError(t, err)
	c, err := cacheKey("aggregate", stats.Spec(query.Eq(query.FieldStatus, "completed")))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "tracelog:aggregate:")
}
