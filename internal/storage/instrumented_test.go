package storage

import (
	"context"
	"testing"

	"github.com/muizidn/cs-ai-help-admin-management/internal/testutil"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedStore(t *testing.T) {
	ctx := context.Background()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	next := storage.NewMockStore(testutil.Trace("a"))
	store := NewInstrumentedStore(next, "ai_inference_engine_execution_logs", logger)

	t.Run("SuccessIsLoggedAtDebug", func(t *testing.T) {
		hook.Reset()
		n, err := store.Count(ctx, query.All())
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.DebugLevel, entry.Level)
		assert.Equal(t, "countDocuments", entry.Data["operation"])
		assert.Equal(t, "ai_inference_engine_execution_logs", entry.Data["collection"])
		assert.Contains(t, entry.Data, "duration_ms")
	})

	t.Run("NotFoundIsNotAnError", func(t *testing.T) {
		hook.Reset()
		_, err := store.FindOne(ctx, query.Eq(query.FieldID, "missing"))
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)
		assert.Equal(t, "findOne", hook.LastEntry().Data["operation"])
	})

	t.Run("FailureIsLoggedAtError", func(t *testing.T) {
		hook.Reset()
		boom := errors.New("server selection timeout")
		next.FailWith(boom)
		defer next.FailWith(nil)

		_, err := store.Find(ctx, query.All(), storage.FindOptions{})
		assert.ErrorIs(t, err, boom)
		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "find", entry.Data["operation"])
		assert.Equal(t, boom, entry.Data[logrus.ErrorKey])
	})

	t.Run("CallsAreForwarded", func(t *testing.T) {
		_, err := store.Aggregate(ctx, storage.AggregateSpec{Match: query.All(), GroupBy: query.FieldStatus})
		require.NoError(t, err)
		require.NoError(t, store.Ping(ctx))
		assert.Equal(t, 1, next.Calls("aggregate"))
		assert.Equal(t, 1, next.Calls("ping"))
		assert.NoError(t, store.Close(ctx))
	})
}
