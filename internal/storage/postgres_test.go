package storage_test

import (
	"context"
	"testing"
	"time"

	internal_storage "github.com/muizidn/cs-ai-help-admin-management/internal/storage"
	"github.com/muizidn/cs-ai-help-admin-management/internal/testutil"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/service"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/stats"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}
func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}

func TestPostgresStore(t *testing.T) {
	testDB := testutil.SetupTestDB(t)
	defer testDB.Teardown(t)
	ctx := context.Background()

	// Helper to create a transactional store
	newTxStore := func(t *testing.T, logs ...models.ExecutionLog) *internal_storage.PostgresStore {
		store, err := internal_storage.NewPostgresStore(ctx, testDB.ConnStr)
		require.NoError(t, err)
		txStore, err := store.Begin(ctx)
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = txStore.Rollback()
			_ = store.Close(ctx)
		})
		for _, l := range logs {
			_, err := txStore.Insert(ctx, l)
			require.NoError(t, err)
		}
		return txStore
	}

	t.Run("InsertAndFindOne", func(t *testing.T) {
		store := newTxStore(t)
		log := testutil.Trace("", testutil.WithFinalResponse(map[string]interface{}{
			"ai_output": map[string]interface{}{"decision": "SENT_ANSWER"},
		}), testutil.WithSteps(testutil.Step(models.LLMQueryStepType, "q")))

		id, err := store.Insert(ctx, log)
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		found, err := store.FindOne(ctx, query.Eq(query.FieldID, id))
		require.NoError(t, err)
		assert.Equal(t, id, found.ID)
		assert.Equal(t, log.ExecutionID, found.ExecutionID)
		assert.True(t, log.StartTime.Equal(found.StartTime))
		assert.Len(t, found.Steps, 1)
		assert.Equal(t, map[string]interface{}{"ai_output": map[string]interface{}{"decision": "SENT_ANSWER"}}, found.FinalResponse)
	})

	t.Run("FindOneNotFound", func(t *testing.T) {
		store := newTxStore(t)
		_, err := store.FindOne(ctx, query.Eq(query.FieldID, "missing"))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("FindFiltersSortsAndPages", func(t *testing.T) {
		logs := testutil.Traces("failed", 12, testutil.WithStatus(models.FailedExecutionStatus))
		logs = append(logs, testutil.Traces("ok", 3)...)
		store := newTxStore(t, logs...)

		p := query.Eq(query.FieldStatus, "failed")
		n, err := store.Count(ctx, p)
		require.NoError(t, err)
		assert.Equal(t, int64(12), n)

		page, err := store.Find(ctx, p, storage.FindOptions{SortField: query.FieldStartTime, SortDirection: query.Descending, Skip: 5, Limit: 5})
		require.NoError(t, err)
		require.Len(t, page, 5)
		assert.Equal(t, "failed-7", page[0].ID)
		assert.Equal(t, "failed-3", page[4].ID)
	})

	t.Run("TiesBreakByIDAscending", func(t *testing.T) {
		store := newTxStore(t, testutil.Trace("b"), testutil.Trace("c"), testutil.Trace("a"))
		for _, dir := range []query.SortDirection{query.Ascending, query.Descending} {
			logs, err := store.Find(ctx, query.All(), storage.FindOptions{SortField: query.FieldStartTime, SortDirection: dir})
			require.NoError(t, err)
			require.Len(t, logs, 3)
			assert.Equal(t, []string{"a", "b", "c"}, []string{logs[0].ID, logs[1].ID, logs[2].ID})
		}
	})

	t.Run("DocumentPathsAndSteps", func(t *testing.T) {
		store := newTxStore(t,
			testutil.Trace("human", testutil.WithFinalResponse(map[string]interface{}{
				"response": map[string]interface{}{"requires_human_assistance": true},
			})),
			testutil.Trace("errored", testutil.WithSteps(testutil.Step(models.ErrorStepType, "Upstream 50% timeout"))),
			testutil.Trace("plain"),
		)

		n, err := store.Count(ctx, query.Eq(query.FieldRequiresHumanAssistance, true))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = store.Count(ctx, query.Ne(query.FieldRequiresHumanAssistance, true))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = store.Count(ctx, query.Eq(query.FieldStepType, "error"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		n, err = store.Count(ctx, query.Ne(query.FieldStepType, "error"))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = store.Count(ctx, query.Contains(query.FieldStepMessage, "50% TIME"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Aggregate", func(t *testing.T) {
		store := newTxStore(t,
			testutil.Trace("a", testutil.WithDuration(1000)),
			testutil.Trace("b", testutil.WithDuration(2001)),
			testutil.Trace("c", testutil.WithStatus(models.FailedExecutionStatus), testutil.WithDuration(500)),
			testutil.Trace("d", testutil.WithStatus(models.RunningExecutionStatus)),
		)
		s, err := stats.NewAggregator(store).Aggregate(ctx, query.All())
		require.NoError(t, err)
		assert.Equal(t, stats.Stats{Total: 4, Running: 1, Completed: 2, Failed: 1, AvgDurationMs: 875, TotalDurationMs: 3501}, s)
	})

	t.Run("ServiceListsFromPostgres", func(t *testing.T) {
		// The service queries concurrently, which a single transaction cannot serve.
		store, err := internal_storage.NewPostgresStore(ctx, testDB.ConnStr)
		require.NoError(t, err)
		t.Cleanup(func() {
			testDB.Truncate(t)
			_ = store.Close(ctx)
		})
		start := testutil.BaseTime.Add(-48 * time.Hour)
		for _, l := range []models.ExecutionLog{
			testutil.Trace("old", testutil.WithStart(start)),
			testutil.Trace("new", testutil.WithMessage("Cancel my subscription")),
		} {
			_, err := store.Insert(ctx, l)
			require.NoError(t, err)
		}
		svc := service.NewExecutionLogService(store, nopLogger{})

		env := svc.List(ctx, query.Query{Search: "cancel", StartDate: "2025-03-01"})
		require.True(t, env.OK())
		require.Len(t, env.Data.Items, 1)
		assert.Equal(t, "new", env.Data.Items[0].ID)
	})

	t.Run("PingOnTransaction", func(t *testing.T) {
		store := newTxStore(t)
		assert.NoError(t, store.Ping(ctx))
		_, err := store.Begin(ctx)
		assert.Error(t, err)
	})
}
