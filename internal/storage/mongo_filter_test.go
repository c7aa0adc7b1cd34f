package storage

import (
	"testing"
	"time"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/stats"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMongoFilter(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24*time.Hour - time.Millisecond)
	oid, err := primitive.ObjectIDFromHex("65f1c0ffee0000000000abcd")
	require.NoError(t, err)

	tests := []struct {
		name string
		p    query.Predicate
		want bson.D
	}{
		{"All", query.All(), bson.D{}},
		{"EmptyOr", query.Predicate{Op: query.OpOr}, matchNothing},
		{"Eq", query.Eq(query.FieldStatus, "failed"), bson.D{{Key: "status", Value: "failed"}}},
		{"EqNested", query.Eq(query.FieldRequiresHumanAssistance, true),
			bson.D{{Key: "final_response.response.requires_human_assistance", Value: true}}},
		{"EqObjectID", query.Eq(query.FieldID, oid.Hex()),
			bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: bson.A{oid, oid.Hex()}}}}}},
		{"EqStringID", query.Eq(query.FieldID, "trace-1"), bson.D{{Key: "_id", Value: "trace-1"}}},
		{"Ne", query.Ne(query.FieldStepType, "error"),
			bson.D{{Key: "steps.step_type", Value: bson.D{{Key: "$ne", Value: "error"}}}}},
		{"ContainsIsEscaped", query.Contains(query.FieldOriginalMessage, "order (#12)?"),
			bson.D{{Key: "original_message", Value: primitive.Regex{Pattern: `order \(#12\)\?`, Options: "i"}}}},
		{"Range", query.Range(query.FieldStartTime, &from, &to),
			bson.D{{Key: "start_time", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lte", Value: to}}}}},
		{"OpenRange", query.Range(query.FieldStartTime, nil, nil), bson.D{}},
		{"AndOr", query.And(
			query.Eq(query.FieldStatus, "completed"),
			query.Or(query.Eq(query.FieldContext, "TRY_ANSWER"), query.Eq(query.FieldContext, "FOLLOW_UP")),
		), bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "status", Value: "completed"}},
			bson.D{{Key: "$or", Value: bson.A{
				bson.D{{Key: "context", Value: "TRY_ANSWER"}},
				bson.D{{Key: "context", Value: "FOLLOW_UP"}},
			}}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mongoFilter(tt.p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("ContainsNeedsAString", func(t *testing.T) {
		_, err := mongoFilter(query.Predicate{Op: query.OpContains, Field: "status", Value: 3})
		assert.Error(t, err)
	})

	t.Run("UnknownOperator", func(t *testing.T) {
		_, err := mongoFilter(query.Predicate{Op: "regex", Field: "status"})
		assert.Error(t, err)
	})
}

func TestMongoSort(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "start_time", Value: -1}, {Key: "_id", Value: 1}}, mongoSort(storage.FindOptions{}))
	assert.Equal(t,
		bson.D{{Key: "total_duration_ms", Value: 1}, {Key: "_id", Value: 1}},
		mongoSort(storage.FindOptions{SortField: query.FieldTotalDurationMs, SortDirection: query.Ascending}))
}

func TestMongoAggregatePipeline(t *testing.T) {
	pipeline, err := mongoAggregatePipeline(stats.Spec(query.Eq(query.FieldBusinessID, "biz-1")))
	require.NoError(t, err)
	assert.Equal(t, []bson.D{
		{{Key: "$match", Value: bson.D{{Key: "business_id", Value: "biz-1"}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "sum", Value: bson.D{{Key: "$sum", Value: bson.D{
				{Key: "$ifNull", Value: bson.A{"$total_duration_ms", 0}},
			}}}},
		}}},
	}, pipeline)
}

func TestNormalizeBSON(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()

	got := normalizeBSON(primitive.D{
		{Key: "context", Value: "TRY_ANSWER"},
		{Key: "ai_output", Value: primitive.M{"decision": "SENT_ANSWER", "tokens": int32(12)}},
		{Key: "sources", Value: primitive.A{oid, primitive.NewDateTimeFromTime(at)}},
	})

	assert.Equal(t, map[string]interface{}{
		"context":   "TRY_ANSWER",
		"ai_output": map[string]interface{}{"decision": "SENT_ANSWER", "tokens": int64(12)},
		"sources":   []interface{}{oid.Hex(), at},
	}, got)
	assert.Equal(t, "plain", normalizeBSON("plain"))
	assert.Nil(t, normalizeMap(nil))
}

func TestMongoDocumentLog(t *testing.T) {
	oid := primitive.NewObjectID()
	d := mongoDocument{RawID: oid}
	d.FinalResponse = primitive.M{"final_message": "hi"}

	log := d.log()
	assert.Equal(t, oid.Hex(), log.ID)
	assert.Equal(t, map[string]interface{}{"final_message": "hi"}, log.FinalResponse)
	assert.NotNil(t, log.Steps)

	assert.Equal(t, "legacy-1", mongoID("legacy-1"))
	assert.Equal(t, "", mongoID(nil))
}
