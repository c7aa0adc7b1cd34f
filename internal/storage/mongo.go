package storage

import (
	"context"
	"fmt"

	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoStore reads execution logs from a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// mongoDocument decodes the _id, which the engine writes either as an ObjectID or a string,
// next to the log itself.
type mongoDocument struct {
	RawID               interface{} `bson:"_id"`
	models.ExecutionLog `bson:",inline"`
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{
			DefaultDocumentM:       true,
			AllowTruncatingDoubles: true,
		})
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect to mongodb")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongodb")
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Collection is the name of the backing collection.
func (s *MongoStore) Collection() string {
	return s.collection.Name()
}

func (s *MongoStore) FindOne(ctx context.Context, p query.Predicate) (models.ExecutionLog, error) {
	filter, err := mongoFilter(p)
	if err != nil {
		return models.ExecutionLog{}, err
	}
	var doc mongoDocument
	err = s.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.ExecutionLog{}, storage.ErrNotFound
	}
	if err != nil {
		return models.ExecutionLog{}, errors.Wrap(err, "find execution log")
	}
	return doc.log(), nil
}

func (s *MongoStore) Find(ctx context.Context, p query.Predicate, opts storage.FindOptions) ([]models.ExecutionLog, error) {
	filter, err := mongoFilter(p)
	if err != nil {
		return nil, err
	}
	findOpts := options.Find().SetSort(mongoSort(opts))
	if opts.Skip > 0 {
		findOpts.SetSkip(int64(opts.Skip))
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	cursor, err := s.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, errors.Wrap(err, "find execution logs")
	}
	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode execution logs")
	}
	logs := make([]models.ExecutionLog, 0, len(docs))
	for _, d := range docs {
		logs = append(logs, d.log())
	}
	return logs, nil
}

func (s *MongoStore) Count(ctx context.Context, p query.Predicate) (int64, error) {
	filter, err := mongoFilter(p)
	if err != nil {
		return 0, err
	}
	n, err := s.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, errors.Wrap(err, "count execution logs")
	}
	return n, nil
}

func (s *MongoStore) Aggregate(ctx context.Context, spec storage.AggregateSpec) ([]storage.Group, error) {
	pipeline, err := mongoAggregatePipeline(spec)
	if err != nil {
		return nil, err
	}
	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errors.Wrap(err, "aggregate execution logs")
	}
	var rows []struct {
		Key   interface{} `bson:"_id"`
		Count int64       `bson:"count"`
		Sum   int64       `bson:"sum"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, errors.Wrap(err, "decode aggregation")
	}
	groups := make([]storage.Group, 0, len(rows))
	for _, r := range rows {
		key := ""
		if r.Key != nil {
			key = fmt.Sprint(r.Key)
		}
		groups = append(groups, storage.Group{Key: key, Count: r.Count, Sum: r.Sum})
	}
	return groups, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Insert writes a log, keeping its ID as _id when set. It exists for fixtures; the service
// never writes.
func (s *MongoStore) Insert(ctx context.Context, log models.ExecutionLog) (string, error) {
	doc := mongoDocument{ExecutionLog: log, RawID: primitive.NewObjectID()}
	if log.ID != "" {
		doc.RawID = log.ID
	}
	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", errors.Wrap(err, "insert execution log")
	}
	return mongoID(doc.RawID), nil
}

func (d mongoDocument) log() models.ExecutionLog {
	log := d.ExecutionLog
	log.ID = mongoID(d.RawID)
	log.FinalResponse = normalizeBSON(log.FinalResponse)
	log.RequestData = normalizeMap(log.RequestData)
	if log.Steps == nil {
		log.Steps = []models.ExecutionStep{}
	}
	for i := range log.Steps {
		log.Steps[i].Payload = normalizeMap(log.Steps[i].Payload)
		log.Steps[i].Response = normalizeMap(log.Steps[i].Response)
		log.Steps[i].Metadata = normalizeMap(log.Steps[i].Metadata)
	}
	return log
}

func mongoID(raw interface{}) string {
	switch id := raw.(type) {
	case primitive.ObjectID:
		return id.Hex()
	case string:
		return id
	case nil:
		return ""
	}
	return fmt.Sprint(raw)
}

// normalizeBSON converts driver container types into the plain maps and slices that
// encoding/json and the decision extractor expect.
func normalizeBSON(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.M:
		return normalizeMap(t)
	case map[string]interface{}:
		return normalizeMap(t)
	case primitive.D:
		m := make(map[string]interface{}, len(t))
		for _, e := range t {
			m[e.Key] = normalizeBSON(e.Value)
		}
		return m
	case primitive.A:
		return normalizeSlice(t)
	case []interface{}:
		return normalizeSlice(t)
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case int32:
		return int64(t)
	}
	return v
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeBSON(v)
	}
	return out
}

func normalizeSlice(s []interface{}) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = normalizeBSON(v)
	}
	return out
}

var _ storage.TraceStore = (*MongoStore)(nil)

