package storage

import (
	"context"
	"time"

	"github.com/muizidn/cs-ai-help-admin-management/internal/metrics"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/models"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/query"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// InstrumentedStore logs and times every call to the wrapped store.
type InstrumentedStore struct {
	next       storage.TraceStore
	logger     logrus.FieldLogger
	collection string
}

func NewInstrumentedStore(next storage.TraceStore, collection string, logger logrus.FieldLogger) *InstrumentedStore {
	return &InstrumentedStore{next: next, logger: logger, collection: collection}
}

func (s *InstrumentedStore) observe(operation string, start time.Time, err error) {
	d := time.Since(start)
	if errors.Is(err, storage.ErrNotFound) {
		err = nil
	}
	metrics.ObserveStoreOperation(operation, s.collection, d, err)
	entry := s.logger.WithFields(logrus.Fields{
		"operation":   operation,
		"collection":  s.collection,
		"duration_ms": d.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("Store operation failed")
		return
	}
	entry.Debug("Store operation completed")
}

func (s *InstrumentedStore) FindOne(ctx context.Context, p query.Predicate) (log models.ExecutionLog, err error) {
	defer func(start time.Time) { s.observe("findOne", start, err) }(time.Now())
	return s.next.FindOne(ctx, p)
}

func (s *InstrumentedStore) Find(ctx context.Context, p query.Predicate, opts storage.FindOptions) (logs []models.ExecutionLog, err error) {
	defer func(start time.Time) { s.observe("find", start, err) }(time.Now())
	return s.next.Find(ctx, p, opts)
}

func (s *InstrumentedStore) Count(ctx context.Context, p query.Predicate) (n int64, err error) {
	defer func(start time.Time) { s.observe("countDocuments", start, err) }(time.Now())
	return s.next.Count(ctx, p)
}

func (s *InstrumentedStore) Aggregate(ctx context.Context, spec storage.AggregateSpec) (groups []storage.Group, err error) {
	defer func(start time.Time) { s.observe("aggregate", start, err) }(time.Now())
	return s.next.Aggregate(ctx, spec)
}

func (s *InstrumentedStore) Ping(ctx context.Context) (err error) {
	defer func(start time.Time) { s.observe("ping", start, err) }(time.Now())
	return s.next.Ping(ctx)
}

func (s *InstrumentedStore) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}

var _ storage.TraceStore = (*InstrumentedStore)(nil)
