package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/muizidn/cs-ai-help-admin-management/internal/metrics"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "tracelog:"

// CachedStore serves Aggregate from Redis for up to ttl. Other calls, including the Count
// that pairs with every Find, go straight to the wrapped store so listings stay consistent.
// A failing Redis degrades to uncached reads.
type CachedStore struct {
	storage.TraceStore
	client *redis.Client
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewRedisClient connects to url (redis://[user:pass@]host:port/db) and checks it answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "ping redis")
	}
	return client, nil
}

func NewCachedStore(next storage.TraceStore, client *redis.Client, ttl time.Duration, logger logrus.FieldLogger) *CachedStore {
	return &CachedStore{TraceStore: next, client: client, ttl: ttl, logger: logger}
}

func (s *CachedStore) Aggregate(ctx context.Context, spec storage.AggregateSpec) ([]storage.Group, error) {
	const op = "aggregate"
	key, err := cacheKey(op, spec)
	if err != nil {
		return nil, err
	}
	if raw, ok := s.get(ctx, op, key); ok {
		var groups []storage.Group
		if err := json.Unmarshal([]byte(raw), &groups); err == nil {
			return groups, nil
		}
	}
	groups, err := s.TraceStore.Aggregate(ctx, spec)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(groups); err == nil {
		s.set(ctx, op, key, string(encoded))
	}
	return groups, nil
}

func (s *CachedStore) Close(ctx context.Context) error {
	if err := s.client.Close(); err != nil {
		s.logger.WithError(err).Warn("Failed to close redis client")
	}
	return s.TraceStore.Close(ctx)
}

func (s *CachedStore) get(ctx context.Context, op, key string) (string, bool) {
	raw, err := s.client.Get(ctx, key).Result()
	switch {
	case err == redis.Nil:
		metrics.CacheMiss(op)
		return "", false
	case err != nil:
		metrics.CacheError(op)
		s.logger.WithError(err).WithField("operation", op).Warn("Cache read failed")
		return "", false
	}
	metrics.CacheHit(op)
	return raw, true
}

func (s *CachedStore) set(ctx context.Context, op, key, value string) {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		metrics.CacheError(op)
		s.logger.WithError(err).WithField("operation", op).Warn("Cache write failed")
	}
}

// cacheKey derives a stable key from the JSON form of the request.
func cacheKey(op string, v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(err, "encode %s cache key", op)
	}
	sum := sha256.Sum256(b)
	return keyPrefix + op + ":" + hex.EncodeToString(sum[:]), nil
}

var _ storage.TraceStore = (*CachedStore)(nil)
