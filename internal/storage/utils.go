package storage

import (
	"context"

	"github.com/muizidn/cs-ai-help-admin-management/internal/cache"
	"github.com/muizidn/cs-ai-help-admin-management/internal/config"
	"github.com/muizidn/cs-ai-help-admin-management/internal/log"
	"github.com/muizidn/cs-ai-help-admin-management/pkg/storage"
	"github.com/pkg/errors"
)

// InitStore opens the configured backend, instruments it, and puts the Redis cache in front
// when REDIS_URL is set. An unreachable Redis is logged and skipped.
func InitStore(ctx context.Context, cfg config.Config) (storage.TraceStore, error) {
	var (
		store      storage.TraceStore
		collection string
	)
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pg, err := NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		store, collection = pg, pg.Collection()
	case config.BackendMongo, "":
		mg, err := NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, err
		}
		store, collection = mg, mg.Collection()
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	logger := log.GetLogger().WithField("backend", cfg.StoreBackend)
	store = NewInstrumentedStore(store, collection, logger)

	if cfg.RedisURL == "" || cfg.StatsCacheTTL <= 0 {
		return store, nil
	}
	client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, serving stats without a cache")
		return store, nil
	}
	return cache.NewCachedStore(store, client, cfg.StatsCacheTTL, logger), nil
}
