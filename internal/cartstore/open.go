package cartstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jogardn/panda-lite/internal/cart"
	"github.com/jogardn/panda-lite/internal/config"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Open builds the store selected by cfg. The returned close function
// releases any connection the store holds.
func Open(ctx context.Context, cfg config.CartConfig, logger *logrus.Logger) (cart.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case config.CartStoreMemory:
		logger.Info("Using in-memory cart store")
		return NewMemoryStore(), noop, nil

	case config.CartStoreFile:
		logger.WithField("path", cfg.File).Info("Using file cart store")
		return NewFileStore(cfg.File), noop, nil

	case config.CartStoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		logger.WithField("addr", cfg.RedisAddr).Info("Using redis cart store")
		return NewRedisStore(client, cfg.Key), client.Close, nil

	case config.CartStorePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		store := NewPostgresStore(db, cfg.Key)
		if err := store.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("Using postgres cart store")
		return store, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown cart store %q", cfg.Store)
	}
}
