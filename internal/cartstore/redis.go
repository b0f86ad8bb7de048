package cartstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jogardn/panda-lite/internal/cart"
	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (cart.Cart, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.Cart{}, false, nil
	}
	if err != nil {
		return cart.Cart{}, false, fmt.Errorf("failed to read cart from redis: %w", err)
	}
	c, err := cart.Decode(data)
	if err != nil {
		return cart.Cart{}, false, err
	}
	return c, true, nil
}

func (s *RedisStore) Save(ctx context.Context, c cart.Cart) error {
	data, err := cart.Encode(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cart to redis: %w", err)
	}
	return nil
}
