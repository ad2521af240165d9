package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/pradumanrathod/studytracker/internal/common/database"
)

// RedisKV stores values in Redis without expiration; the tracker's slots
// are canonical caches, not ephemeral entries.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV wraps an existing Redis client.
func NewRedisKV(client *database.RedisClient) *RedisKV {
	return &RedisKV{client: client.Client}
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}
