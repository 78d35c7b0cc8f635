package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend keeps each collection as one JSON string value.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) Read(ctx context.Context, key string) ([]Record, bool, error) {
	data, err := b.client.Get(ctx, b.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	records, err := decodeArray(data)
	if err != nil {
		return nil, false, fmt.Errorf("decoding redis key %q: %w", b.prefix+key, err)
	}
	return records, true, nil
}

func (b *RedisBackend) Write(ctx context.Context, key string, records []Record) error {
	data, err := encodeArray(records)
	if err != nil {
		return err
	}
	return b.client.Set(ctx, b.prefix+key, data, 0).Err()
}

func (b *RedisBackend) Check(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
