package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/tinylink/internal/shortener"
)

// RedisCache stores links as Redis hashes with an optional TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed link cache. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "cache:link:",
		ttl:    ttl,
	}
}

func (r *RedisCache) Get(ctx context.Context, token shortener.Token) (*shortener.ShortLink, error) {
	fields, err := r.client.HGetAll(ctx, r.prefix+string(token)).Result()
	if err != nil {
		return nil, err
	}

	link, ok := linkFromHash(fields)
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return link, nil
}

func (r *RedisCache) Set(ctx context.Context, link *shortener.ShortLink) error {
	key := r.prefix + string(link.Token)

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, key, linkToHash(link))

	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}

	_, err := pipe.Exec(ctx)

	return err
}

var _ Cache = (*RedisCache)(nil)
