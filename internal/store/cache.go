package store

import (
	"context"
	"errors"

	"github.com/serroba/tinylink/internal/shortener"
	"go.uber.org/zap"
)

// Cache holds resolved links. Get returns shortener.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, token shortener.Token) (*shortener.ShortLink, error)
	Set(ctx context.Context, link *shortener.ShortLink) error
}

// CachedRegistry wraps a Registry with a read-through cache.
// Links never change once reserved, so cached entries cannot go stale;
// misses are not cached because the token may be reserved later.
type CachedRegistry struct {
	registry shortener.Registry
	cache    Cache
	logger   *zap.Logger
}

// NewCachedRegistry creates a read-through caching decorator.
func NewCachedRegistry(registry shortener.Registry, cache Cache, logger *zap.Logger) *CachedRegistry {
	return &CachedRegistry{
		registry: registry,
		cache:    cache,
		logger:   logger,
	}
}

// Reserve goes straight to the underlying registry.
func (c *CachedRegistry) Reserve(ctx context.Context, token shortener.Token, url string) error {
	return c.registry.Reserve(ctx, token, url)
}

// Resolve checks the cache first and populates it on a registry hit.
func (c *CachedRegistry) Resolve(ctx context.Context, token shortener.Token) (*shortener.ShortLink, error) {
	link, err := c.cache.Get(ctx, token)
	if err == nil {
		return link, nil
	}

	if !errors.Is(err, shortener.ErrNotFound) {
		c.logger.Warn("cache read failed", zap.String("token", string(token)), zap.Error(err))
	}

	link, err = c.registry.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, link); err != nil {
		c.logger.Warn("cache write failed", zap.String("token", string(token)), zap.Error(err))
	}

	return link, nil
}

// Ping forwards to the wrapped registry when it supports health checks.
func (c *CachedRegistry) Ping(ctx context.Context) error {
	if p, ok := c.registry.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}

	return nil
}

var _ shortener.Registry = (*CachedRegistry)(nil)
