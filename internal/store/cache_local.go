package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/serroba/tinylink/internal/shortener"
)

// LocalCache keeps links in process memory.
type LocalCache struct {
	cache *gocache.Cache
}

// NewLocalCache creates an in-process cache. A zero ttl keeps entries until restart.
func NewLocalCache(ttl time.Duration) *LocalCache {
	if ttl <= 0 {
		return &LocalCache{cache: gocache.New(gocache.NoExpiration, 0)}
	}

	return &LocalCache{cache: gocache.New(ttl, 2*ttl)}
}

func (l *LocalCache) Get(_ context.Context, token shortener.Token) (*shortener.ShortLink, error) {
	v, ok := l.cache.Get(string(token))
	if !ok {
		return nil, shortener.ErrNotFound
	}

	link := v.(shortener.ShortLink)

	return &link, nil
}

func (l *LocalCache) Set(_ context.Context, link *shortener.ShortLink) error {
	l.cache.SetDefault(string(link.Token), *link)

	return nil
}

// Len returns the number of cached links, expired ones included until cleanup runs.
func (l *LocalCache) Len() int {
	return l.cache.ItemCount()
}

// Shutdown drops all cached links.
func (l *LocalCache) Shutdown() error {
	l.cache.Flush()

	return nil
}

var _ Cache = (*LocalCache)(nil)
