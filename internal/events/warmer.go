package events

import (
	"context"

	"github.com/serroba/tinylink/internal/messaging"
	"github.com/serroba/tinylink/internal/shortener"
	"go.uber.org/zap"
)

// CacheWriter is the subset of a link cache the warmer needs.
type CacheWriter interface {
	Set(ctx context.Context, link *shortener.ShortLink) error
}

// NewCacheWarmer returns a handler that stores every issued link in cache so
// the first redirect does not have to reach the registry.
func NewCacheWarmer(cache CacheWriter, logger *zap.Logger) messaging.Handler[LinkIssued] {
	return func(ctx context.Context, event *LinkIssued) error {
		link := &shortener.ShortLink{
			Token:     shortener.Token(event.Token),
			URL:       event.URL,
			CreatedAt: event.IssuedAt,
		}

		if err := cache.Set(ctx, link); err != nil {
			return err
		}

		logger.Debug("cache warmed", zap.String("token", event.Token))

		return nil
	}
}
