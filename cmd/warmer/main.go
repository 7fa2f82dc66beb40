// Command warmer consumes LinkIssued events and writes each new link into the
// Redis resolve cache, so the server's first redirect is a cache hit.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/do"
	"github.com/serroba/tinylink/internal/container"
	"github.com/serroba/tinylink/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	injector := do.New()
	do.ProvideValue(injector, optionsFromEnv())
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.ConsumerPackage(injector)

	logger := do.MustInvoke[*zap.Logger](injector)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group := do.MustInvoke[*messaging.ConsumerGroup](injector)
	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer group", zap.Error(err))
	}

	logger.Info("warmer running", zap.String("redis", do.MustInvoke[*container.Options](injector).RedisAddr))

	<-ctx.Done()
	logger.Info("shutting down")

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// optionsFromEnv reads the SERVICE_* variables the server's CLI also honours.
func optionsFromEnv() *container.Options {
	opts := &container.Options{
		RedisAddr: envOr("SERVICE_REDIS_ADDR", "localhost:6379"),
		CacheTTL:  time.Hour,
		LogFormat: envOr("SERVICE_LOG_FORMAT", "console"),
		LogLevel:  envOr("SERVICE_LOG_LEVEL", "info"),
	}

	if ttl, err := time.ParseDuration(os.Getenv("SERVICE_CACHE_TTL")); err == nil {
		opts.CacheTTL = ttl
	}

	return opts
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}

	return fallback
}
