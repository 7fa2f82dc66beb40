package container

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/tinylink/internal/events"
	"github.com/serroba/tinylink/internal/handlers"
	"github.com/serroba/tinylink/internal/health"
	"github.com/serroba/tinylink/internal/messaging"
	"github.com/serroba/tinylink/internal/metrics"
	"github.com/serroba/tinylink/internal/middleware"
	"github.com/serroba/tinylink/internal/shortener"
	"github.com/serroba/tinylink/internal/store"
	"github.com/serroba/tinylink/internal/token"
	"go.uber.org/zap"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreSQLite   = "sqlite"
	StoreRedis    = "redis"
)

// Cache and event modes.
const (
	CacheNone  = "none"
	CacheLocal = "local"
	CacheRedis = "redis"

	EventsNone  = "none"
	EventsRedis = "redis"

	TokenSourceNanoID = "nanoid"
	TokenSourceCrypto = "crypto"
)

const (
	connectTimeout   = 10 * time.Second
	warmerGroup      = "tinylink-warmer"
	metricsNamespace = "tinylink"
)

var errUnsupportedOption = errors.New("unsupported option")

type Options struct {
	Port        int           `default:"8888"           help:"Port to listen on"                                 short:"p"`
	BaseURL     string        `default:""               help:"Public base URL for short links (default http://localhost:<port>)"`
	TokenLength int           `default:"6"              help:"Length of generated tokens"                         short:"l"`
	MaxAttempts int           `default:"10"             help:"Reservation attempts before giving up"`
	TokenSource string        `default:"nanoid"         help:"Token generator: nanoid or crypto"`
	Store       string        `default:"memory"         help:"Link store: memory, postgres, mysql, sqlite or redis" short:"s"`
	DatabaseURL string        `default:""               help:"Postgres URL, MySQL DSN or SQLite file path"          short:"d"`
	AutoMigrate bool          `default:"false"          help:"Apply database migrations on startup"`
	RedisAddr   string        `default:"localhost:6379" help:"Redis server address"                                 short:"r"`
	Cache       string        `default:"none"           help:"Resolve cache: none, local or redis"`
	CacheTTL    time.Duration `default:"1h"             help:"Cache entry lifetime (0 keeps entries forever)"`
	Events      string        `default:"none"           help:"Link events transport: none or redis"`
	LogFormat   string        `default:"console"        help:"Log format: console or json"`
	LogLevel    string        `default:"info"           help:"Log level: debug, info, warn or error"`
}

// ShortURLBase returns the configured base URL without a trailing slash.
func (o *Options) ShortURLBase() string {
	if o.BaseURL == "" {
		return fmt.Sprintf("http://localhost:%d", o.Port)
	}

	return strings.TrimRight(o.BaseURL, "/")
}

// UsesRedis reports whether any configured component needs a Redis connection.
func (o *Options) UsesRedis() bool {
	return o.Store == StoreRedis || o.Cache == CacheRedis || o.Events == EventsRedis
}

// LoggerPackage provides *zap.Logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		return NewLogger(opts.LogFormat, opts.LogLevel)
	})
}

// NewLogger builds a JSON production logger or a console development logger.
func NewLogger(format, level string) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if format == "json" {
		cfg = zap.NewProductionConfig()
	}

	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}

		cfg.Level = lvl
	}

	return cfg.Build()
}

// RedisClient owns the shared Redis connection.
type RedisClient struct {
	*redis.Client
}

func (c *RedisClient) Shutdown() error {
	return c.Close()
}

// RedisPackage provides *RedisClient.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisClient, error) {
		opts := do.MustInvoke[*Options](i)

		return &RedisClient{Client: redis.NewClient(&redis.Options{Addr: opts.RedisAddr})}, nil
	})
}

// Backend is the configured store before caching and instrumentation.
// Checker is nil for backends with nothing to ping.
type Backend struct {
	Registry shortener.Registry
	Checker  health.Checker
	close    func() error
}

func (b *Backend) Shutdown() error {
	if b.close == nil {
		return nil
	}

	return b.close()
}

// RegistryPackage provides *Backend and the decorated shortener.Registry.
func RegistryPackage(injector *do.Injector) {
	do.Provide(injector, newBackend)
	do.Provide(injector, func(i *do.Injector) (shortener.Registry, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		backend, err := do.Invoke[*Backend](i)
		if err != nil {
			return nil, err
		}

		registry := backend.Registry

		switch opts.Cache {
		case CacheNone, "":
		case CacheLocal:
			registry = store.NewCachedRegistry(registry, store.NewLocalCache(opts.CacheTTL), logger)
		case CacheRedis:
			client := do.MustInvoke[*RedisClient](i)
			registry = store.NewCachedRegistry(registry, store.NewRedisCache(client.Client, opts.CacheTTL), logger)
		default:
			return nil, fmt.Errorf("%w: cache %q", errUnsupportedOption, opts.Cache)
		}

		return m.InstrumentRegistry(registry), nil
	})
}

func newBackend(i *do.Injector) (*Backend, error) {
	opts := do.MustInvoke[*Options](i)
	logger := do.MustInvoke[*zap.Logger](i)

	if opts.AutoMigrate {
		if err := RunMigrations(opts); err != nil {
			return nil, err
		}

		logger.Info("migrations applied", zap.String("store", opts.Store))
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	switch opts.Store {
	case StoreMemory, "":
		return &Backend{Registry: store.NewMemoryRegistry()}, nil
	case StorePostgres:
		pool, err := pgxpool.New(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}

		registry := store.NewPostgresRegistry(pool)

		return &Backend{Registry: registry, Checker: registry, close: registry.Shutdown}, nil
	case StoreMySQL:
		db, err := store.OpenMySQL(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}

		registry := store.NewMySQLRegistry(db)

		return &Backend{Registry: registry, Checker: registry, close: registry.Shutdown}, nil
	case StoreSQLite:
		db, err := store.OpenSQLite(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}

		registry := store.NewSQLiteRegistry(db)

		return &Backend{Registry: registry, Checker: registry, close: registry.Shutdown}, nil
	case StoreRedis:
		client := do.MustInvoke[*RedisClient](i)
		registry := store.NewRedisRegistry(client.Client)

		return &Backend{Registry: registry, Checker: registry}, nil
	default:
		return nil, fmt.Errorf("%w: store %q", errUnsupportedOption, opts.Store)
	}
}

// RunMigrations applies the embedded migrations for the configured SQL store.
func RunMigrations(opts *Options) error {
	dialect, ok := map[string]string{
		StorePostgres: store.DialectPostgres,
		StoreMySQL:    store.DialectMySQL,
		StoreSQLite:   store.DialectSQLite,
	}[opts.Store]
	if !ok {
		return fmt.Errorf("%w: store %q has no migrations", errUnsupportedOption, opts.Store)
	}

	return store.Migrate(dialect, opts.DatabaseURL)
}

// IssuerPackage provides *shortener.Issuer.
func IssuerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortener.Issuer, error) {
		opts := do.MustInvoke[*Options](i)
		registry, err := do.Invoke[shortener.Registry](i)
		if err != nil {
			return nil, err
		}

		generator, err := newGenerator(opts.TokenSource, opts.TokenLength)
		if err != nil {
			return nil, err
		}

		return shortener.NewIssuer(registry, generator, shortener.WithMaxAttempts(opts.MaxAttempts)), nil
	})
}

func newGenerator(source string, length int) (token.Generator, error) {
	switch source {
	case TokenSourceNanoID, "":
		generator, err := token.NewNanoID(length)
		if err != nil {
			return nil, err
		}

		return generator, nil
	case TokenSourceCrypto:
		return token.NewGenerator(nil, length), nil
	default:
		return nil, fmt.Errorf("%w: token source %q", errUnsupportedOption, source)
	}
}

// MessagingPackage provides the LinkIssued publish function, backed by a
// Redis stream publisher when events are enabled.
func MessagingPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.PublisherGroup, error) {
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{Client: client.Client},
			messaging.NewZapLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}

		return messaging.NewPublisherGroup(publisher), nil
	})

	do.Provide(injector, func(i *do.Injector) (messaging.Publish[events.LinkIssued], error) {
		opts := do.MustInvoke[*Options](i)

		switch opts.Events {
		case EventsNone, "":
			return messaging.Discard[events.LinkIssued](), nil
		case EventsRedis:
			group := do.MustInvoke[*messaging.PublisherGroup](i)

			return messaging.NewPublishFunc[events.LinkIssued](group.Publisher(), events.TopicLinkIssued), nil
		default:
			return nil, fmt.Errorf("%w: events %q", errUnsupportedOption, opts.Events)
		}
	})
}

// MetricsPackage provides *metrics.Metrics.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(metricsNamespace), nil
	})
}

// HTTPPackage provides the router and the huma API with every route registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		router := chi.NewMux()
		router.Use(chimiddleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer)

		return router, nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		router := do.MustInvoke[*chi.Mux](i)
		logger := do.MustInvoke[*zap.Logger](i)
		m := do.MustInvoke[*metrics.Metrics](i)

		handlers.UseBadRequestForValidation()

		api := humachi.New(router, huma.DefaultConfig("tinylink", "1.0.0"))
		api.UseMiddleware(middleware.RequestLogger(logger))

		linkHandler := handlers.NewLinkHandler(
			do.MustInvoke[*shortener.Issuer](i),
			do.MustInvoke[shortener.Registry](i),
			opts.ShortURLBase(),
			do.MustInvoke[messaging.Publish[events.LinkIssued]](i),
			m,
			logger,
		)

		handlers.RegisterRoutes(api, linkHandler)
		health.RegisterRoutes(api, health.NewHandler(checkers(i, opts)))
		router.Handle("/metrics", m.Handler())

		return api, nil
	})
}

func checkers(i *do.Injector, opts *Options) map[string]health.Checker {
	result := map[string]health.Checker{}

	if backend := do.MustInvoke[*Backend](i); backend.Checker != nil {
		result["registry"] = backend.Checker
	}

	if opts.UsesRedis() {
		result["redis"] = health.NewRedisChecker(do.MustInvoke[*RedisClient](i).Client)
	}

	return result
}

// ConsumerPackage provides the consumer group that warms the Redis cache
// from LinkIssued events.
func ConsumerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		opts := do.MustInvoke[*Options](i)
		client := do.MustInvoke[*RedisClient](i)
		logger := do.MustInvoke[*zap.Logger](i)

		subscriber, err := redisstream.NewSubscriber(
			redisstream.SubscriberConfig{
				Client:        client.Client,
				ConsumerGroup: warmerGroup,
			},
			messaging.NewZapLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("create subscriber: %w", err)
		}

		cache := store.NewRedisCache(client.Client, opts.CacheTTL)

		group := messaging.NewConsumerGroup(subscriber, logger)
		group.Add(messaging.NewConsumer(
			subscriber,
			events.TopicLinkIssued,
			events.NewCacheWarmer(cache, logger),
			logger,
		))

		return group, nil
	})
}

// Register provides every server package on injector.
func Register(injector *do.Injector, options *Options) {
	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	RedisPackage(injector)
	MetricsPackage(injector)
	RegistryPackage(injector)
	IssuerPackage(injector)
	MessagingPackage(injector)
	HTTPPackage(injector)
}

// Describe returns the enabled components as log fields.
func Describe(opts *Options) []zap.Field {
	return []zap.Field{
		zap.String("store", opts.Store),
		zap.String("cache", opts.Cache),
		zap.String("events", opts.Events),
		zap.String("token_source", opts.TokenSource),
		zap.Int("token_length", opts.TokenLength),
		zap.Int("max_attempts", opts.MaxAttempts),
	}
}
