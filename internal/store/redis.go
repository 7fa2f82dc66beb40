package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/tinylink/internal/shortener"
)

// reserveScript writes the link hash only if the key does not exist yet.
// Running it as a script keeps the existence check and the write atomic.
var reserveScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return 0
end
redis.call("HSET", KEYS[1], "token", ARGV[1], "url", ARGV[2], "created_at", ARGV[3])
return 1
`)

// RedisRegistry is a Redis implementation of shortener.Registry.
// Each link is a hash stored under prefix+token.
type RedisRegistry struct {
	client *redis.Client
	prefix string
}

// NewRedisRegistry creates a new Redis-backed registry.
func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	return &RedisRegistry{
		client: client,
		prefix: "link:",
	}
}

func (r *RedisRegistry) Reserve(ctx context.Context, token shortener.Token, url string) error {
	createdAt := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)

	reserved, err := reserveScript.Run(ctx, r.client,
		[]string{r.prefix + string(token)},
		string(token), url, createdAt,
	).Int()
	if err != nil {
		return shortener.StoreFailure("reserve", err)
	}

	if reserved == 0 {
		return shortener.ErrConflict
	}

	return nil
}

func (r *RedisRegistry) Resolve(ctx context.Context, token shortener.Token) (*shortener.ShortLink, error) {
	fields, err := r.client.HGetAll(ctx, r.prefix+string(token)).Result()
	if err != nil {
		return nil, shortener.StoreFailure("resolve", err)
	}

	link, ok := linkFromHash(fields)
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return link, nil
}

// Ping checks Redis connectivity.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func linkFromHash(fields map[string]string) (*shortener.ShortLink, bool) {
	url, ok := fields["url"]
	if !ok {
		return nil, false
	}

	var createdAt time.Time

	if ts, ok := fields["created_at"]; ok {
		if nanos, err := strconv.ParseInt(ts, 10, 64); err == nil {
			createdAt = time.Unix(0, nanos).UTC()
		}
	}

	return &shortener.ShortLink{
		Token:     shortener.Token(fields["token"]),
		URL:       url,
		CreatedAt: createdAt,
	}, true
}

func linkToHash(link *shortener.ShortLink) map[string]any {
	return map[string]any{
		"token":      string(link.Token),
		"url":        link.URL,
		"created_at": link.CreatedAt.UnixNano(),
	}
}

var _ shortener.Registry = (*RedisRegistry)(nil)
