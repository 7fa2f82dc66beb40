package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/tinylink/internal/shortener"
)

// PostgresRegistry is a PostgreSQL implementation of shortener.Registry.
// Uniqueness is enforced by the primary key on short_links.token.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a new PostgreSQL-backed registry.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

func (p *PostgresRegistry) Reserve(ctx context.Context, token shortener.Token, url string) error {
	query := `
		INSERT INTO short_links (token, url, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := p.pool.Exec(ctx, query, string(token), url, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return shortener.ErrConflict
		}

		return shortener.StoreFailure("reserve", err)
	}

	return nil
}

func (p *PostgresRegistry) Resolve(ctx context.Context, token shortener.Token) (*shortener.ShortLink, error) {
	query := `
		SELECT token, url, created_at
		FROM short_links
		WHERE token = $1
	`

	var (
		link     shortener.ShortLink
		rawToken string
	)

	err := p.pool.QueryRow(ctx, query, string(token)).Scan(&rawToken, &link.URL, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, shortener.StoreFailure("resolve", err)
	}

	link.Token = shortener.Token(rawToken)

	return &link, nil
}

// Ping checks PostgreSQL connectivity.
func (p *PostgresRegistry) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Shutdown closes the connection pool.
func (p *PostgresRegistry) Shutdown() error {
	p.pool.Close()

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

var _ shortener.Registry = (*PostgresRegistry)(nil)
