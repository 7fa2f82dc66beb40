package shortener

import (
	"context"
	"time"
)

// Token is the short identifier a link is published under.
type Token string

// ShortLink maps a token to its destination URL.
type ShortLink struct {
	Token     Token
	URL       string
	CreatedAt time.Time
}

// Registry owns the token -> URL mapping and is the single source of truth for uniqueness.
type Registry interface {
	// Reserve atomically claims token for url. It returns ErrConflict when the
	// token is already taken and a store failure for anything else.
	Reserve(ctx context.Context, token Token, url string) error

	// Resolve returns the link stored under token, or ErrNotFound.
	Resolve(ctx context.Context, token Token) (*ShortLink, error)
}
