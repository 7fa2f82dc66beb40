package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/jellydator/validation"
	"github.com/sethvargo/go-retry"
	"github.com/serroba/tinylink/internal/token"
)

// DefaultMaxAttempts bounds the generate-and-reserve cycles of a single Issue call.
const DefaultMaxAttempts = 10

// Issuer hands out tokens that are unique within a Registry.
// It holds no mutable state and is safe for concurrent use.
type Issuer struct {
	registry    Registry
	generator   token.Generator
	maxAttempts int
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithMaxAttempts overrides DefaultMaxAttempts. Values below 1 are ignored.
func WithMaxAttempts(n int) Option {
	return func(i *Issuer) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

// NewIssuer creates an Issuer reserving tokens from generator in registry.
func NewIssuer(registry Registry, generator token.Generator, opts ...Option) *Issuer {
	i := &Issuer{
		registry:    registry,
		generator:   generator,
		maxAttempts: DefaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// MaxAttempts returns the attempt ceiling.
func (i *Issuer) MaxAttempts() int {
	return i.maxAttempts
}

// Issue reserves a fresh token for url.
//
// Conflicts are retried immediately until the attempt ceiling is reached, at
// which point ErrExhausted is returned. Any other registry error aborts the
// loop and is returned as a store failure. A reservation that succeeded is
// kept even if ctx is cancelled before the caller reads the result.
func (i *Issuer) Issue(ctx context.Context, url string) (Token, error) {
	if err := validation.Validate(url, validation.Required); err != nil {
		return "", fmt.Errorf("%w: url %w", ErrInvalidInput, err)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	var (
		issued   Token
		attempts int
	)

	err := retry.Do(ctx, i.backoff(), func(ctx context.Context) error {
		attempts++

		candidate, err := i.generator.Generate()
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}

		err = i.registry.Reserve(ctx, Token(candidate), url)
		switch {
		case err == nil:
			issued = Token(candidate)

			return nil
		case errors.Is(err, ErrConflict):
			return retry.RetryableError(err)
		default:
			return StoreFailure("reserve", err)
		}
	})

	switch {
	case err == nil:
		return issued, nil
	case errors.Is(err, ErrConflict):
		return "", fmt.Errorf("%w after %d attempts", ErrExhausted, attempts)
	default:
		return "", err
	}
}

// backoff allows maxAttempts-1 retries with no delay between them.
func (i *Issuer) backoff() retry.Backoff {
	immediate := retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	})

	return retry.WithMaxRetries(uint64(i.maxAttempts-1), immediate)
}
