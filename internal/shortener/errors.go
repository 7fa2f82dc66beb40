package shortener

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for requests the caller can correct.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict means the token is already reserved. Issuer retries it and never returns it.
	ErrConflict = errors.New("token already reserved")

	// ErrExhausted means every attempt collided.
	ErrExhausted = errors.New("failed to generate unique token")

	// ErrNotFound means no link exists for the token.
	ErrNotFound = errors.New("link not found")

	// ErrStoreFailure matches every *StoreError.
	ErrStoreFailure = errors.New("store failure")
)

// StoreError is an infrastructure fault raised by a Registry.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports ErrStoreFailure as a match so callers need not know the concrete type.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreFailure
}

// StoreFailure wraps err as a *StoreError for op. Errors that already are store
// failures are returned unchanged.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrStoreFailure) {
		return err
	}

	return &StoreError{Op: op, Err: err}
}
