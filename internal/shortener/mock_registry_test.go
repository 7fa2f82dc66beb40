package shortener_test

import (
	"context"
	"errors"
	"sync"

	"github.com/serroba/tinylink/internal/shortener"
)

var errMock = errors.New("mock error")

const testURL = "https://example.com/a"

// mockRegistry is a test double that answers every Reserve with the next
// configured error (or the last one once the list runs out).
type mockRegistry struct {
	mu         sync.Mutex
	reserveErr []error
	calls      []shortener.Token
}

func (m *mockRegistry) Reserve(_ context.Context, token shortener.Token, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, token)

	if len(m.reserveErr) == 0 {
		return nil
	}

	idx := min(len(m.calls), len(m.reserveErr)) - 1

	return m.reserveErr[idx]
}

func (m *mockRegistry) Resolve(_ context.Context, _ shortener.Token) (*shortener.ShortLink, error) {
	return nil, shortener.ErrNotFound
}

func (m *mockRegistry) reserveCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.calls)
}

// sequence returns a generator yielding tokens in order; it is safe for
// concurrent use so racing callers draw from the same list.
func sequence(tokens ...string) func() (string, error) {
	var (
		mu   sync.Mutex
		next int
	)

	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()

		if next >= len(tokens) {
			return "", errors.New("sequence exhausted")
		}

		tok := tokens[next]
		next++

		return tok, nil
	}
}
