package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/tinylink/internal/shortener"
)

// MemoryRegistry is an in-memory implementation of shortener.Registry.
type MemoryRegistry struct {
	mu    sync.RWMutex
	links map[shortener.Token]shortener.ShortLink
	now   func() time.Time
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		links: make(map[shortener.Token]shortener.ShortLink),
		now:   time.Now,
	}
}

// Reserve claims token under the write lock, so check and insert happen as one step.
func (m *MemoryRegistry) Reserve(_ context.Context, token shortener.Token, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.links[token]; taken {
		return shortener.ErrConflict
	}

	m.links[token] = shortener.ShortLink{
		Token:     token,
		URL:       url,
		CreatedAt: m.now().UTC(),
	}

	return nil
}

func (m *MemoryRegistry) Resolve(_ context.Context, token shortener.Token) (*shortener.ShortLink, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[token]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &link, nil
}

// Len returns the number of reserved tokens.
func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.links)
}

var _ shortener.Registry = (*MemoryRegistry)(nil)
