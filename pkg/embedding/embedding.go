// Package embedding provides text embedding backends for similarity analysis.
package embedding

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Embedder turns text into a fixed-size vector.
type Embedder interface {
	// Name identifies the backend and model.
	Name() string
	// Available reports whether the backend can serve requests.
	Available(ctx context.Context) error
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Memo caches embeddings by content hash for the lifetime of one session.
type Memo struct {
	inner Embedder

	mu     sync.RWMutex
	cache  map[uint64][]float64
	hits   int64
	misses int64
}

// NewMemo wraps an embedder with a content-hash cache.
func NewMemo(inner Embedder) *Memo {
	return &Memo{
		inner: inner,
		cache: make(map[uint64][]float64),
	}
}

func (m *Memo) Name() string {
	return m.inner.Name()
}

func (m *Memo) Available(ctx context.Context) error {
	return m.inner.Available(ctx)
}

// Embed returns a cached vector or delegates to the wrapped embedder.
func (m *Memo) Embed(ctx context.Context, text string) ([]float64, error) {
	key := xxhash.Sum64String(text)

	m.mu.RLock()
	vec, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		m.mu.Lock()
		m.hits++
		m.mu.Unlock()
		return vec, nil
	}

	vec, err := m.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.cache[key] = vec
	m.misses++
	m.mu.Unlock()
	return vec, nil
}

// Stats returns cache hit and miss counts.
func (m *Memo) Stats() (hits, misses int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hits, m.misses
}
