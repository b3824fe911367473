package embedding

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type mockEmbedder struct {
	embedFunc func(ctx context.Context, text string) ([]float64, error)
	calls     int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	m.calls++
	if m.embedFunc != nil {
		return m.embedFunc(ctx, text)
	}
	return []float64{1}, nil
}

type memoryStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte)}
}

func (s *memoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	b, ok := s.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return b, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.data[key] = value
	return nil
}

var (
	_ Embedder = (*mockEmbedder)(nil)
	_ Store    = (*memoryStore)(nil)
)

func TestCachedEmbedder_HitAfterMiss(t *testing.T) {
	t.Parallel()

	next := &mockEmbedder{embedFunc: func(ctx context.Context, text string) ([]float64, error) {
		return []float64{0.25, 0.5}, nil
	}}
	c := NewCachedEmbedder(next, newMemoryStore(), "gemini-embedding-001", time.Hour, nil)

	for i := 0; i < 3; i++ {
		values, err := c.Embed(context.Background(), "profile")
		if err != nil {
			t.Fatalf("Embed: %v", err)
		}
		if len(values) != 2 || values[1] != 0.5 {
			t.Fatalf("values = %v", values)
		}
	}
	if next.calls != 1 {
		t.Errorf("underlying embedder called %d times, want 1", next.calls)
	}
}

func TestCachedEmbedder_StoreErrorsFallThrough(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.getErr = errors.New("redis down")
	store.setErr = errors.New("redis down")
	next := &mockEmbedder{}
	c := NewCachedEmbedder(next, store, "m", time.Hour, nil)

	if _, err := c.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if _, err := c.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if next.calls != 2 {
		t.Errorf("underlying embedder called %d times, want 2", next.calls)
	}
}

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	next := &mockEmbedder{embedFunc: func(ctx context.Context, text string) ([]float64, error) {
		return nil, &EmbeddingError{Kind: ErrRateLimitExceeded, Attempts: 3, Err: errors.New("429")}
	}}
	c := NewCachedEmbedder(next, store, "m", time.Hour, nil)

	if _, err := c.Embed(context.Background(), "x"); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("error = %v, want ErrRateLimitExceeded", err)
	}
	if len(store.data) != 0 {
		t.Errorf("failure was cached: %v", store.data)
	}
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	a := CacheKey("m1", "text")
	if a != CacheKey("m1", "text") {
		t.Error("CacheKey not deterministic")
	}
	if a == CacheKey("m2", "text") {
		t.Error("CacheKey should differ by model")
	}
	if a == CacheKey("m1", "other") {
		t.Error("CacheKey should differ by text")
	}
}
