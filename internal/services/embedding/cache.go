package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/metrics"
)

// ErrCacheMiss is returned by a Store when the key is absent.
var ErrCacheMiss = errors.New("embedding cache miss")

// Store is the key/value backend of CachedEmbedder.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisStore adapts a go-redis client to Store.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Store backed by Redis.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get returns ErrCacheMiss when the key does not exist.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

// Set stores value with the given TTL.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// CachedEmbedder memoizes embeddings by model and text. Cache failures are
// logged and fall through to the wrapped Embedder.
type CachedEmbedder struct {
	next   Embedder
	store  Store
	model  string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedEmbedder wraps next with a cache.
func NewCachedEmbedder(next Embedder, store Store, model string, ttl time.Duration, logger *zap.Logger) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{next: next, store: store, model: model, ttl: ttl, logger: logger}
}

// Embed returns a cached vector when available.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	key := CacheKey(c.model, text)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		var values []float64
		if jsonErr := json.Unmarshal(raw, &values); jsonErr == nil && len(values) > 0 {
			metrics.EmbeddingCache.WithLabelValues("hit").Inc()
			return values, nil
		}
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
		c.logger.Warn("embedding_cache_corrupt", zap.String("key", key))
	case errors.Is(err, ErrCacheMiss):
		metrics.EmbeddingCache.WithLabelValues("miss").Inc()
	default:
		metrics.EmbeddingCache.WithLabelValues("error").Inc()
		c.logger.Warn("embedding_cache_unavailable", zap.Error(err))
	}

	values, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(values); err == nil {
		if err := c.store.Set(ctx, key, encoded, c.ttl); err != nil {
			c.logger.Warn("embedding_cache_write_failed", zap.Error(err))
		}
	}
	return values, nil
}

// CacheKey is "embedding:<model>:<sha256(text)>".
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + model + ":" + hex.EncodeToString(sum[:])
}

var (
	_ Embedder = (*Client)(nil)
	_ Embedder = (*CachedEmbedder)(nil)
	_ Store    = (*RedisStore)(nil)
)
