package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"ai_server/core/port/out"
	"ai_server/pkg/cache"
	"ai_server/pkg/logger"
	"ai_server/pkg/metrics"
)

// =============================================================================
// L1: in-process cache
// =============================================================================

// MemoryStore caches embeddings in memory with a TTL and a size cap.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*cachedEmbedding
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

type cachedEmbedding struct {
	embedding []float32
	createdAt time.Time
}

// MemoryConfig configures the in-process cache.
type MemoryConfig struct {
	MaxSize int
	TTL     time.Duration
}

// DefaultMemoryConfig 임베딩은 변하지 않으므로 하루 캐시
func DefaultMemoryConfig() MemoryConfig {
	return MemoryConfig{MaxSize: 10000, TTL: 24 * time.Hour}
}

// NewMemoryStore creates an L1 cache.
func NewMemoryStore(cfg MemoryConfig) *MemoryStore {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMemoryConfig().MaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultMemoryConfig().TTL
	}
	return &MemoryStore{
		entries: make(map[string]*cachedEmbedding),
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		now:     time.Now,
	}
}

// Get returns a cached embedding.
func (c *MemoryStore) Get(_ context.Context, text string) ([]float32, bool) {
	key := hashText(text)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.now().Sub(entry.createdAt) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return entry.embedding, true
}

// Set stores an embedding, evicting the oldest entry when full.
func (c *MemoryStore) Set(_ context.Context, text string, embedding []float32) {
	key := hashText(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictOldest()
	}
	c.entries[key] = &cachedEmbedding{embedding: embedding, createdAt: c.now()}
}

// Len returns the number of entries.
func (c *MemoryStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit/miss counters.
func (c *MemoryStore) Stats() out.CacheStats {
	return newStats(c.hits.Load(), c.misses.Load(), c.Len())
}

// Run removes expired entries every interval until ctx is done.
func (c *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *MemoryStore) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) > c.ttl {
			delete(c.entries, key)
		}
	}
}

func (c *MemoryStore) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.createdAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.createdAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// =============================================================================
// L2: Redis
// =============================================================================

const redisKeyPrefix = "embedding:"

// RedisStore shares embeddings across instances. Redis errors are logged
// and treated as misses.
type RedisStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
	model string

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisStore creates an L2 cache. model namespaces the keys so vectors
// from different models never mix.
func NewRedisStore(c *cache.RedisCache, model string, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: c, ttl: ttl, model: model}
}

func (s *RedisStore) key(text string) string {
	return redisKeyPrefix + s.model + ":" + hashText(text)
}

// Get returns a cached embedding.
func (s *RedisStore) Get(ctx context.Context, text string) ([]float32, bool) {
	var emb []float32
	found, err := s.cache.GetJSON(ctx, s.key(text), &emb)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("embedding cache read failed")
	}
	if !found || err != nil {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return emb, true
}

// Set stores an embedding.
func (s *RedisStore) Set(ctx context.Context, text string, embedding []float32) {
	if err := s.cache.SetJSON(ctx, s.key(text), embedding, s.ttl); err != nil {
		logger.WithContext(ctx).WithError(err).Warn("embedding cache write failed")
	}
}

// Stats returns hit/miss counters.
func (s *RedisStore) Stats() out.CacheStats {
	return newStats(s.hits.Load(), s.misses.Load(), 0)
}

// =============================================================================
// Tiered: L1 → L2
// =============================================================================

// TieredStore checks the memory cache first and promotes L2 hits.
type TieredStore struct {
	l1      *MemoryStore
	l2      out.EmbeddingStore // optional
	metrics *metrics.Metrics

	hits   atomic.Int64
	misses atomic.Int64
}

// NewTieredStore combines l1 and an optional l2.
func NewTieredStore(l1 *MemoryStore, l2 out.EmbeddingStore, m *metrics.Metrics) *TieredStore {
	return &TieredStore{l1: l1, l2: l2, metrics: m}
}

// Get returns a cached embedding from either tier.
func (t *TieredStore) Get(ctx context.Context, text string) ([]float32, bool) {
	if emb, ok := t.l1.Get(ctx, text); ok {
		t.metrics.ObserveCache("memory", true)
		t.hits.Add(1)
		return emb, true
	}
	t.metrics.ObserveCache("memory", false)

	if t.l2 != nil {
		if emb, ok := t.l2.Get(ctx, text); ok {
			t.metrics.ObserveCache("redis", true)
			t.l1.Set(ctx, text, emb)
			t.hits.Add(1)
			return emb, true
		}
		t.metrics.ObserveCache("redis", false)
	}

	t.misses.Add(1)
	return nil, false
}

// Set writes through to both tiers.
func (t *TieredStore) Set(ctx context.Context, text string, embedding []float32) {
	t.l1.Set(ctx, text, embedding)
	if t.l2 != nil {
		t.l2.Set(ctx, text, embedding)
	}
}

// Stats reports combined hit/miss counters and L1 size.
func (t *TieredStore) Stats() out.CacheStats {
	return newStats(t.hits.Load(), t.misses.Load(), t.l1.Len())
}

func hashText(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:16])
}

func newStats(hits, misses int64, entries int) out.CacheStats {
	s := out.CacheStats{Hits: hits, Misses: misses, Entries: entries}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}
