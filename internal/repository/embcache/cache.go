// Package embcache caches embeddings in two tiers: an in-process LRU and a
// shared key-value store. Concurrent requests for the same key share one
// in-flight model call.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/db"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

const writeBackTimeout = 5 * time.Second

// store is the consumer interface for the persistent cache tier (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config holds cache settings.
type Config struct {
	Model         string        // part of the cache key: same text, different model, different entry
	KeyPrefix     string        // store key namespace, e.g. "graphtalk:"
	MemoryEntries int           // in-process LRU capacity
	TTL           time.Duration // store entry expiration, 0 = none
	CacheTotal    *prometheus.CounterVec
	Logger        *zap.Logger
}

// CachedEmbedder is a caching decorator around a domain.Embedder.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	memory     *lru.Cache[string, []float32]
	flight     singleflight.Group
	model      string
	keyPrefix  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
func New(inner domain.Embedder, s store, cfg Config) *CachedEmbedder {
	entries := cfg.MemoryEntries
	if entries <= 0 {
		entries = 4096
	}
	memory, err := lru.New[string, []float32](entries)
	if err != nil {
		// Only reachable with a non-positive size, which is guarded above.
		panic(fmt.Sprintf("embcache: create lru: %v", err))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		memory:     memory,
		model:      cfg.Model,
		keyPrefix:  cfg.KeyPrefix + "emb_cache:",
		ttl:        cfg.TTL,
		cacheTotal: cfg.CacheTotal,
		logger:     logger,
	}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.lookup(ctx, key); ok {
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// Re-check: another flight may have filled the cache between
		// our lookup and acquiring the flight slot.
		if vec, ok := c.lookup(ctx, key); ok {
			return domain.EmbeddingResult{Embedding: vec}, nil
		}

		result, err := c.inner.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text: %w", err)
		}

		c.writeBack(ctx, key, result.Embedding)
		return result, nil
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return v.(domain.EmbeddingResult), nil
}

// BatchEmbed resolves cached texts immediately, issues a single inner call
// for the misses, writes the results back, and returns the merged batch in
// the original order.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	embeddings := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int

	for i, text := range texts {
		keys[i] = c.cacheKey(text)
		if vec, ok := c.lookup(ctx, keys[i]); ok {
			embeddings[i] = vec
		} else {
			missIdx = append(missIdx, i)
		}
	}

	if len(missIdx) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
	}

	missTexts := make([]string, len(missIdx))
	missKeys := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
		missKeys[j] = keys[i]
	}

	// Identical concurrent miss-batches share one in-flight model call.
	v, err, _ := c.flight.Do(batchFlightKey(missKeys), func() (any, error) {
		result, err := c.batchInner(ctx, missTexts)
		if err != nil {
			return nil, fmt.Errorf("batch embed: %w", err)
		}
		if len(result.Embeddings) != len(missTexts) {
			return nil, fmt.Errorf("batch embed: got %d embeddings for %d texts",
				len(result.Embeddings), len(missTexts))
		}
		for j, vec := range result.Embeddings {
			c.writeBack(ctx, missKeys[j], vec)
		}
		return result, nil
	})
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	result := v.(domain.BatchEmbeddingResult)
	for j, i := range missIdx {
		embeddings[i] = result.Embeddings[j]
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: result.PromptTokens,
		TotalTokens:  result.TotalTokens,
	}, nil
}

func (c *CachedEmbedder) batchInner(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := c.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, c.inner, texts)
}

// lookup checks the memory tier, then the store tier, promoting store hits
// into memory. Corrupt store entries count as misses.
func (c *CachedEmbedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	if vec, ok := c.memory.Get(key); ok {
		c.incCache("memory", "hit")
		return vec, true
	}

	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		c.incCache("store", "miss")
		return nil, false
	}
	if len(data) == 0 {
		c.incCache("store", "miss")
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		c.incCache("store", "miss")
		return nil, false
	}

	c.memory.Add(key, vec)
	c.incCache("store", "hit")
	return vec, true
}

// writeBack persists a computed embedding to both tiers. The store write
// runs on a detached context: caller cancellation does not roll back or
// skip a completed computation.
func (c *CachedEmbedder) writeBack(ctx context.Context, key string, vec []float32) {
	c.memory.Add(key, vec)

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeBackTimeout)
	defer cancel()

	data := vectorToCacheBytes(vec)
	var err error
	if c.ttl > 0 {
		err = c.store.SetWithTTL(wctx, key, data, c.ttl)
	} else {
		err = c.store.Set(wctx, key, data)
	}
	if err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedEmbedder) incCache(tier, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(tier, result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.New()
	h.Write([]byte(c.model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return c.keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func batchFlightKey(keys []string) string {
	h := sha256.Sum256([]byte(strings.Join(keys, "|")))
	return "batch:" + hex.EncodeToString(h[:])
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
