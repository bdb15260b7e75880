package embcache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/db"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: 7}, nil
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchCalls atomic.Int32
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls.Add(1)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.vec
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
}

type mockStore struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	sets int
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string][]byte{}}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	data, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return data, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	return nil
}

func (m *mockStore) SetWithTTL(_ context.Context, key string, value []byte, _ time.Duration) error {
	return m.Set(context.Background(), key, value)
}

func newCache(inner domain.Embedder, s store) *CachedEmbedder {
	return New(inner, s, Config{Model: "test-model", KeyPrefix: "test:", MemoryEntries: 16})
}

// --- Tests ---

func TestEmbed_RoundTrip(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	cache := newCache(inner, newMockStore())

	first, err := cache.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("first embed: %v", err)
	}
	second, err := cache.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("second embed: %v", err)
	}

	if inner.calls.Load() != 1 {
		t.Errorf("inner calls: got %d, want 1", inner.calls.Load())
	}
	if len(second.Embedding) != len(first.Embedding) {
		t.Fatalf("vector length changed on cache hit")
	}
	for i := range first.Embedding {
		if first.Embedding[i] != second.Embedding[i] {
			t.Fatalf("cached vector differs at %d: %v vs %v", i, first.Embedding[i], second.Embedding[i])
		}
	}
	if second.TotalTokens != 0 {
		t.Errorf("cache hit must report zero tokens, got %d", second.TotalTokens)
	}
}

func TestEmbed_DifferentModelsDifferentKeys(t *testing.T) {
	s := newMockStore()
	inner := &mockEmbedder{vec: []float32{1}}

	a := New(inner, s, Config{Model: "model-a", KeyPrefix: "test:", MemoryEntries: 16})
	b := New(inner, s, Config{Model: "model-b", KeyPrefix: "test:", MemoryEntries: 16})

	if _, err := a.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("embed a: %v", err)
	}
	if _, err := b.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("embed b: %v", err)
	}

	if inner.calls.Load() != 2 {
		t.Errorf("inner calls: got %d, want 2 (one per model)", inner.calls.Load())
	}
}

func TestEmbed_StoreTierSurvivesMemoryEviction(t *testing.T) {
	s := newMockStore()
	inner := &mockEmbedder{vec: []float32{0.5}}
	cache := newCache(inner, s)

	if _, err := cache.Embed(context.Background(), "persist me"); err != nil {
		t.Fatalf("embed: %v", err)
	}

	// Fresh cache, same store: memory tier is empty, store tier hits.
	cache2 := newCache(inner, s)
	if _, err := cache2.Embed(context.Background(), "persist me"); err != nil {
		t.Fatalf("embed via store tier: %v", err)
	}

	if inner.calls.Load() != 1 {
		t.Errorf("inner calls: got %d, want 1 (store tier hit)", inner.calls.Load())
	}
}

func TestEmbed_CorruptStoreEntryIsAMiss(t *testing.T) {
	s := newMockStore()
	inner := &mockEmbedder{vec: []float32{0.5}}
	cache := newCache(inner, s)

	key := cache.cacheKey("text")
	s.data[key] = []byte{1, 2, 3} // not a multiple of 4

	res, err := cache.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("corrupt entry must be treated as a miss: %v", err)
	}
	if inner.calls.Load() != 1 {
		t.Errorf("inner calls: got %d, want 1", inner.calls.Load())
	}
	if len(res.Embedding) != 1 {
		t.Errorf("got %d dims, want 1", len(res.Embedding))
	}
}

func TestEmbed_InnerErrorNotCached(t *testing.T) {
	inner := &mockEmbedder{err: errors.New("provider down")}
	cache := newCache(inner, newMockStore())

	if _, err := cache.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error")
	}

	inner.err = nil
	inner.vec = []float32{1}
	if _, err := cache.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("retry after provider recovery: %v", err)
	}
	if inner.calls.Load() != 2 {
		t.Errorf("inner calls: got %d, want 2", inner.calls.Load())
	}
}

func TestEmbed_SingleflightCollapsesConcurrentMisses(t *testing.T) {
	inner := &mockEmbedder{vec: []float32{1}, delay: 20 * time.Millisecond}
	cache := newCache(inner, newMockStore())

	const workers = 16
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if _, err := cache.Embed(context.Background(), "same text"); err != nil {
				t.Errorf("embed: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := inner.calls.Load(); got != 1 {
		t.Errorf("inner calls: got %d, want 1 (singleflight)", got)
	}
}

func TestBatchEmbed_MixedHitsAndMisses(t *testing.T) {
	inner := &mockBatchEmbedder{mockEmbedder: mockEmbedder{vec: []float32{0.5}}}
	cache := newCache(inner, newMockStore())

	if _, err := cache.Embed(context.Background(), "cached"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := cache.BatchEmbed(context.Background(), []string{"cached", "fresh-1", "fresh-2"})
	if err != nil {
		t.Fatalf("batch embed: %v", err)
	}

	if len(res.Embeddings) != 3 {
		t.Fatalf("got %d embeddings, want 3", len(res.Embeddings))
	}
	for i, vec := range res.Embeddings {
		if len(vec) == 0 {
			t.Errorf("embedding %d missing", i)
		}
	}
	if got := inner.batchCalls.Load(); got != 1 {
		t.Errorf("batch calls: got %d, want 1 for the misses only", got)
	}
}

func TestBatchEmbed_AllHitsSkipInner(t *testing.T) {
	inner := &mockBatchEmbedder{mockEmbedder: mockEmbedder{vec: []float32{0.5}}}
	cache := newCache(inner, newMockStore())

	texts := []string{"a", "b"}
	if _, err := cache.BatchEmbed(context.Background(), texts); err != nil {
		t.Fatalf("seed batch: %v", err)
	}
	if _, err := cache.BatchEmbed(context.Background(), texts); err != nil {
		t.Fatalf("cached batch: %v", err)
	}

	if got := inner.batchCalls.Load(); got != 1 {
		t.Errorf("batch calls: got %d, want 1", got)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	inner := &mockBatchEmbedder{}
	cache := newCache(inner, newMockStore())

	res, err := cache.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if len(res.Embeddings) != 0 {
		t.Errorf("got %d embeddings, want 0", len(res.Embeddings))
	}
}

func TestVectorBytesRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25, 1e-8}
	out, err := bytesToVector(vectorToCacheBytes(in))
	if err != nil {
		t.Fatalf("bytesToVector: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("element %d: got %v, want %v", i, out[i], in[i])
		}
	}
}
