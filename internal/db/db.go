// Package db defines the storage facade for the retrieval engine:
// a key-value store for cached embeddings and access policies, and
// full-text/vector search over the chunk index.
package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
// Consumers depend on the narrow sub-interfaces, not on Store.
type Store interface {
	Pinger
	KVStore
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Searcher provides search operations over the chunk FT index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchText(ctx context.Context, q *TextQuery) (*SearchResult, error)
}

// KNNQuery describes a vector nearest-neighbor search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	Tags         map[string][]string // optional pre-filter: field -> allowed values
	ReturnFields []string
}

// TextQuery describes a lexical pre-match over the chunk index. It selects
// the candidate window only; relevance scoring happens in the caller.
type TextQuery struct {
	IndexName    string
	Terms        []string
	TopK         int
	Tags         map[string][]string
	ReturnFields []string
}

// SearchEntry is a single search hit with its stored fields.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// SearchResult holds search hits and the index-reported total.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}
