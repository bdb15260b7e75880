package domain

import "errors"

var (
	// ErrStoreUnavailable signals that the chunk store cannot be reached.
	ErrStoreUnavailable = errors.New("chunk store unavailable")
	// ErrEmbeddingFailure signals an embedding provider failure.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrRerankUnavailable signals a cross-encoder failure; the rerank stage is skipped.
	ErrRerankUnavailable = errors.New("reranker unavailable")
	// ErrNoAccessibleResults signals that matches existed but none were authorized
	// for the requesting user. Distinct from an empty result set.
	ErrNoAccessibleResults = errors.New("no accessible results")
	// ErrRetrievalFailed signals that every retrieval leg failed.
	ErrRetrievalFailed = errors.New("retrieval failed")
	// ErrInvalidQuery signals an unusable request (empty query, bad parameters).
	ErrInvalidQuery = errors.New("invalid query")
)
