package retrieval

import (
	"context"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

// VectorStore returns the k nearest chunks by embedding similarity,
// with vector scores set.
type VectorStore interface {
	Search(ctx context.Context, vector []float32, k int, tags map[string][]string) ([]domain.Candidate, error)
}

// TextIndex returns the lexical candidate window: chunks containing at
// least one query term, unscored.
type TextIndex interface {
	SearchText(ctx context.Context, terms []string, k int, tags map[string][]string) ([]domain.Candidate, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// CrossEncoder jointly scores (query, passage) pairs. One score per text,
// input order.
type CrossEncoder interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// AccessResolver returns the requesting user's access policy.
type AccessResolver interface {
	Resolve(ctx context.Context, userID string) (domain.AccessPolicy, error)
}
