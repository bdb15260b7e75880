// Package vector adapts the chunk FT index to the retrieval pipeline's
// vector-store and text-window contracts.
package vector

import (
	"context"
	"fmt"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/db"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

// Stored chunk hash fields.
const (
	fieldContent    = "content"
	fieldSourceFile = "source_file"
)

var returnFields = []string{fieldContent, fieldSourceFile}

// Store reads chunk candidates from the search index.
type Store struct {
	db    db.Searcher
	index string
}

// New creates a chunk index reader for the given FT index.
func New(s db.Searcher, index string) *Store {
	return &Store{db: s, index: index}
}

// Search returns the k nearest chunks by embedding similarity with vector
// scores set. Store failures surface as ErrStoreUnavailable.
func (s *Store) Search(
	ctx context.Context, vector []float32, k int, tags map[string][]string,
) ([]domain.Candidate, error) {
	res, err := s.db.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    s.index,
		Vector:       vector,
		K:            k,
		Tags:         tags,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: knn search: %w", domain.ErrStoreUnavailable, err)
	}

	candidates := make([]domain.Candidate, 0, len(res.Entries))
	for _, entry := range res.Entries {
		c := toCandidate(entry)
		c.SetVectorScore(entry.Score)
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// SearchText returns up to k chunks containing at least one of the query
// terms. Scores are not set: lexical scoring over the returned window is
// the caller's job.
func (s *Store) SearchText(
	ctx context.Context, terms []string, k int, tags map[string][]string,
) ([]domain.Candidate, error) {
	if len(terms) == 0 {
		return nil, nil
	}

	res, err := s.db.SearchText(ctx, &db.TextQuery{
		IndexName:    s.index,
		Terms:        terms,
		TopK:         k,
		Tags:         tags,
		ReturnFields: returnFields,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: text search: %w", domain.ErrStoreUnavailable, err)
	}

	candidates := make([]domain.Candidate, 0, len(res.Entries))
	for _, entry := range res.Entries {
		candidates = append(candidates, toCandidate(entry))
	}
	return candidates, nil
}

func toCandidate(entry db.SearchEntry) domain.Candidate {
	content := entry.Fields[fieldContent]
	sourceFile := entry.Fields[fieldSourceFile]

	var metadata map[string]string
	for name, value := range entry.Fields {
		if name == fieldContent || name == fieldSourceFile {
			continue
		}
		if metadata == nil {
			metadata = make(map[string]string)
		}
		metadata[name] = value
	}

	return domain.NewCandidate(entry.Key, sourceFile, content, metadata)
}
