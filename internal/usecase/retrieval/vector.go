package retrieval

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain/search/query"
)

// vectorLeg runs the semantic retrieval leg: embed the query text and fetch
// the over-fetched nearest chunks. If the first pass comes back thin
// (fewer hits than requested, or nothing above the score floor) it retries
// once with double the window; the floor itself is applied later in the
// pipeline.
func (s *Service) vectorLeg(ctx context.Context, q *query.Query, overK int) ([]domain.Candidate, error) {
	emb, err := s.embedder.Embed(ctx, q.Text())
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	cands, err := s.vectors.Search(ctx, emb.Embedding, overK, q.Filters())
	if err != nil {
		return nil, err
	}

	if needsWiderPass(cands, q) {
		wider, err := s.vectors.Search(ctx, emb.Embedding, overK*2, q.Filters())
		if err != nil {
			s.logger.Warn("Vector fallback pass failed, keeping first pass",
				zap.Error(err),
				zap.Int("first_pass_hits", len(cands)),
			)
			return cands, nil
		}
		if len(wider) > len(cands) {
			cands = wider
		}
	}

	return cands, nil
}

// needsWiderPass reports whether the first vector pass is too thin to be
// worth ranking: not enough hits for the requested k, or every hit below
// the caller's score floor.
func needsWiderPass(cands []domain.Candidate, q *query.Query) bool {
	if len(cands) < q.K() {
		return true
	}
	if q.MinScore() == 0 {
		return false
	}
	for i := range cands {
		if cands[i].VectorScore() >= q.MinScore() {
			return false
		}
	}
	return true
}
