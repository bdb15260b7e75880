package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

// rerankStage cross-encodes the head of the ranked list and blends the
// model's relevance into the final score:
//
//	final = weight*rerank + (1-weight)*combined
//
// The stage is advisory. Any failure (transport error, timeout, wrong
// result count) skips it: candidates keep their combined scores and the
// caller marks the request degraded.
func (s *Service) rerankStage(ctx context.Context, queryText string, cands []domain.Candidate, k int) (skipped bool) {
	head := 2 * k
	if head > len(cands) {
		head = len(cands)
	}
	if head == 0 {
		return false
	}

	texts := make([]string, head)
	for i := 0; i < head; i++ {
		texts[i] = cands[i].Text()
	}

	scores, err := s.encoder.Score(ctx, queryText, texts)
	if err != nil {
		s.logger.Warn("Cross-encoder unavailable, keeping combined scores",
			zap.Error(err),
			zap.Int("candidates", head),
		)
		return true
	}
	if len(scores) != head {
		s.logger.Warn("Cross-encoder returned wrong score count, keeping combined scores",
			zap.Int("want", head),
			zap.Int("got", len(scores)),
		)
		return true
	}

	w := s.cfg.RerankWeight
	for i := 0; i < head; i++ {
		cands[i].SetRerankScore(w*scores[i] + (1-w)*cands[i].CombinedScore())
	}

	sortByRank(cands)
	return false
}
