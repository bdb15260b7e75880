package domain

import "testing"

func TestCandidate_FinalScore(t *testing.T) {
	c := NewCandidate("c1", "a.md", "text", nil)
	c.SetVectorScore(0.8)
	c.SetKeywordScore(0.4)
	c.SetCombinedScore(0.64)

	if c.Reranked() {
		t.Error("fresh candidate must not be reranked")
	}
	if got := c.FinalScore(); got != 0.64 {
		t.Errorf("final score before rerank: got %v, want combined 0.64", got)
	}

	c.SetRerankScore(0.9)
	if !c.Reranked() {
		t.Error("expected reranked after SetRerankScore")
	}
	if got := c.FinalScore(); got != 0.9 {
		t.Errorf("final score after rerank: got %v, want 0.9", got)
	}
}
