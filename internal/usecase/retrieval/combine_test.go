package retrieval

import (
	"testing"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

func vecCand(id, file, text string, score float64) domain.Candidate {
	c := domain.NewCandidate(id, file, text, nil)
	c.SetVectorScore(score)
	return c
}

func kwCand(id, file, text string, score float64) domain.Candidate {
	c := domain.NewCandidate(id, file, text, nil)
	c.SetKeywordScore(score)
	return c
}

func TestCombineCandidates_MergesByID(t *testing.T) {
	vector := []domain.Candidate{vecCand("c1", "policies.md", "refund policy text", 0.82)}
	keyword := []domain.Candidate{kwCand("c1", "policies.md", "refund policy text", 0.4)}

	merged := combineCandidates(vector, keyword, 0.5)

	if len(merged) != 1 {
		t.Fatalf("got %d candidates, want 1 merged", len(merged))
	}
	want := 0.5*0.82 + 0.5*0.4 // 0.61
	if got := merged[0].CombinedScore(); got != want {
		t.Errorf("combined score: got %v, want %v", got, want)
	}
}

func TestCombineCandidates_OneSidedKeepZero(t *testing.T) {
	vector := []domain.Candidate{vecCand("v1", "a.md", "alpha", 0.9)}
	keyword := []domain.Candidate{kwCand("k1", "b.md", "beta", 0.8)}

	merged := combineCandidates(vector, keyword, 0.6)

	if len(merged) != 2 {
		t.Fatalf("got %d candidates, want 2", len(merged))
	}

	scores := map[string]float64{}
	for _, c := range merged {
		scores[c.ID()] = c.CombinedScore()
	}
	if got, want := scores["v1"], 0.6*0.9; got != want {
		t.Errorf("vector-only: got %v, want %v", got, want)
	}
	if got, want := scores["k1"], 0.4*0.8; !almostEqual(got, want) {
		t.Errorf("keyword-only: got %v, want %v", got, want)
	}
}

func TestCombineCandidates_Ordering(t *testing.T) {
	vector := []domain.Candidate{
		vecCand("low", "a.md", "aa", 0.2),
		vecCand("high", "a.md", "bb", 0.9),
	}

	merged := combineCandidates(vector, nil, 1.0)

	if merged[0].ID() != "high" || merged[1].ID() != "low" {
		t.Errorf("order: got [%s %s], want [high low]", merged[0].ID(), merged[1].ID())
	}
}

func TestCombineCandidates_TieBreakShorterText(t *testing.T) {
	vector := []domain.Candidate{
		vecCand("long", "a.md", "a much longer chunk of text", 0.5),
		vecCand("short", "a.md", "brief", 0.5),
	}

	merged := combineCandidates(vector, nil, 1.0)

	if merged[0].ID() != "short" {
		t.Errorf("tie-break: got %s first, want short", merged[0].ID())
	}
}

func TestCombineCandidates_Deterministic(t *testing.T) {
	build := func() ([]domain.Candidate, []domain.Candidate) {
		return []domain.Candidate{
				vecCand("a", "f.md", "one", 0.5),
				vecCand("b", "f.md", "two", 0.5),
				vecCand("c", "f.md", "three", 0.3),
			}, []domain.Candidate{
				kwCand("b", "f.md", "two", 0.5),
				kwCand("d", "f.md", "four", 0.5),
			}
	}

	v1, k1 := build()
	v2, k2 := build()
	first := combineCandidates(v1, k1, 0.6)
	second := combineCandidates(v2, k2, 0.6)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID() != second[i].ID() {
			t.Errorf("position %d: %s vs %s", i, first[i].ID(), second[i].ID())
		}
	}
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
