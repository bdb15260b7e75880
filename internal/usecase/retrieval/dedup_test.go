package retrieval

import (
	"testing"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

func TestDeduplicate_ExactlyOnePerHash(t *testing.T) {
	cands := []domain.Candidate{
		vecCand("c1", "a.md", "Refund Policy", 0.9),
		vecCand("c2", "b.md", "refund   policy", 0.8), // same after normalization
		vecCand("c3", "a.md", "something else", 0.7),
		vecCand("c4", "c.md", "REFUND\tPOLICY", 0.6),
	}

	out := deduplicate(cands)

	if len(out) != 2 {
		t.Fatalf("got %d candidates, want 2", len(out))
	}
	if out[0].ID() != "c1" {
		t.Errorf("first occurrence must win, got %s", out[0].ID())
	}
	if out[1].ID() != "c3" {
		t.Errorf("got %s, want c3", out[1].ID())
	}
}

func TestDeduplicate_Empty(t *testing.T) {
	if out := deduplicate(nil); len(out) != 0 {
		t.Errorf("got %d, want 0", len(out))
	}
}

func TestNormalizeContent(t *testing.T) {
	got := normalizeContent("  The\tQuick\n\nBrown  fox ")
	want := "the quick brown fox"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
