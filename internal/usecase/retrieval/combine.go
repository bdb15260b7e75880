package retrieval

import (
	"sort"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

// combineCandidates fuses the two retrieval legs into a single ranked list.
// Candidates present in both legs are merged by chunk ID; one-sided
// candidates keep the missing score at zero. The fused score is
// alpha*vector + (1-alpha)*keyword.
//
// Ordering is a total order so identical inputs always produce identical
// output: combined desc, then vector desc, then shorter text first, then
// insertion order (vector leg before keyword leg).
func combineCandidates(vector, keyword []domain.Candidate, alpha float64) []domain.Candidate {
	merged := make([]domain.Candidate, 0, len(vector)+len(keyword))
	index := make(map[string]int, len(vector))

	for _, c := range vector {
		index[c.ID()] = len(merged)
		merged = append(merged, c)
	}
	for _, c := range keyword {
		if i, ok := index[c.ID()]; ok {
			merged[i].SetKeywordScore(c.KeywordScore())
			continue
		}
		index[c.ID()] = len(merged)
		merged = append(merged, c)
	}

	for i := range merged {
		merged[i].SetCombinedScore(alpha*merged[i].VectorScore() + (1-alpha)*merged[i].KeywordScore())
	}

	sortByRank(merged)
	return merged
}

// sortByRank orders candidates by final score desc, vector score desc,
// shorter text first. The sort is stable, so full ties keep insertion order.
func sortByRank(cands []domain.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := &cands[i], &cands[j]
		if a.FinalScore() != b.FinalScore() {
			return a.FinalScore() > b.FinalScore()
		}
		if a.VectorScore() != b.VectorScore() {
			return a.VectorScore() > b.VectorScore()
		}
		return len(a.Text()) < len(b.Text())
	})
}
