package retrieval

import (
	"sort"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

// aggregateFiles groups authorized candidates by source file. Within a file
// chunks keep ranked order and are capped at maxChunks; the file score is
// its best chunk's score. Files are ordered by score desc (name asc on
// ties) and cut to k. The second return reports whether files were cut.
func aggregateFiles(cands []domain.Candidate, k, maxChunks int) ([]domain.FileResult, bool) {
	if len(cands) == 0 {
		return nil, false
	}

	groups := make(map[string][]domain.Candidate)
	display := make(map[string]string)
	var order []string

	for _, c := range cands {
		key := domain.NormalizeFileName(c.SourceFile())
		if _, ok := groups[key]; !ok {
			order = append(order, key)
			display[key] = domain.DisplayFileName(c.SourceFile())
		}
		groups[key] = append(groups[key], c)
	}

	files := make([]domain.FileResult, 0, len(order))
	for _, key := range order {
		chunks := groups[key]
		if len(chunks) > maxChunks {
			chunks = chunks[:maxChunks]
		}
		files = append(files, domain.NewFileResult(
			display[key],
			chunks,
			chunks[0].FinalScore(),
			rankWeightedAverage(chunks),
		))
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].BestScore() != files[j].BestScore() {
			return files[i].BestScore() > files[j].BestScore()
		}
		return files[i].FileName() < files[j].FileName()
	})

	if len(files) > k {
		return files[:k], true
	}
	return files, false
}

// rankWeightedAverage summarizes a file's retained chunks with weights
// 1/(rank+1), so the top chunk dominates but depth still counts.
func rankWeightedAverage(chunks []domain.Candidate) float64 {
	var sum, weights float64
	for i := range chunks {
		w := 1 / float64(i+1)
		sum += w * chunks[i].FinalScore()
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}
