package retrieval

import (
	"crypto/sha256"
	"strings"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

// deduplicate drops candidates whose normalized content hash was already
// seen. Input is in ranked order, so the first occurrence (the best-scored
// one) wins.
func deduplicate(cands []domain.Candidate) []domain.Candidate {
	seen := make(map[[sha256.Size]byte]struct{}, len(cands))
	out := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		h := contentHash(c.Text())
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, c)
	}
	return out
}

// contentHash fingerprints chunk text for exact-duplicate detection.
// normalizeContent is the seam for any future fuzzier matching.
func contentHash(text string) [sha256.Size]byte {
	return sha256.Sum256([]byte(normalizeContent(text)))
}

// normalizeContent lowercases and collapses all whitespace runs to a single
// space, so formatting differences do not defeat dedup.
func normalizeContent(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
