package retrieval

import (
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
)

// filterByAccess keeps only candidates whose source file the policy allows.
// A candidate whose file name is missing or unresolvable is dropped, never
// passed through. This stage must run on every request and must never be
// skipped, truncated, or subject to a timeout.
func filterByAccess(cands []domain.Candidate, policy domain.AccessPolicy) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(cands))
	for _, c := range cands {
		if policy.Allows(c.SourceFile()) {
			out = append(out, c)
		}
	}
	return out
}
