package retrieval

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain/search/query"
)

// keywordLeg runs the lexical retrieval leg: pull the window of chunks
// containing at least one query term, then score the window locally with
// BM25. A query with no indexable terms, or a term set matching nothing,
// yields an empty leg, not an error.
func (s *Service) keywordLeg(ctx context.Context, q *query.Query, overK int) ([]domain.Candidate, error) {
	terms := uniqueTerms(q.Text())
	if len(terms) == 0 {
		return nil, nil
	}

	window, err := s.texts.SearchText(ctx, terms, overK, q.Filters())
	if err != nil {
		return nil, err
	}

	scoreKeywords(terms, window)
	return window, nil
}

// Standard BM25 constants.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// tokenize lowercases text and splits it into terms on any
// non-letter/non-digit rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// uniqueTerms returns the distinct query terms in first-seen order.
func uniqueTerms(text string) []string {
	seen := make(map[string]struct{})
	var terms []string
	for _, t := range tokenize(text) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		terms = append(terms, t)
	}
	return terms
}

// scoreKeywords computes BM25 over the current candidate window and sets
// normalized keyword scores in [0,1]. Document statistics (IDF, average
// length) are local to the window: only these candidates are scored, so
// global corpus statistics are neither available nor needed.
// Zero vocabulary overlap scores 0, never errors.
func scoreKeywords(terms []string, window []domain.Candidate) {
	if len(terms) == 0 || len(window) == 0 {
		return
	}

	termFreqs := make([]map[string]int, len(window))
	docLens := make([]int, len(window))
	totalLen := 0
	for i := range window {
		tokens := tokenize(window[i].Text())
		tf := make(map[string]int, len(tokens))
		for _, t := range tokens {
			tf[t]++
		}
		termFreqs[i] = tf
		docLens[i] = len(tokens)
		totalLen += len(tokens)
	}

	if totalLen == 0 {
		return
	}
	avgdl := float64(totalLen) / float64(len(window))

	// Document frequency per query term, within the window.
	df := make(map[string]int, len(terms))
	for _, term := range terms {
		for i := range window {
			if termFreqs[i][term] > 0 {
				df[term]++
			}
		}
	}

	n := float64(len(window))
	scores := make([]float64, len(window))
	maxScore := 0.0
	for i := range window {
		var score float64
		for _, term := range terms {
			tf := float64(termFreqs[i][term])
			if tf == 0 {
				continue
			}
			idf := math.Log(1 + (n-float64(df[term])+0.5)/(float64(df[term])+0.5))
			norm := tf + bm25K1*(1-bm25B+bm25B*float64(docLens[i])/avgdl)
			score += idf * tf * (bm25K1 + 1) / norm
		}
		scores[i] = score
		if score > maxScore {
			maxScore = score
		}
	}

	if maxScore == 0 {
		return
	}
	for i := range window {
		window[i].SetKeywordScore(scores[i] / maxScore)
	}
}
