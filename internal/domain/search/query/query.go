package query

import (
	"fmt"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain/search/mode"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultK       = 10
	MaxK           = 100
)

// Query is a validated, immutable search query. Inline filter tokens have
// been removed from the searchable text and collected into the filter map.
type Query struct {
	text     string
	filters  map[string][]string
	k        int
	minScore float64
	mode     mode.Mode
}

// New parses the raw query text and normalizes search parameters.
// Defaults: mode=hybrid, k=10. Malformed inline filter tokens are left in
// the searchable text rather than failing the query.
func New(raw string, m mode.Mode, k int, minScore float64) (Query, error) {
	if raw == "" {
		return Query{}, fmt.Errorf("%w: query text is required", domain.ErrInvalidQuery)
	}
	if len(raw) > MaxQueryLength {
		return Query{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if m == "" {
		m = mode.Hybrid
	}
	if !m.IsValid() {
		return Query{}, fmt.Errorf("%w: unknown search mode %q", domain.ErrInvalidQuery, m)
	}
	if k <= 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	if minScore < 0 || minScore > 1 {
		return Query{}, fmt.Errorf("%w: min_score must be between 0 and 1", domain.ErrInvalidQuery)
	}

	text, filters := extractFilters(raw)

	return Query{
		text:     text,
		filters:  filters,
		k:        k,
		minScore: minScore,
		mode:     m,
	}, nil
}

// Text returns the searchable text with filter tokens removed.
func (q *Query) Text() string { return q.text }

// Filters returns inline filter values grouped by key.
func (q *Query) Filters() map[string][]string { return q.filters }

// K returns the requested result count.
func (q *Query) K() int { return q.k }

// MinScore returns the minimum final score threshold.
func (q *Query) MinScore() float64 { return q.minScore }

// Mode returns the search strategy.
func (q *Query) Mode() mode.Mode { return q.mode }
