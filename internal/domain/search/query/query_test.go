package query

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain"
	"github.com/Wafflelover404/GraphTalk-SC-sub001/internal/domain/search/mode"
)

func mustNew(t *testing.T, raw string) Query {
	t.Helper()
	q, err := New(raw, mode.Hybrid, 10, 0)
	if err != nil {
		t.Fatalf("New(%q): %v", raw, err)
	}
	return q
}

func TestNew_Defaults(t *testing.T) {
	q, err := New("vacation policy", "", 0, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if q.Mode() != mode.Hybrid {
		t.Errorf("default mode: got %s, want hybrid", q.Mode())
	}
	if q.K() != DefaultK {
		t.Errorf("default k: got %d, want %d", q.K(), DefaultK)
	}
	if q.Text() != "vacation policy" {
		t.Errorf("text: got %q", q.Text())
	}
	if q.Filters() != nil {
		t.Errorf("filters: got %v, want nil", q.Filters())
	}
}

func TestNew_ClampsK(t *testing.T) {
	q, err := New("x", mode.Vector, 10000, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if q.K() != MaxK {
		t.Errorf("k: got %d, want clamped to %d", q.K(), MaxK)
	}
}

func TestNew_Validation(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		m        mode.Mode
		minScore float64
	}{
		{"empty query", "", mode.Hybrid, 0},
		{"unknown mode", "x", "semantic", 0},
		{"min score too high", "x", mode.Hybrid, 1.5},
		{"min score negative", "x", mode.Hybrid, -0.1},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.raw, c.m, 10, c.minScore)
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Errorf("got %v, want ErrInvalidQuery", err)
			}
		})
	}

	long := make([]byte, MaxQueryLength+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := New(string(long), mode.Hybrid, 10, 0); !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("oversized query: got %v, want ErrInvalidQuery", err)
	}
}

func TestExtractFilters(t *testing.T) {
	cases := []struct {
		name        string
		raw         string
		wantText    string
		wantFilters map[string][]string
	}{
		{
			name:        "bare value",
			raw:         "quarterly report department:finance",
			wantText:    "quarterly report",
			wantFilters: map[string][]string{"department": {"finance"}},
		},
		{
			name:        "quoted value with spaces",
			raw:         `summary author:"Jane Doe" draft`,
			wantText:    "summary draft",
			wantFilters: map[string][]string{"author": {"Jane Doe"}},
		},
		{
			name:        "is type token",
			raw:         "roadmap is:presentation",
			wantText:    "roadmap",
			wantFilters: map[string][]string{"is": {"presentation"}},
		},
		{
			name:     "repeated keys aggregate",
			raw:      "report tag:q1 tag:q2 tag:q1",
			wantText: "report",
			wantFilters: map[string][]string{
				"tag": {"q1", "q2"},
			},
		},
		{
			name:        "unterminated quote stays in text",
			raw:         `notes author:"Jane`,
			wantText:    `notes author:"Jane`,
			wantFilters: nil,
		},
		{
			name:        "empty value stays in text",
			raw:         "see section: three",
			wantText:    "see section: three",
			wantFilters: nil,
		},
		{
			// Any word:rest token parses as a filter; URLs are no exception.
			name:        "url parses as filter token",
			raw:         "read https://example.com/doc",
			wantText:    "read",
			wantFilters: map[string][]string{"https": {"//example.com/doc"}},
		},
		{
			name:        "no filters",
			raw:         "plain text query",
			wantText:    "plain text query",
			wantFilters: nil,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			text, filters := extractFilters(c.raw)
			if text != c.wantText {
				t.Errorf("text: got %q, want %q", text, c.wantText)
			}
			if !reflect.DeepEqual(filters, c.wantFilters) {
				t.Errorf("filters: got %v, want %v", filters, c.wantFilters)
			}
		})
	}
}

func TestNew_FilterKeysLowercased(t *testing.T) {
	q := mustNew(t, "report Department:Finance")

	want := map[string][]string{"department": {"Finance"}}
	if !reflect.DeepEqual(q.Filters(), want) {
		t.Errorf("filters: got %v, want %v", q.Filters(), want)
	}
}
