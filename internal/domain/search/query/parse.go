package query

import "strings"

// extractFilters scans the raw query for inline filter tokens of the form
// key:value, key:"quoted value" and is:type, removes them from the
// searchable text, and aggregates repeated keys into value sets.
//
// Parsing is permissive: a token with unterminated quoting or an empty
// value is left in the search text unchanged instead of failing the query.
func extractFilters(raw string) (string, map[string][]string) {
	var textParts []string
	filters := make(map[string][]string)

	rs := []rune(raw)
	i := 0
	for i < len(rs) {
		for i < len(rs) && isSpace(rs[i]) {
			i++
		}
		if i >= len(rs) {
			break
		}
		tokStart := i

		if key, rest := scanFilterKey(rs, i); rest > 0 {
			i = rest
			if val, next, ok := scanFilterValue(rs, i); ok {
				filters[key] = appendUnique(filters[key], val)
				i = next
				continue
			}
		}

		// Plain word: consume the whole whitespace-delimited token.
		i = tokStart
		for i < len(rs) && !isSpace(rs[i]) {
			i++
		}
		textParts = append(textParts, string(rs[tokStart:i]))
	}

	if len(filters) == 0 {
		filters = nil
	}
	return strings.Join(textParts, " "), filters
}

// scanFilterKey reads a filter key (letters, digits, underscore) followed by
// a colon starting at position i. Returns the key and the position after the
// colon, or ("", 0) when no key is present.
func scanFilterKey(rs []rune, i int) (string, int) {
	j := i
	for j < len(rs) && isKeyRune(rs[j]) {
		j++
	}
	if j == i || j >= len(rs) || rs[j] != ':' {
		return "", 0
	}
	return strings.ToLower(string(rs[i:j])), j + 1
}

// scanFilterValue reads a filter value starting at position i: either a
// quoted span (may contain spaces) or a bare run up to whitespace.
// ok is false for empty values and unterminated quotes.
func scanFilterValue(rs []rune, i int) (val string, next int, ok bool) {
	if i < len(rs) && rs[i] == '"' {
		j := i + 1
		for j < len(rs) && rs[j] != '"' {
			j++
		}
		if j >= len(rs) {
			return "", 0, false // unterminated quote
		}
		inner := string(rs[i+1 : j])
		if strings.TrimSpace(inner) == "" {
			return "", 0, false
		}
		return inner, j + 1, true
	}

	j := i
	for j < len(rs) && !isSpace(rs[j]) {
		j++
	}
	if j == i {
		return "", 0, false // "key:" with nothing after
	}
	return string(rs[i:j]), j, true
}

func appendUnique(vals []string, v string) []string {
	for _, existing := range vals {
		if existing == v {
			return vals
		}
	}
	return append(vals, v)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isKeyRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_'
}
