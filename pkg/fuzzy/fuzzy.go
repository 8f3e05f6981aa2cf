// Package fuzzy scores how many characters two strings share. It tolerates
// misspelled locations in guide search; it is not an edit distance.
package fuzzy

import (
	"strings"
	"unicode/utf8"
)

// Threshold is the minimum Similarity treated as a match.
const Threshold = 70.0

// Similarity returns 100 * |common runes| / max(len(a), len(b)) after
// lower-casing and trimming both inputs. Runes are counted as a multiset, so
// repeated letters only match as often as they occur in both strings.
func Similarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if a == "" || b == "" {
		return 0
	}

	counts := make(map[rune]int)
	for _, r := range a {
		counts[r]++
	}
	common := 0
	for _, r := range b {
		if counts[r] > 0 {
			counts[r]--
			common++
		}
	}
	return float64(common*100) / float64(longest)
}

// Match reports whether Similarity reaches Threshold.
func Match(query, value string) bool {
	return Similarity(query, value) >= Threshold
}

// MatchLocation accepts a case-insensitive substring hit or a fuzzy match.
func MatchLocation(query, location string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	if strings.Contains(strings.ToLower(location), q) {
		return true
	}
	return Match(q, location)
}
