// Package strings normalizes caller-supplied string lists. Audit kind
// filters and per-account source IP collections arrive with inconsistent
// spacing and repeats; these helpers canonicalize them before comparison.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element, drops empties, and removes duplicates
// while preserving first-seen order. Case is left untouched.
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimLower additionally lowercases each element, collapsing
// values that differ only by case.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, canon func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		c := canon(v)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		result = append(result, c)
	}

	return result
}
