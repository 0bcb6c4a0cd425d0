// Package similarity provides the string-similarity primitive consumed by the
// mining engine.
//
// The engine only depends on the Ratio function type; any metric that is
// symmetric, returns 1.0 for identical inputs and 0.0 for maximally dissimilar
// inputs can be plugged in. The default is a normalized Levenshtein ratio.
package similarity

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio computes a similarity score in [0, 1] between two strings.
// 1.0 means identical, 0.0 means maximally dissimilar.
type Ratio func(a, b string) float64

// LevenshteinRatio is the default Ratio implementation: edit distance
// normalized by the length (in runes) of the longer input.
//
// Edge cases:
//   - Two empty strings are identical: returns 1.0.
//   - One empty string against a non-empty one returns 0.0.
func LevenshteinRatio(a, b string) float64 {
	if a == b {
		return 1.0
	}

	la := utf8.RuneCountInString(a)
	lb := utf8.RuneCountInString(b)
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 1.0
	}

	d := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(d)/float64(max)
}
