package similarity

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Threshold is the score a pair of names must exceed (strictly) to be
// considered similar. A score of exactly 0.8 is not similar.
const Threshold = 0.8

// Score returns a normalized edit-distance similarity between two names in
// [0, 1]. Comparison is case-insensitive and ignores surrounding whitespace.
func Score(first, second string) float64 {
	a := strings.ToLower(strings.TrimSpace(first))
	b := strings.ToLower(strings.TrimSpace(second))

	if a == b {
		return 1.0
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(distance)/float64(longest)
}

// IsSimilar reports whether two names score strictly above Threshold.
func IsSimilar(first, second string) bool {
	return Score(first, second) > Threshold
}
