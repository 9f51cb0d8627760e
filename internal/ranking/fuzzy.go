package ranking

import "github.com/agnivade/levenshtein"

// Ratio scores the similarity of two strings on a 0-100 scale using
// Levenshtein edit distance. 100 means equal, 0 means nothing in common.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}

	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 100
	}

	dist := levenshtein.ComputeDistance(a, b)
	return int(float64(longest-dist)/float64(longest)*100 + 0.5)
}
