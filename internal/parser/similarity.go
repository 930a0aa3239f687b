package parser

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// containmentScore is returned whenever one title contains the other,
// regardless of how much longer the containing title is.
const containmentScore = 0.8

// TitleSimilarity scores how close two titles are, in [0,1]. Both inputs
// are case-folded; if either is a substring of the other the fixed
// containment score is returned. Otherwise the score is one minus the
// ratio of positional character mismatches plus the length difference over
// the longer length. This is a position-aligned comparison, not an edit
// distance: an insertion before a common suffix shifts every later
// position. Resolver tie-breaks depend on that behavior, so it stays.
func TitleSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	a = strings.ToLower(a)
	b = strings.ToLower(b)

	if strings.Contains(a, b) || strings.Contains(b, a) {
		return containmentScore
	}

	ar := []rune(a)
	br := []rune(b)
	maxLen := len(ar)
	minLen := len(br)
	if minLen > maxLen {
		maxLen, minLen = minLen, maxLen
	}

	mismatches := 0
	for i := 0; i < minLen; i++ {
		if ar[i] != br[i] {
			mismatches++
		}
	}

	return 1 - float64(mismatches+(maxLen-minLen))/float64(maxLen)
}

// NarrowByExactMatch looks for the unique candidate name that is a
// near-exact match of title (Levenshtein distance at most 1 after case
// folding). Returns the index of that candidate, or false when zero or
// several names qualify.
func NarrowByExactMatch(title string, names []string) (int, bool) {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return 0, false
	}

	found := -1
	for i, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if levenshtein.ComputeDistance(title, name) > 1 {
			continue
		}
		if found >= 0 {
			return 0, false
		}
		found = i
	}
	if found < 0 {
		return 0, false
	}
	return found, true
}
