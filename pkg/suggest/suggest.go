// Package suggest proposes the closest known name for a misspelled one.
package suggest

import "strings"

// minThreshold is the smallest edit distance still accepted as a typo.
const minThreshold = 2

// Matcher finds near matches by Levenshtein distance. It reuses its scratch
// buffer between calls and is not safe for concurrent use.
type Matcher struct {
	column []int
}

// Distance returns the Levenshtein distance between a and b: the minimum
// number of single-rune insertions, deletions or substitutions turning one
// into the other. It uses O(min(len(a), len(b))) space.
func (m *Matcher) Distance(a, b string) int {
	s1 := []rune(a)
	s2 := []rune(b)

	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}

	if len(s1) == 0 {
		return len(s2)
	}

	if cap(m.column) < len(s1)+1 {
		m.column = make([]int, len(s1)+1)
	}

	column := m.column[:len(s1)+1]
	for idx := range column {
		column[idx] = idx
	}

	for col, r2 := range s2 {
		diag := column[0]
		column[0] = col + 1

		for row, r1 := range s1 {
			cost := 1
			if r1 == r2 {
				cost = 0
			}

			prev := column[row+1]
			column[row+1] = min(prev+1, column[row]+1, diag+cost)
			diag = prev
		}
	}

	return column[len(s1)]
}

// Closest returns the candidate nearest to target, ignoring case. Candidates
// further than a third of target's length (and at least two edits) are not
// considered a match.
func (m *Matcher) Closest(target string, candidates []string) (string, bool) {
	needle := strings.ToLower(target)
	limit := max(minThreshold, len([]rune(needle))/3)

	best, bestDistance := "", limit+1

	for _, candidate := range candidates {
		distance := m.Distance(needle, strings.ToLower(candidate))
		if distance < bestDistance {
			best, bestDistance = candidate, distance
		}
	}

	return best, best != ""
}

// Closest is a convenience wrapper around a fresh [Matcher].
func Closest(target string, candidates []string) (string, bool) {
	var m Matcher

	return m.Closest(target, candidates)
}
