package pairwise

// CollectMatches aligns query against every target and returns the matched
// segments of accepted hits in target order, plus the count of rejected
// targets.
func (m *Matcher) CollectMatches(query []byte, targets [][]byte) (matches []string, noMatch int) {
	matches = make([]string, 0, len(targets))
	for _, t := range targets {
		s, _, ok := m.Match(query, t)
		if !ok {
			noMatch++
			continue
		}
		matches = append(matches, s)
	}
	return matches, noMatch
}

// CollectMismatchCounts returns, per target, the mismatch count of the best
// alignment or NoMatch.
func (m *Matcher) CollectMismatchCounts(query []byte, targets [][]byte) []int {
	out := make([]int, len(targets))
	for i, t := range targets {
		out[i] = m.MismatchCount(query, t)
	}
	return out
}
