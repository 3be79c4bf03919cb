package screen

import (
	"oligoscreen/internal/model"
	"oligoscreen/internal/pairwise"
)

// Matcher is the minimal alignment capability a worker needs.
type Matcher interface {
	CollectMatches(query []byte, targets [][]byte) (matches []string, noMatch int)
	CollectMismatchCounts(query []byte, targets [][]byte) []int
}

// MatcherFactory builds one Matcher for one worker. maxTarget is the
// longest reference or exclusivity sequence the worker will see.
type MatcherFactory func(maxQuery, maxTarget int, sc model.PairwiseParams) Matcher

// PairwiseMatcher is the default factory.
func PairwiseMatcher(maxQuery, maxTarget int, sc model.PairwiseParams) Matcher {
	return pairwise.New(maxQuery, maxTarget, sc)
}
