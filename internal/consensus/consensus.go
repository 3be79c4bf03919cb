// Package consensus clusters the matched windows at one position into a
// ranked list of (possibly degenerate) variants and finds the shortest
// prefix of that list that reaches a coverage threshold.
package consensus

import (
	"sort"

	"oligoscreen/internal/model"
)

// Skip reasons reported on windows that were never analyzed.
const (
	SkipNoMatches     = "No valid matches found in any reference sequence"
	SkipShortTemplate = "Template shorter than oligo length"
)

type unique struct {
	seq   string
	pat   pattern
	count int
}

// uniques groups identical sequences, most frequent first, ties by sequence.
func uniques(seqs []string) []unique {
	idx := make(map[string]int, len(seqs))
	var out []unique
	for _, s := range seqs {
		if i, ok := idx[s]; ok {
			out[i].count++
			continue
		}
		idx[s] = len(out)
		out = append(out, unique{seq: s, count: 1})
	}
	sortUniques(out)
	return out
}

func sortUniques(us []unique) {
	sort.Slice(us, func(i, j int) bool {
		if us[i].count != us[j].count {
			return us[i].count > us[j].count
		}
		return us[i].seq < us[j].seq
	})
}

// Analyze clusters seqs under method. Percentages and the threshold prefix
// are relative to len(seqs); callers that know of unmatched references
// apply Rescale afterwards.
func Analyze(seqs []string, method model.Method, excludeN bool, threshold float64) model.WindowAnalysisResult {
	if len(seqs) == 0 {
		return Skipped(0, 0, SkipNoMatches)
	}
	us := uniques(seqs)
	if _, exact := method.(model.NoAmbiguities); !exact && method != nil {
		for i := range us {
			us[i].pat = toPattern(us[i].seq)
		}
	}

	var variants []model.Variant
	switch m := method.(type) {
	case model.FixedAmbiguities:
		variants = fixed(us, m.Max, excludeN)
	case model.Incremental:
		maxAmb := -1
		if m.MaxAmbiguities != nil {
			maxAmb = *m.MaxAmbiguities
		}
		variants = incremental(us, m.TargetPct, maxAmb, excludeN)
	default:
		variants = make([]model.Variant, len(us))
		for i, u := range us {
			variants[i] = model.Variant{Sequence: u.seq, Count: u.count}
		}
	}
	sortVariants(variants)

	r := model.WindowAnalysisResult{
		TotalSequences:    len(seqs),
		SequencesAnalyzed: len(seqs),
		Variants:          variants,
	}
	Rescale(&r, len(seqs), threshold)
	return r
}

// Skipped builds the result for a window that produced nothing to analyze.
func Skipped(total, noMatch int, reason string) model.WindowAnalysisResult {
	return model.WindowAnalysisResult{
		TotalSequences: total,
		NoMatchCount:   noMatch,
		Skipped:        true,
		SkipReason:     reason,
	}
}

func sortVariants(vs []model.Variant) {
	sort.Slice(vs, func(i, j int) bool {
		if vs[i].Count != vs[j].Count {
			return vs[i].Count > vs[j].Count
		}
		return vs[i].Sequence < vs[j].Sequence
	})
}
