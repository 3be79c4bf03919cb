// Package exclusivity scores how close off-target sequences come to an
// oligo as a histogram of best-alignment mismatch counts.
package exclusivity

import (
	"sort"

	"oligoscreen/internal/model"
)

// Score builds the mismatch histogram for per-sequence counts as produced by
// pairwise.CollectMismatchCounts. Buckets are ascending by mismatch count,
// each naming the first sequence that landed in it; sequences reported as
// pairwise.NoMatch share one trailing model.NoMatchBucket.
func Score(counts []int, names []string) model.ExclusivityResult {
	res := model.ExclusivityResult{TotalSequences: len(counts)}
	idx := make(map[int]int)
	noMatchExample := ""
	for i, mm := range counts {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		if mm < 0 { // pairwise.NoMatch
			if res.NoMatchCount == 0 {
				noMatchExample = name
			}
			res.NoMatchCount++
			continue
		}
		if b, ok := idx[mm]; ok {
			res.MismatchHistogram[b].Count++
			continue
		}
		idx[mm] = len(res.MismatchHistogram)
		res.MismatchHistogram = append(res.MismatchHistogram, model.MismatchBucket{
			Mismatches: uint32(mm), Count: 1, ExampleName: name,
		})
	}
	sort.Slice(res.MismatchHistogram, func(i, j int) bool {
		return res.MismatchHistogram[i].Mismatches < res.MismatchHistogram[j].Mismatches
	})
	if len(res.MismatchHistogram) > 0 {
		m := res.MismatchHistogram[0].Mismatches
		res.MinMismatches = &m
	}
	if res.NoMatchCount > 0 {
		res.MismatchHistogram = append(res.MismatchHistogram, model.MismatchBucket{
			Mismatches: model.NoMatchBucket, Count: res.NoMatchCount, ExampleName: noMatchExample,
		})
	}
	return res
}

// EffectiveMin is the smallest mismatch count left after discarding the
// ignore closest matched sequences. Nil when nothing matched remains.
func EffectiveMin(r *model.ExclusivityResult, ignore int) *uint32 {
	if r == nil {
		return nil
	}
	if ignore < 0 {
		ignore = 0
	}
	skipped := 0
	for _, b := range r.MismatchHistogram {
		if b.IsNoMatch() {
			continue
		}
		if skipped+b.Count > ignore {
			m := b.Mismatches
			return &m
		}
		skipped += b.Count
	}
	return nil
}
