package consensus

import "oligoscreen/internal/model"

// eps absorbs float drift when a cumulative sum lands exactly on the threshold.
const eps = 1e-9

// ThresholdPrefix returns the smallest k whose first k variants reach
// threshold percent, with the cumulative percentage at k. When the
// threshold is unreachable it returns len(variants) and the total.
func ThresholdPrefix(variants []model.Variant, threshold float64) (k int, coverage float64) {
	cum := 0.0
	for i, v := range variants {
		cum += v.Percentage
		if cum+eps >= threshold {
			return i + 1, cum
		}
	}
	return len(variants), cum
}

// Rescale expresses r against total references, so no-matches lower
// coverage, and re-walks the threshold prefix.
func Rescale(r *model.WindowAnalysisResult, total int, threshold float64) {
	if r.Skipped || total <= 0 {
		return
	}
	r.TotalSequences = total
	if n := total - r.SequencesAnalyzed; n > 0 {
		r.NoMatchCount = n
	}
	t := float64(total)
	for i := range r.Variants {
		r.Variants[i].Percentage = float64(r.Variants[i].Count) / t * 100
	}
	r.VariantsForThreshold, r.CoverageAtThreshold = ThresholdPrefix(r.Variants, threshold)
}

// Retarget re-walks the threshold prefix of every analyzed position of a
// finished run against a new threshold without re-aligning anything.
func Retarget(res *model.ScreeningResults, threshold float64) {
	res.Params.CoverageThreshold = threshold
	for _, lr := range res.ResultsByLength {
		for i := range lr.Positions {
			p := &lr.Positions[i]
			if p.Analysis.Skipped {
				continue
			}
			k, cov := ThresholdPrefix(p.Analysis.Variants, threshold)
			p.Analysis.VariantsForThreshold = k
			p.Analysis.CoverageAtThreshold = cov
			p.VariantsNeeded = k
		}
	}
}
