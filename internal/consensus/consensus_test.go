package consensus

import (
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"oligoscreen/internal/model"
)

type want struct {
	seq   string
	count int
}

func assertVariants(t *testing.T, got []model.Variant, exp []want) {
	t.Helper()
	if len(got) != len(exp) {
		t.Fatalf("got %d variants %+v, want %d %+v", len(got), got, len(exp), exp)
	}
	for i := range exp {
		if got[i].Sequence != exp[i].seq || got[i].Count != exp[i].count {
			t.Fatalf("variant %d = %s/%d, want %s/%d (all: %+v)", i, got[i].Sequence, got[i].Count, exp[i].seq, exp[i].count, got)
		}
	}
}

func repeat(pairs ...any) []string {
	var out []string
	for i := 0; i < len(pairs); i += 2 {
		s, n := pairs[i].(string), pairs[i+1].(int)
		for j := 0; j < n; j++ {
			out = append(out, s)
		}
	}
	return out
}

func TestAnalyzeNoAmbiguities(t *testing.T) {
	r := Analyze([]string{"TTTT", "ACGT", "ACGA", "ACGT"}, model.NoAmbiguities{}, false, 95)
	assertVariants(t, r.Variants, []want{{"ACGT", 2}, {"ACGA", 1}, {"TTTT", 1}})
	if r.Variants[0].Percentage != 50 || r.Variants[2].Percentage != 25 {
		t.Fatalf("percentages %+v", r.Variants)
	}
	if r.VariantsForThreshold != 3 || r.CoverageAtThreshold != 100 {
		t.Fatalf("threshold prefix %d/%v", r.VariantsForThreshold, r.CoverageAtThreshold)
	}
	if r.Skipped || r.SequencesAnalyzed != 4 || r.TotalSequences != 4 {
		t.Fatalf("counts %+v", r)
	}
}

func TestAnalyzeFixedAmbiguities(t *testing.T) {
	tests := []struct {
		name     string
		seqs     []string
		max      int
		excludeN bool
		want     []want
	}{
		{"merge into degenerate", repeat("ACGT", 2, "ACGA", 1, "TTTT", 1), 1, false, []want{{"ACGW", 3}, {"TTTT", 1}}},
		{"budget zero keeps exact", repeat("ACGT", 2, "ACGA", 1), 0, false, []want{{"ACGT", 2}, {"ACGA", 1}}},
		{"gap never merges with base", []string{"ACGT", "AC-T"}, 2, false, []want{{"AC-T", 1}, {"ACGT", 1}}},
		{"gaps agree", repeat("AC-T", 2, "AC-A", 1), 1, false, []want{{"AC-W", 3}}},
		{"widen to N allowed", repeat("ACGR", 2, "ACGY", 1), 1, false, []want{{"ACGN", 3}}},
		{"widen to N excluded", repeat("ACGR", 2, "ACGY", 1), 1, true, []want{{"ACGR", 2}, {"ACGY", 1}}},
		{"largest compatible wins", repeat("AAAA", 3, "CCAA", 2, "ACAA", 1), 1, false, []want{{"AMAA", 4}, {"CCAA", 2}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Analyze(tt.seqs, model.FixedAmbiguities{Max: tt.max}, tt.excludeN, 95)
			assertVariants(t, r.Variants, tt.want)
		})
	}
}

func TestAnalyzeIncremental(t *testing.T) {
	zero := 0
	seqs := repeat("AAAA", 4, "AAAC", 3, "AAAG", 2, "TTTT", 1)
	tests := []struct {
		name   string
		seqs   []string
		pct    int
		maxAmb *int
		want   []want
	}{
		{"half of remaining", seqs, 50, nil, []want{{"AAAM", 7}, {"AAAG", 2}, {"TTTT", 1}}},
		{"fewest added degenerate columns", seqs, 80, nil, []want{{"AAAV", 9}, {"TTTT", 1}}},
		{"budget exhausted", seqs, 80, &zero, []want{{"AAAA", 4}, {"AAAC", 3}, {"AAAG", 2}, {"TTTT", 1}}},
		{"subsumed taken for free", repeat("AAAA", 3, "AAAC", 2, "AAAM", 1), 60, nil, []want{{"AAAM", 6}}},
		{"earlier variant folded into wider later one", []string{"GAATAA", "AAATAT", "AAATAA", "AAAGAA", "AAATAA", "TAATAA"}, 30, nil, []want{{"AAAKAW", 4}, {"GAATAA", 1}, {"TAATAA", 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Analyze(tt.seqs, model.Incremental{TargetPct: tt.pct, MaxAmbiguities: tt.maxAmb}, false, 95)
			assertVariants(t, r.Variants, tt.want)
		})
	}
}

func TestAnalyzeEmptyIsSkipped(t *testing.T) {
	r := Analyze(nil, model.NoAmbiguities{}, false, 95)
	if !r.Skipped || r.SkipReason != SkipNoMatches || len(r.Variants) != 0 {
		t.Fatalf("got %+v", r)
	}
}

func TestIdempotence(t *testing.T) {
	two := 2
	seqs := repeat("ACGT", 5, "ACGA", 3, "TTGT", 2, "AC-T", 1, "GGGG", 1)
	methods := []model.Method{
		model.NoAmbiguities{},
		model.FixedAmbiguities{Max: 1},
		model.FixedAmbiguities{Max: 2},
		model.Incremental{TargetPct: 30},
		model.Incremental{TargetPct: 50},
		model.Incremental{TargetPct: 80, MaxAmbiguities: &two},
	}
	for _, m := range methods {
		first := Analyze(seqs, m, false, 90)
		var again []string
		for _, v := range first.Variants {
			again = append(again, repeat(v.Sequence, v.Count)...)
		}
		second := Analyze(again, m, false, 90)
		if !reflect.DeepEqual(first, second) {
			t.Fatalf("%s not idempotent:\nfirst  %+v\nsecond %+v", m, first, second)
		}
	}
}

func TestThresholdPrefix(t *testing.T) {
	vs := []model.Variant{{Percentage: 50}, {Percentage: 30}, {Percentage: 20}}
	tests := []struct {
		threshold float64
		k         int
		cov       float64
	}{
		{10, 1, 50},
		{80, 2, 80},
		{95, 3, 100},
		{101, 3, 100},
	}
	for _, tt := range tests {
		k, cov := ThresholdPrefix(vs, tt.threshold)
		if k != tt.k || cov != tt.cov {
			t.Errorf("ThresholdPrefix(%v) = %d,%v want %d,%v", tt.threshold, k, cov, tt.k, tt.cov)
		}
	}
	if k, cov := ThresholdPrefix(nil, 50); k != 0 || cov != 0 {
		t.Fatalf("empty = %d,%v", k, cov)
	}
}

func TestRescale(t *testing.T) {
	r := Analyze([]string{"ACGT", "ACGT", "ACGA"}, model.NoAmbiguities{}, false, 95)
	if r.VariantsForThreshold != 2 {
		t.Fatalf("pre-rescale k = %d", r.VariantsForThreshold)
	}
	Rescale(&r, 4, 95)
	if r.TotalSequences != 4 || r.NoMatchCount != 1 || r.SequencesAnalyzed != 3 {
		t.Fatalf("counts %+v", r)
	}
	if r.Variants[0].Percentage != 50 || r.Variants[1].Percentage != 25 {
		t.Fatalf("percentages %+v", r.Variants)
	}
	if r.VariantsForThreshold != 2 || r.CoverageAtThreshold != 75 {
		t.Fatalf("unreachable threshold: k=%d cov=%v", r.VariantsForThreshold, r.CoverageAtThreshold)
	}
	sum := float64(r.NoMatchCount) / float64(r.TotalSequences) * 100
	for _, v := range r.Variants {
		sum += v.Percentage
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("percentages plus no-match sum to %v", sum)
	}

	Rescale(&r, 4, 50)
	if r.VariantsForThreshold != 1 || r.CoverageAtThreshold != 50 {
		t.Fatalf("k=%d cov=%v", r.VariantsForThreshold, r.CoverageAtThreshold)
	}
}

func TestRetarget(t *testing.T) {
	analyzed := Analyze(repeat("ACGT", 3, "ACGA", 1), model.NoAmbiguities{}, false, 95)
	res := &model.ScreeningResults{
		Params: model.DefaultParams(),
		ResultsByLength: map[int]model.LengthResult{
			4: {OligoLength: 4, Positions: []model.PositionResult{
				{Position: 0, VariantsNeeded: analyzed.VariantsForThreshold, Analysis: analyzed},
				{Position: 1, Analysis: Skipped(4, 4, SkipNoMatches)},
			}},
		},
	}
	Retarget(res, 70)
	p := res.ResultsByLength[4].Positions
	if p[0].VariantsNeeded != 1 || p[0].Analysis.VariantsForThreshold != 1 || p[0].Analysis.CoverageAtThreshold != 75 {
		t.Fatalf("retargeted %+v", p[0])
	}
	if p[1].VariantsNeeded != 0 || !p[1].Analysis.Skipped {
		t.Fatalf("skipped position changed: %+v", p[1])
	}
	if res.Params.CoverageThreshold != 70 {
		t.Fatalf("params threshold %v", res.Params.CoverageThreshold)
	}
}

func TestThresholdToleratesRounding(t *testing.T) {
	// Three sixths accumulate to 49.99999999999999 in float64.
	r := Analyze([]string{"AAAA", "CCCC", "GGGG", "TTTT", "ACAC", "GTGT"}, model.NoAmbiguities{}, false, 50)
	if r.VariantsForThreshold != 3 {
		t.Fatalf("k = %d, want 3 (coverage %v)", r.VariantsForThreshold, r.CoverageAtThreshold)
	}
	if math.Abs(r.CoverageAtThreshold-50) > 1e-9 {
		t.Fatalf("coverage %v", r.CoverageAtThreshold)
	}
}

// expand lists every variant Count times, the input that reproduces it.
func expand(vs []model.Variant) []string {
	var out []string
	for _, v := range vs {
		out = append(out, repeat(v.Sequence, v.Count)...)
	}
	return out
}

func randomWindows(rng *rand.Rand) []string {
	const alphabet = "ACGT"
	base := make([]byte, 6)
	for i := range base {
		base[i] = alphabet[rng.Intn(4)]
	}
	seqs := make([]string, 1+rng.Intn(12))
	for i := range seqs {
		s := append([]byte(nil), base...)
		for k := rng.Intn(3); k > 0; k-- {
			s[rng.Intn(len(s))] = alphabet[rng.Intn(4)]
		}
		if rng.Intn(10) == 0 {
			s[rng.Intn(len(s))] = '-'
		}
		seqs[i] = string(s)
	}
	return seqs
}

func TestRandomWindowProperties(t *testing.T) {
	one, two := 1, 2
	methods := []model.Method{
		model.NoAmbiguities{},
		model.FixedAmbiguities{Max: 1},
		model.FixedAmbiguities{Max: 3},
		model.Incremental{TargetPct: 30},
		model.Incremental{TargetPct: 50},
		model.Incremental{TargetPct: 80, MaxAmbiguities: &two},
		model.Incremental{TargetPct: 100, MaxAmbiguities: &one},
	}
	rng := rand.New(rand.NewSource(7))
	for iter := 0; iter < 500; iter++ {
		seqs := randomWindows(rng)
		for _, m := range methods {
			for _, excludeN := range []bool{false, true} {
				name := fmt.Sprintf("%v excludeN=%v on %v", m, excludeN, seqs)
				first := Analyze(seqs, m, excludeN, 90)

				sum, total := 0.0, 0
				for _, v := range first.Variants {
					sum += v.Percentage
					total += v.Count
				}
				if total != len(seqs) || math.Abs(sum-100) > 1e-9 {
					t.Fatalf("%s: counts %d, percentages %v", name, total, sum)
				}
				if k, cov := ThresholdPrefix(first.Variants, 90); k != first.VariantsForThreshold || cov != first.CoverageAtThreshold {
					t.Fatalf("%s: prefix %d/%v, stored %d/%v", name, k, cov, first.VariantsForThreshold, first.CoverageAtThreshold)
				}

				second := Analyze(expand(first.Variants), m, excludeN, 90)
				if !reflect.DeepEqual(first, second) {
					t.Fatalf("%s not idempotent:\nfirst  %+v\nsecond %+v", name, first.Variants, second.Variants)
				}

				if _, inc := m.(model.Incremental); !inc {
					continue
				}
				for i, a := range first.Variants {
					for j, b := range first.Variants {
						if i != j && subsumes(toPattern(a.Sequence), toPattern(b.Sequence)) {
							t.Fatalf("%s: %s contains %s", name, a.Sequence, b.Sequence)
						}
					}
				}
			}
		}
	}
}
