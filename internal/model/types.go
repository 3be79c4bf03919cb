// Package model holds the screening result tree and the inputs that produce
// it. Everything here is plain data: built once per run, read-only after,
// and serialized verbatim for export and import.
package model

import (
	"math"
	"sort"
)

// NoMatchBucket keys the trailing histogram bucket that aggregates
// exclusivity sequences without an acceptable alignment.
const NoMatchBucket uint32 = math.MaxUint32

// Variant is one distinct (possibly degenerate) sequence found at a window.
type Variant struct {
	Sequence   string  `json:"sequence"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// WindowAnalysisResult describes the variants found for one oligo window.
// Percentages are relative to TotalSequences, so no-matches lower the
// achievable coverage.
type WindowAnalysisResult struct {
	TotalSequences       int       `json:"total_sequences"`
	SequencesAnalyzed    int       `json:"sequences_analyzed"`
	NoMatchCount         int       `json:"no_match_count"`
	Skipped              bool      `json:"skipped"`
	SkipReason           string    `json:"skip_reason,omitempty"`
	Variants             []Variant `json:"variants"`
	VariantsForThreshold int       `json:"variants_for_threshold"`
	CoverageAtThreshold  float64   `json:"coverage_at_threshold"`
}

// MismatchBucket counts exclusivity sequences sharing one mismatch value.
type MismatchBucket struct {
	Mismatches  uint32 `json:"mismatches"`
	Count       int    `json:"count"`
	ExampleName string `json:"example_name"`
}

// IsNoMatch reports whether b is the catch-all no-match bucket.
func (b MismatchBucket) IsNoMatch() bool { return b.Mismatches == NoMatchBucket }

// ExclusivityResult summarizes how close off-target sequences get to an oligo.
type ExclusivityResult struct {
	TotalSequences    int              `json:"total_sequences"`
	NoMatchCount      int              `json:"no_match_count"`
	MismatchHistogram []MismatchBucket `json:"mismatch_histogram"`
	MinMismatches     *uint32          `json:"min_mismatches"`
}

// PositionResult is the outcome at one start position.
type PositionResult struct {
	Position       int                  `json:"position"`
	VariantsNeeded int                  `json:"variants_needed"`
	Analysis       WindowAnalysisResult `json:"analysis"`
	Exclusivity    *ExclusivityResult   `json:"exclusivity,omitempty"`
}

// LengthResult holds every position evaluated for one oligo length,
// ordered by position.
type LengthResult struct {
	OligoLength int              `json:"oligo_length"`
	Positions   []PositionResult `json:"positions"`
}

// ScreeningResults is the full output of one run.
type ScreeningResults struct {
	Params                   AnalysisParams       `json:"params"`
	TemplateName             string               `json:"template_name,omitempty"`
	TemplateLength           int                  `json:"template_length"`
	TemplateSequence         string               `json:"template_sequence"`
	TotalSequences           int                  `json:"total_sequences"`
	DifferentialEnabled      bool                 `json:"differential_enabled"`
	ExclusivitySequenceCount *int                 `json:"exclusivity_sequence_count"`
	ResultsByLength          map[int]LengthResult `json:"results_by_length"`
}

// NewScreeningResults returns an empty result tree for a run.
func NewScreeningResults(p AnalysisParams, tmpl Template, totalRefs int, exclusivity *SequenceSet) *ScreeningResults {
	r := &ScreeningResults{
		Params:           p,
		TemplateName:     tmpl.Name,
		TemplateLength:   len(tmpl.Sequence),
		TemplateSequence: tmpl.Sequence,
		TotalSequences:   totalRefs,
		ResultsByLength:  make(map[int]LengthResult),
	}
	if exclusivity != nil {
		n := exclusivity.Len()
		r.DifferentialEnabled = true
		r.ExclusivitySequenceCount = &n
	}
	return r
}

// Lengths returns the oligo lengths present, ascending.
func (r *ScreeningResults) Lengths() []int {
	out := make([]int, 0, len(r.ResultsByLength))
	for l := range r.ResultsByLength {
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// Progress is a coarse progress event emitted while a run sweeps positions.
type Progress struct {
	CurrentLength    int    `json:"current_length"`
	CurrentPosition  int    `json:"current_position"`
	TotalPositions   int    `json:"total_positions"`
	LengthsCompleted int    `json:"lengths_completed"`
	TotalLengths     int    `json:"total_lengths"`
	Message          string `json:"message"`
}
