package model

import (
	"errors"
	"fmt"
)

// ErrInvalidParams marks any rejected analysis configuration.
var ErrInvalidParams = errors.New("invalid analysis parameters")

// PairwiseParams is the alignment scoring and acceptance policy.
// A gap of length k scores GapOpenPenalty + k*GapExtendPenalty.
type PairwiseParams struct {
	MatchScore       int `json:"match_score"`
	MismatchScore    int `json:"mismatch_score"`
	GapOpenPenalty   int `json:"gap_open_penalty"`
	GapExtendPenalty int `json:"gap_extend_penalty"`
	MaxMismatches    int `json:"max_mismatches"`
}

// DefaultPairwise returns the scoring used when nothing is configured.
func DefaultPairwise() PairwiseParams {
	return PairwiseParams{
		MatchScore:       1,
		MismatchScore:    -1,
		GapOpenPenalty:   -5,
		GapExtendPenalty: -1,
		MaxMismatches:    3,
	}
}

// AnalysisParams configures one screening run. Threads <= 0 means one
// worker per CPU.
type AnalysisParams struct {
	Method            Method         `json:"method"`
	MinOligoLength    int            `json:"min_oligo_length"`
	MaxOligoLength    int            `json:"max_oligo_length"`
	Resolution        int            `json:"resolution"`
	CoverageThreshold float64        `json:"coverage_threshold"`
	ExcludeN          bool           `json:"exclude_n"`
	Pairwise          PairwiseParams `json:"pairwise"`
	Threads           int            `json:"thread_count"`
}

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() AnalysisParams {
	return AnalysisParams{
		Method:            NoAmbiguities{},
		MinOligoLength:    18,
		MaxOligoLength:    25,
		Resolution:        1,
		CoverageThreshold: 95,
		Pairwise:          DefaultPairwise(),
	}
}

// TotalLengths is the number of oligo lengths a run sweeps.
func (p AnalysisParams) TotalLengths() int {
	if p.MaxOligoLength < p.MinOligoLength {
		return 0
	}
	return p.MaxOligoLength - p.MinOligoLength + 1
}

// Validate reports the first problem with p, wrapped in ErrInvalidParams.
func (p AnalysisParams) Validate() error {
	bad := func(format string, a ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, a...))
	}
	switch {
	case p.MinOligoLength < 1:
		return bad("min oligo length must be ≥ 1 (got %d)", p.MinOligoLength)
	case p.MaxOligoLength < p.MinOligoLength:
		return bad("max oligo length (%d) is smaller than min oligo length (%d)", p.MaxOligoLength, p.MinOligoLength)
	case p.Resolution < 1:
		return bad("resolution must be ≥ 1 (got %d)", p.Resolution)
	case p.CoverageThreshold <= 0 || p.CoverageThreshold > 100:
		return bad("coverage threshold must be in (0,100] (got %g)", p.CoverageThreshold)
	}
	pw := p.Pairwise
	switch {
	case pw.MatchScore < 0:
		return bad("match score must be ≥ 0 (got %d)", pw.MatchScore)
	case pw.MismatchScore > 0:
		return bad("mismatch score must be ≤ 0 (got %d)", pw.MismatchScore)
	case pw.GapOpenPenalty > 0 || pw.GapExtendPenalty > 0:
		return bad("gap penalties must be ≤ 0 (got open=%d extend=%d)", pw.GapOpenPenalty, pw.GapExtendPenalty)
	case pw.MaxMismatches < 0:
		return bad("max mismatches must be ≥ 0 (got %d)", pw.MaxMismatches)
	}
	switch m := p.Method.(type) {
	case nil:
		return bad("no method selected")
	case FixedAmbiguities:
		if m.Max < 0 {
			return bad("max ambiguities must be ≥ 0 (got %d)", m.Max)
		}
	case Incremental:
		if m.TargetPct < 1 || m.TargetPct > 100 {
			return bad("incremental target must be in 1..100 (got %d)", m.TargetPct)
		}
		if m.MaxAmbiguities != nil && *m.MaxAmbiguities < 0 {
			return bad("max ambiguities must be ≥ 0 (got %d)", *m.MaxAmbiguities)
		}
	}
	return nil
}
