package writers

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"oligoscreen/internal/exclusivity"
	"oligoscreen/internal/model"
)

// SummaryOptions narrows and decorates the TSV summary.
type SummaryOptions struct {
	Length     int  // 0 = every length
	IgnoreBest int  // exclusivity sequences to disregard when reporting the minimum
	Header     bool // emit the column header
}

var summaryCols = []string{
	"length", "position", "variants_needed", "coverage", "matched", "total",
	"no_match", "skipped", "skip_reason", "top_variant",
}

var exclusivityCols = []string{"excl_min_mismatches", "excl_no_match"}

// WriteSummary writes one row per position. Positions are 0-based; the
// exclusivity columns appear only for differential runs and read "NA"
// when every considered sequence failed to match.
func WriteSummary(w io.Writer, res *model.ScreeningResults, opt SummaryOptions) error {
	bw := bufio.NewWriter(w)
	if opt.Header {
		cols := summaryCols
		if res.DifferentialEnabled {
			cols = append(append([]string(nil), cols...), exclusivityCols...)
		}
		if _, err := bw.WriteString(strings.Join(cols, "\t") + "\n"); err != nil {
			return err
		}
	}
	for _, l := range res.Lengths() {
		if opt.Length > 0 && l != opt.Length {
			continue
		}
		for _, p := range res.ResultsByLength[l].Positions {
			a := p.Analysis
			top := ""
			if len(a.Variants) > 0 {
				top = a.Variants[0].Sequence
			}
			row := []string{
				strconv.Itoa(l),
				strconv.Itoa(p.Position),
				strconv.Itoa(p.VariantsNeeded),
				strconv.FormatFloat(a.CoverageAtThreshold, 'f', 2, 64),
				strconv.Itoa(a.SequencesAnalyzed),
				strconv.Itoa(a.TotalSequences),
				strconv.Itoa(a.NoMatchCount),
				strconv.FormatBool(a.Skipped),
				a.SkipReason,
				top,
			}
			if res.DifferentialEnabled {
				row = append(row, exclusivityColumns(p.Exclusivity, opt.IgnoreBest)...)
			}
			if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

func exclusivityColumns(e *model.ExclusivityResult, ignore int) []string {
	if e == nil {
		return []string{"NA", "NA"}
	}
	return []string{formatMin(exclusivity.EffectiveMin(e, ignore)), strconv.Itoa(e.NoMatchCount)}
}

func formatMin(mm *uint32) string {
	if mm == nil {
		return "NA"
	}
	return fmt.Sprint(*mm)
}
