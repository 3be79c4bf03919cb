package writers

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"oligoscreen/internal/exclusivity"
	"oligoscreen/internal/iupac"
	"oligoscreen/internal/model"
)

// PrettyOptions controls the human-readable variant blocks.
type PrettyOptions struct {
	Length         int  // 0 = every length
	ReverseComp    bool // show sequences as their reverse complement
	CodonSpacing   bool // insert a space every three bases
	IgnoreBest     int  // see SummaryOptions.IgnoreBest
	SkipUnanalyzed bool // omit skipped windows
}

const linePrefix = "# "

// FormatSequence applies the display transforms to one sequence.
func FormatSequence(seq string, reverseComp, codonSpacing bool) string {
	if reverseComp {
		seq = iupac.RevComp(seq)
	}
	if !codonSpacing || len(seq) <= 3 {
		return seq
	}
	var b strings.Builder
	b.Grow(len(seq) + len(seq)/3)
	for i := 0; i < len(seq); i++ {
		if i > 0 && i%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(seq[i])
	}
	return b.String()
}

// WritePretty renders one block per position.
func WritePretty(w io.Writer, res *model.ScreeningResults, opt PrettyOptions) error {
	bw := bufio.NewWriter(w)
	for _, l := range res.Lengths() {
		if opt.Length > 0 && l != opt.Length {
			continue
		}
		for _, p := range res.ResultsByLength[l].Positions {
			if opt.SkipUnanalyzed && p.Analysis.Skipped {
				continue
			}
			writeBlock(bw, res, l, p, opt)
		}
	}
	return bw.Flush()
}

func writeBlock(w *bufio.Writer, res *model.ScreeningResults, length int, p model.PositionResult, opt PrettyOptions) {
	line := func(format string, a ...any) {
		_, _ = fmt.Fprintf(w, linePrefix+format+"\n", a...)
	}
	a := p.Analysis
	line("Position %d | oligo length %d bp", p.Position+1, length)
	if end := p.Position + length; p.Position >= 0 && end <= len(res.TemplateSequence) {
		line("Template oligo: %s", FormatSequence(res.TemplateSequence[p.Position:end], opt.ReverseComp, opt.CodonSpacing))
	}
	if a.Skipped {
		line("This window was skipped: %s", a.SkipReason)
		_ = w.WriteByte('\n')
		return
	}
	line("Total references: %d | matched: %d", a.TotalSequences, a.SequencesAnalyzed)
	if a.NoMatchCount > 0 && a.TotalSequences > 0 {
		line("No match: %d/%d (%.1f%%)", a.NoMatchCount, a.TotalSequences, percent(a.NoMatchCount, a.TotalSequences))
	}
	line("Variants needed for %.0f%% coverage: %d | coverage at threshold: %.1f%%",
		res.Params.CoverageThreshold, p.VariantsNeeded, a.CoverageAtThreshold)

	seqs := make([]string, len(a.Variants))
	width := len("Sequence")
	for i, v := range a.Variants {
		seqs[i] = FormatSequence(v.Sequence, opt.ReverseComp, opt.CodonSpacing)
		if len(seqs[i]) > width {
			width = len(seqs[i])
		}
	}
	line("%4s  %-*s  %7s  %7s  %10s", "#", width, "Sequence", "Count", "Pct", "Cumulative")
	cum := 0.0
	for i, v := range a.Variants {
		cum += v.Percentage
		mark := ""
		if i+1 == p.VariantsNeeded {
			mark = "  <"
		}
		line("%4d  %-*s  %7d  %6.1f%%  %9.1f%%%s", i+1, width, seqs[i], v.Count, v.Percentage, cum, mark)
	}
	if a.NoMatchCount > 0 {
		line("%4s  %-*s  %7d  %6.1f%%", "", width, "No match", a.NoMatchCount, percent(a.NoMatchCount, a.TotalSequences))
	}
	if e := p.Exclusivity; e != nil {
		mm := "all no-match"
		if v := exclusivity.EffectiveMin(e, opt.IgnoreBest); v != nil {
			mm = fmt.Sprint(*v)
		}
		line("Exclusivity: min mismatches = %s (%d sequences)", mm, e.TotalSequences)
	}
	_ = w.WriteByte('\n')
}

func percent(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
