package app

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"oligoscreen/internal/model"
	"oligoscreen/internal/writers"
)

// outputFlags are the rendering flags shared by screen, rethreshold and
// summary.
type outputFlags struct {
	out            string
	format         string
	length         int
	ignoreBest     int
	header         bool
	revComp        bool
	codon          bool
	skipUnanalyzed bool
}

func (o *outputFlags) register(fs *pflag.FlagSet, defaultFormat string) {
	fs.StringVarP(&o.out, "out", "o", "-", "Output file (- = stdout)")
	fs.StringVarP(&o.format, "format", "f", defaultFormat, fmt.Sprintf("Output format %v", writers.Formats()))
	fs.IntVar(&o.length, "length", 0, "Only report this oligo length (tsv, pretty)")
	fs.IntVar(&o.ignoreBest, "ignore-best", 0, "Disregard the N closest exclusivity sequences when reporting the minimum")
	fs.BoolVar(&o.header, "header", true, "Print a header row (tsv)")
	fs.BoolVar(&o.revComp, "revcomp", false, "Show sequences reverse complemented (pretty)")
	fs.BoolVar(&o.codon, "codon", false, "Space sequences in codons (pretty)")
	fs.BoolVar(&o.skipUnanalyzed, "skip-unanalyzed", false, "Omit skipped windows (pretty)")
}

func (o *outputFlags) validate() error {
	for _, f := range writers.Formats() {
		if f == o.format {
			if o.ignoreBest < 0 {
				return fmt.Errorf("--ignore-best must be >= 0 (got %d)", o.ignoreBest)
			}
			return nil
		}
	}
	return fmt.Errorf("unknown --format %q (want one of %v)", o.format, writers.Formats())
}

func (o *outputFlags) options() writers.Options {
	return writers.Options{
		Summary: writers.SummaryOptions{Length: o.length, IgnoreBest: o.ignoreBest, Header: o.header},
		Pretty: writers.PrettyOptions{
			Length:         o.length,
			ReverseComp:    o.revComp,
			CodonSpacing:   o.codon,
			IgnoreBest:     o.ignoreBest,
			SkipUnanalyzed: o.skipUnanalyzed,
		},
	}
}

// write renders res to --out. Errors are runtime errors; a closed stdout
// pipe is not an error.
func (o *outputFlags) write(stdout io.Writer, res *model.ScreeningResults) error {
	var (
		w       io.Writer = stdout
		closeFn func() error
	)
	if o.out != "" && o.out != "-" {
		f, err := os.Create(o.out)
		if err != nil {
			return runtimeErr(err)
		}
		w, closeFn = f, f.Close
	}
	bw := bufio.NewWriter(w)
	err := writers.Write(o.format, bw, res, o.options())
	if err == nil {
		err = bw.Flush()
	}
	if closeFn != nil {
		if cerr := closeFn(); err == nil {
			err = cerr
		}
	}
	if writers.IsBrokenPipe(err) {
		return nil
	}
	return runtimeErr(err)
}
