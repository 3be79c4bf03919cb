package writers

import (
	"fmt"
	"io"
	"sort"

	"oligoscreen/internal/model"
)

// Options carries the per-format knobs; each format reads its own part.
type Options struct {
	Summary SummaryOptions
	Pretty  PrettyOptions
}

// WriteFunc renders a finished run.
type WriteFunc func(w io.Writer, res *model.ScreeningResults, opt Options) error

var formats = map[string]WriteFunc{}

// Register adds or replaces a format; last registration wins.
func Register(name string, fn WriteFunc) { formats[name] = fn }

func init() {
	Register("json", func(w io.Writer, res *model.ScreeningResults, _ Options) error { return WriteJSON(w, res) })
	Register("jsonl", func(w io.Writer, res *model.ScreeningResults, _ Options) error { return WritePositionsJSONL(w, res) })
	Register("tsv", func(w io.Writer, res *model.ScreeningResults, o Options) error { return WriteSummary(w, res, o.Summary) })
	Register("pretty", func(w io.Writer, res *model.ScreeningResults, o Options) error { return WritePretty(w, res, o.Pretty) })
}

// Write dispatches to the named format.
func Write(format string, w io.Writer, res *model.ScreeningResults, opt Options) error {
	fn, ok := formats[format]
	if !ok {
		return fmt.Errorf("unknown output format %q (want one of %v)", format, Formats())
	}
	return fn(w, res, opt)
}

// Formats lists the registered format names, sorted.
func Formats() []string {
	out := make([]string, 0, len(formats))
	for k := range formats {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
