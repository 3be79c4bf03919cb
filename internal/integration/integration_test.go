package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"oligoscreen/internal/app"
	"oligoscreen/internal/model"
)

const (
	template = ">tmpl\nTATGGTACGTCATGTTCTAGAAATGGGCTGT\n"
	refs     = ">same\nTATGGTACGTCATGTTCTAGAAATGGGCTGT\n" +
		">sub\nTATGGTACGTCATGATCTAGAAATGGGCTGT\n" +
		">flank\nGGGGGTATGGTACGTCATGTTCTAGAAATGGGCTGTCCCCC\n"
	offTarget = ">off1\nTATGGTACCTCATGTTCTAGTAATGGGCTGT\n>off2\nAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA\n"
)

func write(t *testing.T, dir, name, data string) string {
	t.Helper()
	fn := filepath.Join(dir, name)
	if err := os.WriteFile(fn, []byte(data), 0o644); err != nil {
		t.Fatalf("write %s: %v", fn, err)
	}
	return fn
}

type fixture struct {
	dir, tmpl, refs, excl string
}

func newFixture(t *testing.T) fixture {
	dir := t.TempDir()
	return fixture{
		dir:  dir,
		tmpl: write(t, dir, "template.fa", template),
		refs: write(t, dir, "refs.fa", refs),
		excl: write(t, dir, "off.fa", offTarget),
	}
}

func run(t *testing.T, argv ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errBuf bytes.Buffer
	code = app.Run(argv, &out, &errBuf)
	return code, out.String(), errBuf.String()
}

func TestScreenJSON(t *testing.T) {
	f := newFixture(t)
	code, out, errOut := run(t, "screen", "-q", "-t", f.tmpl, "-r", f.refs, "-e", f.excl,
		"--min-length", "10", "--max-length", "12", "--method", "fixed", "--max-ambiguities", "1")
	if code != 0 {
		t.Fatalf("exit %d, err=%s", code, errOut)
	}
	var res model.ScreeningResults
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if got := res.Lengths(); len(got) != 3 || got[0] != 10 || got[2] != 12 {
		t.Fatalf("lengths %v", got)
	}
	if !res.DifferentialEnabled || res.TotalSequences != 3 || res.TemplateName != "tmpl" {
		t.Fatalf("header %+v", res)
	}
	if m, ok := res.Params.Method.(model.FixedAmbiguities); !ok || m.Max != 1 {
		t.Fatalf("method %#v", res.Params.Method)
	}
	p := res.ResultsByLength[10].Positions[0]
	if p.Exclusivity == nil || p.Exclusivity.TotalSequences != 2 {
		t.Fatalf("exclusivity %+v", p.Exclusivity)
	}
	if len(res.ResultsByLength[10].Positions) != 21 {
		t.Fatalf("positions at length 10 = %d", len(res.ResultsByLength[10].Positions))
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	f := newFixture(t)
	screen := func(threads string) string {
		code, out, errOut := run(t, "screen", "-q", "-t", f.tmpl, "-r", f.refs, "-e", f.excl,
			"--min-length", "8", "--max-length", "14", "--threads", threads, "-f", "tsv")
		if code != 0 {
			t.Fatalf("exit %d err %s", code, errOut)
		}
		return out
	}
	serial, parallel := screen("1"), screen("4")
	if serial != parallel {
		t.Fatalf("parallel output differs from serial\nserial:\n%s\nparallel:\n%s", serial, parallel)
	}
}

func TestConfigFileAndEnv(t *testing.T) {
	f := newFixture(t)
	cfg := write(t, f.dir, "screen.yaml", "min-length: 15\nmax-length: 16\n")
	t.Setenv("OLIGOSCREEN_COVERAGE", "60")
	code, out, errOut := run(t, "screen", "-q", "--config", cfg, "-t", f.tmpl, "-r", f.refs)
	if code != 0 {
		t.Fatalf("exit %d err %s", code, errOut)
	}
	var res model.ScreeningResults
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Params.MinOligoLength != 15 || res.Params.MaxOligoLength != 16 || res.Params.CoverageThreshold != 60 {
		t.Fatalf("params %+v", res.Params)
	}
}

func TestStoreSummaryRethreshold(t *testing.T) {
	f := newFixture(t)
	storeDir := filepath.Join(f.dir, "runs")
	code, _, errOut := run(t, "screen", "-q", "-t", f.tmpl, "-r", f.refs,
		"--min-length", "10", "--max-length", "10", "--store", storeDir, "--out", filepath.Join(f.dir, "out.json"))
	if code != 0 {
		t.Fatalf("screen exit %d err %s", code, errOut)
	}

	code, out, errOut := run(t, "runs", "list", "--store", storeDir)
	if code != 0 || !strings.HasPrefix(out, "template.fa.json\ttmpl\t") {
		t.Fatalf("runs list exit %d out %q err %s", code, out, errOut)
	}

	code, out, errOut = run(t, "summary", "--store", storeDir, "--in", "template.fa.json")
	if code != 0 {
		t.Fatalf("summary exit %d err %s", code, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 22 || !strings.HasPrefix(lines[0], "length\tposition\t") {
		t.Fatalf("summary has %d lines:\n%s", len(lines), out)
	}

	code, out, errOut = run(t, "summary", "--in", filepath.Join(f.dir, "out.json"), "--pretty", "--codon")
	if code != 0 || !strings.Contains(out, "# Position 1 | oligo length 10 bp") {
		t.Fatalf("pretty exit %d err %s out:\n%s", code, errOut, out)
	}

	code, out, errOut = run(t, "rethreshold", "--in", filepath.Join(f.dir, "out.json"), "--coverage", "50")
	if code != 0 {
		t.Fatalf("rethreshold exit %d err %s", code, errOut)
	}
	var res model.ScreeningResults
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatal(err)
	}
	if res.Params.CoverageThreshold != 50 {
		t.Fatalf("threshold %v", res.Params.CoverageThreshold)
	}
	for _, p := range res.ResultsByLength[10].Positions {
		if !p.Analysis.Skipped && p.VariantsNeeded != 1 {
			t.Fatalf("position %d needs %d variants at 50%%", p.Position, p.VariantsNeeded)
		}
	}

	if code, _, _ = run(t, "runs", "rm", "--store", storeDir, "template.fa.json"); code != 0 {
		t.Fatalf("runs rm exit %d", code)
	}
	if code, _, _ = run(t, "summary", "--store", storeDir, "--in", "template.fa.json"); code != 2 {
		t.Fatalf("summary of deleted run exit %d", code)
	}
}

func TestWorklist(t *testing.T) {
	f := newFixture(t)
	jobs := write(t, f.dir, "jobs.yaml", `min-length: 10
max-length: 11
jobs:
  - template: template.fa
    references: [refs.fa]
  - template: template.fa
    references: [refs.fa]
    exclusivity: [off.fa]
    method: incremental
    target-pct: 90
`)
	storeDir := filepath.Join(f.dir, "saved")

	code, out, errOut := run(t, "worklist", "list", jobs)
	if code != 0 || !strings.HasPrefix(out, "# 2 jobs") {
		t.Fatalf("list exit %d out %q err %s", code, out, errOut)
	}

	code, out, errOut = run(t, "worklist", "run", "-q", "--store", storeDir, "--threads", "2", jobs)
	if code != 0 {
		t.Fatalf("run exit %d err %s", code, errOut)
	}
	want := "1\ttemplate.fa\tok\ttemplate.fa_1.json\t\n2\ttemplate.fa\tok\ttemplate.fa_2.json\t\n"
	if out != want {
		t.Fatalf("run output\n got %q\nwant %q", out, want)
	}
	for _, name := range []string{"template.fa_1.json", "template.fa_2.json"} {
		if _, err := os.Stat(filepath.Join(storeDir, name)); err != nil {
			t.Fatalf("auto-save %s: %v", name, err)
		}
	}
}

func TestWorklistSkipAndSaveFailure(t *testing.T) {
	f := newFixture(t)
	jobs := write(t, f.dir, "jobs.yaml", `min-length: 10
max-length: 10
jobs:
  - template: template.fa
    references: [refs.fa]
  - template: template.fa
    references: [refs.fa]
  - template: template.fa
    references: [refs.fa]
`)
	storeDir := filepath.Join(f.dir, "saved")
	// a directory where the last job's run file belongs makes its save fail
	if err := os.MkdirAll(filepath.Join(storeDir, "template.fa_3.json", "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	code, out, errOut := run(t, "worklist", "run", "--store", storeDir, "--skip", "1", "--skip", "9", jobs)
	if code != app.ExitRuntime {
		t.Fatalf("exit %d, want %d; err %s", code, app.ExitRuntime, errOut)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("run output %q", out)
	}
	if lines[0] != "2\ttemplate.fa\tok\ttemplate.fa_2.json\t" {
		t.Fatalf("job 2 line %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "3\ttemplate.fa\tsave_failed\ttemplate.fa_3.json\tauto-save failed") {
		t.Fatalf("job 3 line %q", lines[1])
	}
	if _, err := os.Stat(filepath.Join(storeDir, "template.fa_1.json")); !os.IsNotExist(err) {
		t.Fatalf("skipped job was saved: %v", err)
	}
	for _, w := range []string{"WARN: --skip 9: no such job", "WARN: last auto-save: auto-save failed"} {
		if !strings.Contains(errOut, w) {
			t.Fatalf("stderr lacks %q:\n%s", w, errOut)
		}
	}
}

func TestUsageErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		argv []string
	}{
		{"missing template", []string{"screen", "-r", f.refs}},
		{"unknown method", []string{"screen", "-t", f.tmpl, "-r", f.refs, "--method", "greedy"}},
		{"inverted lengths", []string{"screen", "-t", f.tmpl, "-r", f.refs, "--min-length", "20", "--max-length", "10"}},
		{"unknown format", []string{"screen", "-t", f.tmpl, "-r", f.refs, "-f", "xml"}},
		{"missing file", []string{"screen", "-t", filepath.Join(f.dir, "nope.fa"), "-r", f.refs}},
		{"template with IUPAC", []string{"screen", "-t", write(t, f.dir, "bad.fa", ">b\nACGNACGT\n"), "-r", f.refs}},
		{"unknown flag", []string{"screen", "--frobnicate"}},
		{"unknown command", []string{"frobnicate"}},
		{"bad coverage", []string{"rethreshold", "--in", f.refs, "--coverage", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code, _, errOut := run(t, tt.argv...); code != 2 {
				t.Fatalf("exit %d, want 2 (stderr %q)", code, errOut)
			}
		})
	}
}

func TestVersionAndHelp(t *testing.T) {
	if code, out, _ := run(t, "version"); code != 0 || !strings.HasPrefix(out, "oligoscreen version ") {
		t.Fatalf("version exit %d out %q", code, out)
	}
	if code, out, _ := run(t); code != 0 || !strings.Contains(out, "Available Commands") {
		t.Fatalf("help exit %d out %q", code, out)
	}
}

func TestCancelledRunExits130(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out, errBuf bytes.Buffer
	code := app.RunContext(ctx, []string{"screen", "-q", "-t", f.tmpl, "-r", f.refs}, &out, &errBuf)
	if code != 130 {
		t.Fatalf("exit %d, want 130 (stderr %q)", code, errBuf.String())
	}
}
