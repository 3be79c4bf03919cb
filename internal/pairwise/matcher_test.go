package pairwise

import (
	"math/rand"
	"reflect"
	"testing"

	"oligoscreen/internal/model"
)

func defaultMatcher() *Matcher {
	return New(16, 32, model.DefaultPairwise())
}

func TestAlign(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		target      string
		wantMatched string
		wantMM      int
		wantStart   int
		wantEnd     int
	}{
		{"exact", "ACGT", "TTACGTTT", "ACGT", 0, 2, 6},
		{"substitution", "ACGTACGTAC", "GGACGTTCGTACGG", "ACGTTCGTAC", 1, 2, 12},
		{"one inserted target base", "ACGTACGTAC", "ACGTAGCGTAC", "ACGTACGTAC", 1, 0, 11},
		{"two inserted target bases", "ACGTACGTAC", "ACGTAGGCGTAC", "ACGTACGTAC", 2, 0, 12},
		{"deleted query base", "ACGTACGTAC", "TTACGTCGTACTT", "ACGT-CGTAC", 1, 2, 11},
		{"ambiguous target base", "ACGT", "ANGT", "ANGT", 1, 0, 4},
		{"empty target", "ACG", "", "---", 3, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := defaultMatcher().Align([]byte(tt.query), []byte(tt.target))
			if string(a.Matched) != tt.wantMatched || a.Mismatches != tt.wantMM {
				t.Fatalf("Align(%s,%s) = %q/%d, want %q/%d", tt.query, tt.target, a.Matched, a.Mismatches, tt.wantMatched, tt.wantMM)
			}
			if a.Start != tt.wantStart || a.End != tt.wantEnd {
				t.Fatalf("span [%d,%d), want [%d,%d)", a.Start, a.End, tt.wantStart, tt.wantEnd)
			}
			if len(a.Matched) != len(tt.query) {
				t.Fatalf("matched has %d columns for a %d-base query", len(a.Matched), len(tt.query))
			}
		})
	}
}

func TestMatchRejectsAboveLimit(t *testing.T) {
	sc := model.DefaultPairwise()
	sc.MaxMismatches = 0
	m := New(8, 8, sc)
	if _, mm, ok := m.Match([]byte("ACGT"), []byte("ACCT")); ok || mm != 1 {
		t.Fatalf("want rejection with 1 mismatch, got ok=%v mm=%d", ok, mm)
	}
	if got := m.MismatchCount([]byte("ACGT"), []byte("ACCT")); got != NoMatch {
		t.Fatalf("MismatchCount = %d, want NoMatch", got)
	}
	if got := m.MismatchCount([]byte("ACGT"), []byte("GACGTG")); got != 0 {
		t.Fatalf("MismatchCount = %d, want 0", got)
	}
}

func TestDegenerateQuery(t *testing.T) {
	m := defaultMatcher()
	s, mm, ok := m.Match([]byte("ACNT"), []byte("GGACTTGG"))
	if !ok || mm != 0 || s != "ACTT" {
		t.Fatalf("got %q/%d/%v", s, mm, ok)
	}
}

func TestScratchReuseAndGrowth(t *testing.T) {
	m := New(2, 2, model.DefaultPairwise())
	pairs := [][2]string{
		{"ACGTACGTAC", "TTACGTCGTACTT"},
		{"ACGT", "ACCT"},
		{"ACGTACGTACGTACGTACGT", "GGGGACGTACGTACCTACGTACGTGGGG"},
		{"ACGTACGTAC", "ACGTAGGCGTAC"},
	}
	for _, p := range pairs {
		fresh := New(len(p[0]), len(p[1]), model.DefaultPairwise())
		want := fresh.Align([]byte(p[0]), []byte(p[1]))
		wantMatched := string(want.Matched)
		got := m.Align([]byte(p[0]), []byte(p[1]))
		if string(got.Matched) != wantMatched || got.Mismatches != want.Mismatches || got.Score != want.Score {
			t.Fatalf("reused matcher on %v: %q/%d/%d, fresh %q/%d/%d",
				p, got.Matched, got.Mismatches, got.Score, wantMatched, want.Mismatches, want.Score)
		}
	}
}

func TestFastPathAgreesWithDP(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	bases := []byte("ACGT")
	randSeq := func(n int) []byte {
		b := make([]byte, n)
		for i := range b {
			b[i] = bases[rng.Intn(4)]
		}
		return b
	}
	fast := defaultMatcher()
	slow := defaultMatcher()
	slow.fast = false
	for i := 0; i < 200; i++ {
		target := randSeq(40)
		start := rng.Intn(30)
		query := append([]byte(nil), target[start:start+8]...)
		if i%3 == 0 {
			query[rng.Intn(len(query))] = bases[rng.Intn(4)]
		}
		a := fast.Align(query, target)
		b := slow.Align(query, target)
		if string(a.Matched) != string(b.Matched) || a.Mismatches != b.Mismatches || a.Score != b.Score || a.Start != b.Start {
			t.Fatalf("query %s target %s: fast %q/%d/%d@%d dp %q/%d/%d@%d", query, target,
				a.Matched, a.Mismatches, a.Score, a.Start, b.Matched, b.Mismatches, b.Score, b.Start)
		}
	}
}

func TestCollect(t *testing.T) {
	m := defaultMatcher()
	targets := [][]byte{
		[]byte("TTACGTACGTTT"),
		[]byte("GGGGGGGGGGGG"),
		[]byte("ACGAACGT"),
	}
	matches, noMatch := m.CollectMatches([]byte("ACGTACGT"), targets)
	if noMatch != 1 || !reflect.DeepEqual(matches, []string{"ACGTACGT", "ACGAACGT"}) {
		t.Fatalf("CollectMatches = %v,%d", matches, noMatch)
	}
	counts := m.CollectMismatchCounts([]byte("ACGTACGT"), targets)
	if !reflect.DeepEqual(counts, []int{0, NoMatch, 1}) {
		t.Fatalf("CollectMismatchCounts = %v", counts)
	}
}
