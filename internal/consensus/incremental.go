package consensus

import (
	"sort"

	"oligoscreen/internal/model"
)

// group is one variant under construction by the incremental method.
type group struct {
	pat   pattern
	count int
}

// incremental clusters us one variant at a time over the sequences not yet
// assigned, then folds and re-clusters its own output until nothing moves.
// Every pass that changes the output merges at least two variants, so the
// loop ends within len(out) passes at a result that reproduces itself when
// fed back in. maxAmb < 0 leaves the width unbounded.
func incremental(us []unique, targetPct, maxAmb int, excludeN bool) []model.Variant {
	out := foldSubsumed(growVariants(us, targetPct, maxAmb, excludeN))
	for range len(out) {
		next := foldSubsumed(growVariants(groupUniques(out), targetPct, maxAmb, excludeN))
		if equalGroups(out, next) {
			break
		}
		out = next
	}
	vs := make([]model.Variant, len(out))
	for i, c := range out {
		vs[i] = model.Variant{Sequence: c.pat.String(), Count: c.count}
	}
	return vs
}

// growVariants is one greedy pass. Each variant starts from the most
// frequent remaining unique and widens until it covers targetPct of what
// remains, picking the candidate that adds the fewest degenerate columns
// (higher count, then earlier unique on ties). Uniques the widened variant
// already contains are taken for free.
func growVariants(us []unique, targetPct, maxAmb int, excludeN bool) []group {
	remaining := us
	var out []group
	for len(remaining) > 0 {
		total := 0
		for _, u := range remaining {
			total += u.count
		}
		target := (targetPct*total + 99) / 100

		taken := make([]bool, len(remaining))
		v := remaining[0].pat
		covered := remaining[0].count
		taken[0] = true
		absorbSubsumed := func() {
			for i, u := range remaining {
				if !taken[i] && subsumes(v, u.pat) {
					taken[i] = true
					covered += u.count
				}
			}
		}
		absorbSubsumed()

		for covered < target {
			best, bestAdd := -1, 0
			var bestPat pattern
			width := v.degenerate()
			for i, u := range remaining {
				if taken[i] {
					continue
				}
				w, ok := mergeable(v, u.pat, maxAmb, excludeN)
				if !ok {
					continue
				}
				add := w.degenerate() - width
				if best < 0 || add < bestAdd || (add == bestAdd && u.count > remaining[best].count) {
					best, bestAdd, bestPat = i, add, w
				}
			}
			if best < 0 {
				break
			}
			v = bestPat
			taken[best] = true
			covered += remaining[best].count
			absorbSubsumed()
		}

		out = append(out, group{pat: v, count: covered})
		next := make([]unique, 0, len(remaining))
		for i, u := range remaining {
			if !taken[i] {
				next = append(next, u)
			}
		}
		remaining = next
	}
	return out
}

// foldSubsumed merges every group another group contains into the
// first such container, in count order, and returns the survivors in
// count order. Identical patterns fold into one.
func foldSubsumed(cs []group) []group {
	sortGroups(cs)
	alive := make([]bool, len(cs))
	for i := range alive {
		alive[i] = true
	}
	for changed := true; changed; {
		changed = false
		for j := range cs {
			if !alive[j] {
				continue
			}
			for i := range cs {
				if i == j || !alive[i] || !subsumes(cs[i].pat, cs[j].pat) {
					continue
				}
				cs[i].count += cs[j].count
				alive[j] = false
				changed = true
				break
			}
		}
	}
	out := cs[:0:0]
	for i, c := range cs {
		if alive[i] {
			out = append(out, c)
		}
	}
	sortGroups(out)
	return out
}

// groupUniques presents groups as uniques, ordered the way uniques
// orders sequences.
func groupUniques(cs []group) []unique {
	us := make([]unique, len(cs))
	for i, c := range cs {
		us[i] = unique{seq: c.pat.String(), pat: c.pat, count: c.count}
	}
	sortUniques(us)
	return us
}

func sortGroups(cs []group) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].count != cs[j].count {
			return cs[i].count > cs[j].count
		}
		return cs[i].pat.String() < cs[j].pat.String()
	})
}

func equalGroups(a, b []group) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].count != b[i].count || a[i].pat.String() != b[i].pat.String() {
			return false
		}
	}
	return true
}
