package consensus

import (
	"sort"

	"oligoscreen/internal/model"
)

type cluster struct {
	pat   pattern
	count int
	order int // creation order, the tie-break between equal counts
}

// fixed merges uniques greedily: each one joins the largest compatible
// cluster (earliest on ties) or opens a new one. A closing pass merges
// cluster pairs that became compatible, smaller into larger, until none are,
// so feeding the output back in reproduces it.
func fixed(us []unique, maxAmb int, excludeN bool) []model.Variant {
	if maxAmb < 0 {
		maxAmb = 0
	}
	var cs []*cluster
	for _, u := range us {
		pat := u.pat
		var (
			best   *cluster
			widest pattern
		)
		for _, c := range cs {
			w, ok := mergeable(c.pat, pat, maxAmb, excludeN)
			if !ok {
				continue
			}
			if best == nil || c.count > best.count {
				best, widest = c, w
			}
		}
		if best == nil {
			cs = append(cs, &cluster{pat: pat, count: u.count, order: len(cs)})
			continue
		}
		best.pat = widest
		best.count += u.count
	}

	for merged := true; merged; {
		merged = false
		sort.SliceStable(cs, func(i, j int) bool {
			if cs[i].count != cs[j].count {
				return cs[i].count > cs[j].count
			}
			return cs[i].order < cs[j].order
		})
	scan:
		for i := 0; i < len(cs); i++ {
			for j := i + 1; j < len(cs); j++ {
				w, ok := mergeable(cs[i].pat, cs[j].pat, maxAmb, excludeN)
				if !ok {
					continue
				}
				cs[i].pat = w
				cs[i].count += cs[j].count
				cs = append(cs[:j], cs[j+1:]...)
				merged = true
				break scan
			}
		}
	}

	out := make([]model.Variant, len(cs))
	for i, c := range cs {
		out[i] = model.Variant{Sequence: c.pat.String(), Count: c.count}
	}
	return out
}
