package consensus

import (
	"bytes"

	"oligoscreen/internal/iupac"
)

// pattern is a window as one IUPAC mask per column.
type pattern []byte

func toPattern(s string) pattern {
	p := make(pattern, len(s))
	for i := 0; i < len(s); i++ {
		p[i] = iupac.Mask(s[i])
	}
	return p
}

func (p pattern) String() string {
	b := make([]byte, len(p))
	for i, m := range p {
		c := iupac.Code(m)
		if c == 0 {
			c = 'N'
		}
		b[i] = c
	}
	return string(b)
}

func (p pattern) degenerate() int {
	n := 0
	for _, m := range p {
		if iupac.Degenerate(m) {
			n++
		}
	}
	return n
}

// union widens a by b column-wise. ok is false when the lengths differ or
// a gap column faces a base column.
func union(a, b pattern) (u pattern, ok bool) {
	if len(a) != len(b) {
		return nil, false
	}
	u = make(pattern, len(a))
	for i := range a {
		if (a[i] == iupac.Gap) != (b[i] == iupac.Gap) {
			return nil, false
		}
		u[i] = a[i] | b[i]
	}
	return u, true
}

// widensToN reports whether merging a and b turns a column into N that was
// not N on both sides.
func widensToN(a, b pattern) bool {
	for i := range a {
		if a[i]|b[i] == iupac.N && (a[i] != iupac.N || b[i] != iupac.N) {
			return true
		}
	}
	return false
}

// subsumes reports whether every column of s is contained in v.
func subsumes(v, s pattern) bool {
	if len(v) != len(s) {
		return false
	}
	for i := range v {
		if v[i]&s[i] != s[i] || (v[i] == iupac.Gap) != (s[i] == iupac.Gap) {
			return false
		}
	}
	return true
}

// mergeable is the compatibility rule shared by the ambiguity policies:
// the union must exist, stay within maxDegenerate (when >= 0) and, with
// excludeN, never create a new N column. Identical patterns always merge.
func mergeable(a, b pattern, maxDegenerate int, excludeN bool) (pattern, bool) {
	if bytes.Equal(a, b) {
		return a, true
	}
	u, ok := union(a, b)
	if !ok {
		return nil, false
	}
	if excludeN && widensToN(a, b) {
		return nil, false
	}
	if maxDegenerate >= 0 && u.degenerate() > maxDegenerate {
		return nil, false
	}
	return u, true
}
