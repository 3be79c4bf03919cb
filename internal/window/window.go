// Package window derives the (length, position) grid a screening run sweeps
// and cuts the corresponding oligo out of the template.
package window

// Positions returns the start positions for oligos of length oligoLen on a
// template of templateLen bases: {0, step, 2*step, ...} up to
// templateLen-oligoLen, ascending. A step below 1 is treated as 1.
//
// When the template is shorter than the oligo the only position is 0 and
// degenerate is true; callers must not slice that window.
func Positions(templateLen, oligoLen, step int) (positions []int, degenerate bool) {
	if step < 1 {
		step = 1
	}
	maxStart := templateLen - oligoLen
	if maxStart < 0 || oligoLen <= 0 {
		return []int{0}, true
	}
	out := make([]int, 0, maxStart/step+1)
	for p := 0; p <= maxStart; p += step {
		out = append(out, p)
	}
	return out, false
}

// Slice returns template[pos:pos+length] without copying. ok is false when
// the window does not fit.
func Slice(template []byte, pos, length int) (oligo []byte, ok bool) {
	if pos < 0 || length <= 0 || pos+length > len(template) {
		return nil, false
	}
	return template[pos : pos+length], true
}
