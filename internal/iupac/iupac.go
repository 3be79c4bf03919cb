// internal/iupac/iupac.go
package iupac

/* -------------------------- IUPAC lookup tables ------------------------- */

// Mask bits: bit0=A bit1=C bit2=G bit3=T. Gap is kept outside the base bits
// so a gap column never unions with a base into a valid code.
const (
	A   byte = 1
	C   byte = 2
	G   byte = 4
	T   byte = 8
	N   byte = A | C | G | T
	Gap byte = 16
)

var (
	maskOf [256]byte
	codeOf [32]byte
)

func init() {
	set := func(c, bits byte) {
		maskOf[c] = bits
		maskOf[c+('a'-'A')] = bits
		codeOf[bits] = c
	}
	set('A', A)           // 0001
	set('C', C)           // 0010
	set('G', G)           // 0100
	set('T', T)           // 1000
	set('R', A|G)         // A/G
	set('Y', C|T)         // C/T
	set('S', C|G)         // C/G
	set('W', A|T)         // A/T
	set('K', G|T)         // G/T
	set('M', A|C)         // A/C
	set('B', C|G|T)       // C/G/T
	set('D', A|G|T)       // A/G/T
	set('H', A|C|T)       // A/C/T
	set('V', A|C|G)       // A/C/G
	set('N', N)           // any
	maskOf['-'] = Gap
	codeOf[Gap] = '-'
	maskOf['U'], maskOf['u'] = T, T
}

// Mask returns the base set of symbol c. Characters outside the IUPAC
// alphabet are treated as N.
func Mask(c byte) byte {
	if m := maskOf[c]; m != 0 {
		return m
	}
	return N
}

// Code returns the IUPAC symbol for a mask produced by Mask or by OR-ing
// base masks. A mask mixing Gap with bases has no code and yields 0.
func Code(m byte) byte {
	if int(m) >= len(codeOf) {
		return 0
	}
	return codeOf[m]
}

// Degenerate reports whether m stands for more than one base.
func Degenerate(m byte) bool {
	return m&N != 0 && m&(m-1) != 0
}

// IsBase reports whether c is one of A, C, G, T (upper case).
func IsBase(c byte) bool {
	return c == 'A' || c == 'C' || c == 'G' || c == 'T'
}

/* --------------------------- BaseMatch (FAST) --------------------------- */

// BaseMatch returns true if query base `q` can pair with target base `t`.
// A target base outside {A,C,G,T} (N, gaps, unknown) is a hard mismatch so
// N-blocks in references never look conserved.
func BaseMatch(t, q byte) bool {
	if !IsBase(t) {
		return false
	}
	return maskOf[q]&maskOf[t] != 0
}
