// internal/pairwise/matcher.go
package pairwise

import (
	"bytes"
	"math"

	"oligoscreen/internal/iupac"
	"oligoscreen/internal/model"
)

// Scoring is the alignment scoring and acceptance policy.
type Scoring = model.PairwiseParams

// NoMatch marks a candidate whose best alignment exceeds MaxMismatches.
const NoMatch = -1

const negInf = math.MinInt32 / 4

// traceback state codes, packed two bits each per cell
const (
	stMatch byte = iota // query base against target base
	stDel               // query base against gap
	stIns               // target base against gap
)

// Alignment is the best fitted alignment of a query inside a target.
type Alignment struct {
	Score      int
	Mismatches int // substitutions + deleted query bases + inserted target bases
	Start, End int // aligned target span [Start, End)
	// Matched has one column per query base: the aligned target base, or
	// '-' where the query base faces a gap. It aliases Matcher scratch and
	// is only valid until the next call.
	Matched []byte
}

// Matcher aligns short queries against long targets with affine gaps.
// The query is aligned end to end while leading and trailing target bases
// are free. All DP scratch is allocated up front and reused across calls,
// so one Matcher serves one worker; it is not safe for concurrent use.
type Matcher struct {
	sc   Scoring
	fast bool

	maxQ, maxT int

	mPrev, mCur []int32
	dPrev, dCur []int32
	iPrev, iCur []int32
	tb          []byte // (maxQ+1)*(maxT+1) cells: M pred | D pred<<2 | I pred<<4
	col         []byte
}

// New returns a Matcher sized for queries up to maxQuery and targets up to
// maxTarget bases. Larger inputs still work; they grow the scratch once.
func New(maxQuery, maxTarget int, sc Scoring) *Matcher {
	m := &Matcher{
		sc:   sc,
		fast: sc.MatchScore > 0 && sc.MismatchScore < 0 && sc.GapOpenPenalty+sc.GapExtendPenalty < 0,
	}
	m.grow(maxQuery, maxTarget)
	return m
}

func (m *Matcher) grow(q, t int) {
	if q < 1 {
		q = 1
	}
	if t < 0 {
		t = 0
	}
	if q <= m.maxQ && t <= m.maxT && m.tb != nil {
		return
	}
	if q < m.maxQ {
		q = m.maxQ
	}
	if t < m.maxT {
		t = m.maxT
	}
	m.maxQ, m.maxT = q, t
	w := t + 1
	m.mPrev, m.mCur = make([]int32, w), make([]int32, w)
	m.dPrev, m.dCur = make([]int32, w), make([]int32, w)
	m.iPrev, m.iCur = make([]int32, w), make([]int32, w)
	m.tb = make([]byte, (q+1)*w)
	m.col = make([]byte, q)
}

func best3(a, b, c int32) (int32, byte) {
	v, from := a, stMatch
	if b > v {
		v, from = b, stDel
	}
	if c > v {
		v, from = c, stIns
	}
	return v, from
}

func plainBases(p []byte) bool {
	for _, c := range p {
		if !iupac.IsBase(c) {
			return false
		}
	}
	return true
}

// Align returns the best alignment of query inside target. Ties go to the
// leftmost target end, then to a match column over a deletion.
func (m *Matcher) Align(query, target []byte) Alignment {
	qn, tn := len(query), len(target)
	if qn == 0 {
		return Alignment{}
	}
	m.grow(qn, tn)

	// Exact-match fast path: a verbatim occurrence scores qn*match, which no
	// alignment with a penalty can reach, and bytes.Index finds the leftmost.
	if m.fast && plainBases(query) {
		if idx := bytes.Index(target, query); idx >= 0 {
			col := m.col[:qn]
			copy(col, query)
			return Alignment{Score: qn * m.sc.MatchScore, Start: idx, End: idx + qn, Matched: col}
		}
	}

	match, mis := int32(m.sc.MatchScore), int32(m.sc.MismatchScore)
	open := int32(m.sc.GapOpenPenalty + m.sc.GapExtendPenalty)
	ext := int32(m.sc.GapExtendPenalty)

	w := tn + 1
	mp, dp, ip := m.mPrev[:w], m.dPrev[:w], m.iPrev[:w]
	mc, dc, ic := m.mCur[:w], m.dCur[:w], m.iCur[:w]
	for j := 0; j < w; j++ {
		mp[j], dp[j], ip[j] = 0, negInf, negInf // free leading target
	}

	for i := 1; i <= qn; i++ {
		qb := query[i-1]
		row := m.tb[i*w : (i+1)*w]

		mc[0], ic[0] = negInf, negInf
		dv, dfrom := best3(mp[0]+open, dp[0]+ext, ip[0]+open)
		dc[0] = dv
		row[0] = dfrom << 2

		for j := 1; j < w; j++ {
			s := mis
			if iupac.BaseMatch(target[j-1], qb) {
				s = match
			}
			v, from := best3(mp[j-1], dp[j-1], ip[j-1])
			mc[j] = v + s
			dv, dfrom := best3(mp[j]+open, dp[j]+ext, ip[j]+open)
			dc[j] = dv
			iv, ifrom := best3(mc[j-1]+open, dc[j-1]+open, ic[j-1]+ext)
			ic[j] = iv
			row[j] = from | dfrom<<2 | ifrom<<4
		}
		mp, mc = mc, mp
		dp, dc = dc, dp
		ip, ic = ic, ip
	}

	// free trailing target: best end anywhere on the last row
	bestScore, bestJ, st := int32(negInf), 0, stMatch
	for j := 0; j < w; j++ {
		if mp[j] > bestScore {
			bestScore, bestJ, st = mp[j], j, stMatch
		}
		if dp[j] > bestScore {
			bestScore, bestJ, st = dp[j], j, stDel
		}
	}

	col := m.col[:qn]
	k, mm := qn, 0
	i, j := qn, bestJ
	for i > 0 {
		code := m.tb[i*w+j]
		switch st {
		case stMatch:
			tbase := target[j-1]
			k--
			col[k] = tbase
			if !iupac.BaseMatch(tbase, query[i-1]) {
				mm++
			}
			st = code & 3
			i--
			j--
		case stDel:
			k--
			col[k] = '-'
			mm++
			st = (code >> 2) & 3
			i--
		default:
			mm++
			st = (code >> 4) & 3
			j--
		}
	}
	return Alignment{Score: int(bestScore), Mismatches: mm, Start: j, End: bestJ, Matched: col}
}

// Match aligns query inside target and accepts the hit only when it has at
// most MaxMismatches mismatches.
func (m *Matcher) Match(query, target []byte) (matched string, mismatches int, ok bool) {
	a := m.Align(query, target)
	if a.Mismatches > m.sc.MaxMismatches {
		return "", a.Mismatches, false
	}
	return string(a.Matched), a.Mismatches, true
}

// MismatchCount returns the mismatches of the best alignment, or NoMatch
// when that exceeds MaxMismatches.
func (m *Matcher) MismatchCount(query, target []byte) int {
	a := m.Align(query, target)
	if a.Mismatches > m.sc.MaxMismatches {
		return NoMatch
	}
	return a.Mismatches
}
