package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MethodKind names a clustering policy on the wire and on the command line.
type MethodKind string

const (
	KindNoAmbiguities    MethodKind = "no_ambiguities"
	KindFixedAmbiguities MethodKind = "fixed_ambiguities"
	KindIncremental      MethodKind = "incremental"
)

// Method selects how matched windows are clustered into variants. The set of
// implementations is closed: NoAmbiguities, FixedAmbiguities, Incremental.
type Method interface {
	Kind() MethodKind
	String() string
	method()
}

// NoAmbiguities groups matched windows by exact sequence.
type NoAmbiguities struct{}

// FixedAmbiguities lets a variant absorb sequences as long as it keeps at
// most Max degenerate positions.
type FixedAmbiguities struct {
	Max int
}

// Incremental grows each variant until it covers TargetPct percent of the
// sequences not yet assigned. MaxAmbiguities bounds the degenerate positions
// per variant; nil means unbounded.
type Incremental struct {
	TargetPct      int
	MaxAmbiguities *int
}

func (NoAmbiguities) Kind() MethodKind    { return KindNoAmbiguities }
func (FixedAmbiguities) Kind() MethodKind { return KindFixedAmbiguities }
func (Incremental) Kind() MethodKind      { return KindIncremental }

func (NoAmbiguities) method()    {}
func (FixedAmbiguities) method() {}
func (Incremental) method()      {}

func (NoAmbiguities) String() string { return "no ambiguities" }

func (m FixedAmbiguities) String() string {
	return fmt.Sprintf("fixed ambiguities (max %d)", m.Max)
}

func (m Incremental) String() string {
	if m.MaxAmbiguities == nil {
		return fmt.Sprintf("incremental (%d%%)", m.TargetPct)
	}
	return fmt.Sprintf("incremental (%d%%, max %d ambiguities)", m.TargetPct, *m.MaxAmbiguities)
}

// ParseMethodKind accepts the wire names plus the short CLI forms
// "none", "fixed" and "incremental".
func ParseMethodKind(s string) (MethodKind, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "", "none", "no_ambiguities", "exact":
		return KindNoAmbiguities, nil
	case "fixed", "fixed_ambiguities":
		return KindFixedAmbiguities, nil
	case "incremental", "inc":
		return KindIncremental, nil
	}
	return "", fmt.Errorf("%w: unknown method %q (want none | fixed | incremental)", ErrInvalidParams, s)
}

// NewMethod builds a Method from its kind and the parameters that kind
// reads. maxAmbiguities < 0 leaves Incremental unbounded.
func NewMethod(kind MethodKind, maxAmbiguities, targetPct int) (Method, error) {
	switch kind {
	case KindNoAmbiguities:
		return NoAmbiguities{}, nil
	case KindFixedAmbiguities:
		return FixedAmbiguities{Max: maxAmbiguities}, nil
	case KindIncremental:
		m := Incremental{TargetPct: targetPct}
		if maxAmbiguities >= 0 {
			n := maxAmbiguities
			m.MaxAmbiguities = &n
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unknown method kind %q", ErrInvalidParams, kind)
}

type methodJSON struct {
	Kind           MethodKind `json:"kind"`
	MaxAmbiguities *int       `json:"max_ambiguities,omitempty"`
	TargetPct      *int       `json:"target_pct,omitempty"`
}

func encodeMethod(m Method) methodJSON {
	switch v := m.(type) {
	case FixedAmbiguities:
		n := v.Max
		return methodJSON{Kind: KindFixedAmbiguities, MaxAmbiguities: &n}
	case Incremental:
		pct := v.TargetPct
		out := methodJSON{Kind: KindIncremental, TargetPct: &pct}
		if v.MaxAmbiguities != nil {
			n := *v.MaxAmbiguities
			out.MaxAmbiguities = &n
		}
		return out
	default:
		return methodJSON{Kind: KindNoAmbiguities}
	}
}

func decodeMethod(raw methodJSON) (Method, error) {
	switch raw.Kind {
	case KindNoAmbiguities, "":
		return NoAmbiguities{}, nil
	case KindFixedAmbiguities:
		m := FixedAmbiguities{Max: 1}
		if raw.MaxAmbiguities != nil {
			m.Max = *raw.MaxAmbiguities
		}
		return m, nil
	case KindIncremental:
		m := Incremental{TargetPct: 50, MaxAmbiguities: raw.MaxAmbiguities}
		if raw.TargetPct != nil {
			m.TargetPct = *raw.TargetPct
		}
		return m, nil
	}
	return nil, fmt.Errorf("%w: unknown method kind %q", ErrInvalidParams, raw.Kind)
}

// MarshalJSON writes the method as a tagged object.
func (p AnalysisParams) MarshalJSON() ([]byte, error) {
	type plain AnalysisParams
	return json.Marshal(struct {
		plain
		Method methodJSON `json:"method"`
	}{plain: plain(p), Method: encodeMethod(p.Method)})
}

// UnmarshalJSON reads the tagged method object written by MarshalJSON.
func (p *AnalysisParams) UnmarshalJSON(b []byte) error {
	type plain AnalysisParams
	aux := struct {
		*plain
		Method methodJSON `json:"method"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m, err := decodeMethod(aux.Method)
	if err != nil {
		return err
	}
	p.Method = m
	return nil
}
