package model

import "fmt"

// Template is the sequence oligo windows are cut from.
type Template struct {
	Name     string `json:"name"`
	Sequence string `json:"sequence"`
}

// SequenceSet is an ordered, name-correlated set of unaligned sequences.
// Order is the tie-break order for example names.
type SequenceSet struct {
	Names     []string `json:"names"`
	Sequences []string `json:"sequences"`
}

// Len returns the number of sequences.
func (s *SequenceSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Sequences)
}

// MaxLen returns the length of the longest sequence.
func (s *SequenceSet) MaxLen() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, q := range s.Sequences {
		if len(q) > n {
			n = len(q)
		}
	}
	return n
}

// Add appends one named sequence.
func (s *SequenceSet) Add(name, seq string) {
	s.Names = append(s.Names, name)
	s.Sequences = append(s.Sequences, seq)
}

// Append concatenates other onto s, keeping order.
func (s *SequenceSet) Append(other SequenceSet) {
	s.Names = append(s.Names, other.Names...)
	s.Sequences = append(s.Sequences, other.Sequences...)
}

// Validate checks that names and sequences line up.
func (s *SequenceSet) Validate() error {
	if s == nil {
		return nil
	}
	if len(s.Names) != len(s.Sequences) {
		return fmt.Errorf("%w: %d names for %d sequences", ErrInvalidParams, len(s.Names), len(s.Sequences))
	}
	return nil
}

// Bytes returns the sequences as byte slices for alignment.
func (s *SequenceSet) Bytes() [][]byte {
	if s == nil {
		return nil
	}
	out := make([][]byte, len(s.Sequences))
	for i, q := range s.Sequences {
		out[i] = []byte(q)
	}
	return out
}
