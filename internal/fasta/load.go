package fasta

import (
	"fmt"

	"oligoscreen/internal/iupac"
	"oligoscreen/internal/model"
)

// ReadTemplate loads the first record of path as the template. Only
// A, C, G and T are accepted.
func ReadTemplate(path string) (model.Template, error) {
	recs, err := ReadAll(path)
	if err != nil {
		return model.Template{}, err
	}
	r := recs[0]
	for i, c := range r.Seq {
		if !iupac.IsBase(c) {
			return model.Template{}, fmt.Errorf("%s: template %q has non-ACGT base %q at %d", path, r.ID, c, i+1)
		}
	}
	if len(r.Seq) == 0 {
		return model.Template{}, fmt.Errorf("%s: template %q: %w", path, r.ID, ErrEmpty)
	}
	return model.Template{Name: r.ID, Sequence: string(r.Seq)}, nil
}

// ReadSet loads every record of path. Alignment gap characters are
// dropped so pre-aligned inputs screen as the raw sequences.
func ReadSet(path string) (model.SequenceSet, error) {
	recs, err := ReadAll(path)
	if err != nil {
		return model.SequenceSet{}, err
	}
	var s model.SequenceSet
	for _, r := range recs {
		s.Add(r.ID, string(degap(r.Seq)))
	}
	return s, nil
}

// ReadSets concatenates the sets of several files in order.
func ReadSets(paths ...string) (model.SequenceSet, error) {
	var all model.SequenceSet
	for _, p := range paths {
		s, err := ReadSet(p)
		if err != nil {
			return model.SequenceSet{}, err
		}
		all.Append(s)
	}
	if all.Len() == 0 {
		return all, ErrEmpty
	}
	return all, nil
}

func degap(seq []byte) []byte {
	out := seq[:0]
	for _, c := range seq {
		if c != '-' && c != '.' {
			out = append(out, c)
		}
	}
	return out
}
