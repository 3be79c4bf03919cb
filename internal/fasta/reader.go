// Package fasta reads FASTA (optionally gzipped) into the template and
// sequence sets a screening run consumes.
package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
)

// ErrEmpty is returned when an input holds no FASTA record.
var ErrEmpty = errors.New("no FASTA records")

// Record is one parsed FASTA entry, sequence upper-cased with whitespace
// removed.
type Record struct {
	ID  string
	Seq []byte
}

// Scan parses r and calls emit for every record in order. A non-nil error
// from emit stops the scan and is returned unchanged.
func Scan(r io.Reader, emit func(Record) error) error {
	sc := bufio.NewScanner(r)
	const maxLine = 64 * 1024 * 1024 // single-line genomes
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		id      string
		started bool
		seq     []byte
	)
	flush := func() error {
		if !started {
			return nil
		}
		return emit(Record{ID: id, Seq: bytes.ToUpper(seq)})
	}

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			id, started, seq = parseHeaderID(line[1:]), true, nil
			continue
		}
		if line[0] == ';' {
			continue
		}
		if !started {
			return errors.New("fasta: sequence data before first header")
		}
		for _, c := range line {
			if c != ' ' && c != '\t' && c != '\r' {
				seq = append(seq, c)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("fasta scan: %w", err)
	}
	return flush()
}

func parseHeaderID(hdr []byte) string {
	hdr = bytes.TrimSpace(hdr)
	if i := bytes.IndexAny(hdr, " \t"); i >= 0 {
		return string(hdr[:i])
	}
	return string(hdr)
}

// ReadAll returns every record of path.
func ReadAll(path string) ([]Record, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var out []Record
	if err := Scan(rc, func(r Record) error {
		out = append(out, r)
		return nil
	}); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return out, nil
}
