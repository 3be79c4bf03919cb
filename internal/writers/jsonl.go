package writers

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"

	"oligoscreen/internal/model"
)

// Buffered writers are pooled across streams; the encoder is rebuilt per
// stream since it binds to its writer.
var bwPool = sync.Pool{
	New: func() any {
		return bufio.NewWriterSize(io.Discard, 64<<10)
	},
}

// startJSONL runs one encoder goroutine for values of type T. The error
// channel yields exactly once after in is closed. Broken pipes are not
// errors.
func startJSONL[T any](out io.Writer, bufSize int, flushEach bool) (chan<- T, <-chan error) {
	if bufSize <= 0 {
		bufSize = 64
	}
	in := make(chan T, bufSize)
	done := make(chan error, 1)

	go func() {
		bw := bwPool.Get().(*bufio.Writer)
		bw.Reset(out)
		defer func() {
			bw.Reset(io.Discard)
			bwPool.Put(bw)
		}()
		enc := json.NewEncoder(bw)

		var err error
		for v := range in {
			if err != nil {
				continue // drain so senders never block
			}
			if err = enc.Encode(v); err == nil && flushEach {
				err = bw.Flush()
			}
		}
		if err == nil {
			err = bw.Flush()
		}
		if IsBrokenPipe(err) {
			err = nil
		}
		done <- err
	}()
	return in, done
}

// StartProgressWriter streams progress events as JSON lines, flushing
// after each so a watching process sees them immediately.
func StartProgressWriter(out io.Writer, bufSize int) (chan<- model.Progress, <-chan error) {
	return startJSONL[model.Progress](out, bufSize, true)
}

// PositionRecord is one line of the positions JSONL stream.
type PositionRecord struct {
	OligoLength int `json:"oligo_length"`
	model.PositionResult
}

// WritePositionsJSONL writes every position of res, ordered by length then
// position, one JSON object per line.
func WritePositionsJSONL(w io.Writer, res *model.ScreeningResults) error {
	in, done := startJSONL[PositionRecord](w, 0, false)
	for _, l := range res.Lengths() {
		for _, p := range res.ResultsByLength[l].Positions {
			in <- PositionRecord{OligoLength: l, PositionResult: p}
		}
	}
	close(in)
	return <-done
}
