package screen

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"oligoscreen/internal/consensus"
	"oligoscreen/internal/exclusivity"
	"oligoscreen/internal/model"
	"oligoscreen/internal/window"
)

// progressEvery bounds event volume on runs with many positions.
const progressEvery = 10

// Config controls one screening run.
type Config struct {
	Params      model.AnalysisParams
	Exclusivity *model.SequenceSet // nil disables differential scoring

	// Progress receives best-effort events; sends never block and the
	// channel is never closed by Run.
	Progress chan<- model.Progress

	Observer   Observer           // optional
	Log        logrus.FieldLogger // optional; debug-level per length
	NewMatcher MatcherFactory     // optional; defaults to PairwiseMatcher
}

// Workers resolves a configured thread count: n >= 1 is used as is,
// anything else means one worker per CPU.
func Workers(n int) int {
	if n >= 1 {
		return n
	}
	return runtime.NumCPU()
}

type sweep struct {
	cfg          Config
	tmpl         []byte
	refs         [][]byte
	excl         [][]byte
	exclNames    []string
	maxTarget    int
	workers      int
	totalLengths int
}

// Run screens template against refs for every length in
// [MinOligoLength, MaxOligoLength]. Lengths run one after another and the
// context is only consulted between them: on cancellation Run returns the
// lengths finished so far together with ctx.Err().
func Run(ctx context.Context, template model.Template, refs model.SequenceSet, cfg Config) (*model.ScreeningResults, error) {
	p := cfg.Params
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if template.Sequence == "" {
		return nil, fmt.Errorf("%w: empty template", model.ErrInvalidParams)
	}
	if err := refs.Validate(); err != nil {
		return nil, fmt.Errorf("references: %w", err)
	}
	if err := cfg.Exclusivity.Validate(); err != nil {
		return nil, fmt.Errorf("exclusivity: %w", err)
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	if cfg.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		cfg.Log = l
	}
	if cfg.NewMatcher == nil {
		cfg.NewMatcher = PairwiseMatcher
	}

	s := &sweep{
		cfg:          cfg,
		tmpl:         []byte(template.Sequence),
		refs:         refs.Bytes(),
		maxTarget:    refs.MaxLen(),
		workers:      Workers(p.Threads),
		totalLengths: p.TotalLengths(),
	}
	if cfg.Exclusivity != nil {
		s.excl = cfg.Exclusivity.Bytes()
		s.exclNames = cfg.Exclusivity.Names
		if n := cfg.Exclusivity.MaxLen(); n > s.maxTarget {
			s.maxTarget = n
		}
	}

	cfg.Log.WithFields(logrus.Fields{
		"template":    template.Name,
		"references":  refs.Len(),
		"exclusivity": cfg.Exclusivity.Len(),
		"lengths":     s.totalLengths,
		"workers":     s.workers,
	}).Debug("screening started")

	res := model.NewScreeningResults(p, template, refs.Len(), cfg.Exclusivity)
	for idx, length := 0, p.MinOligoLength; length <= p.MaxOligoLength; idx, length = idx+1, length+1 {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.ResultsByLength[length] = s.length(idx, length)
	}
	return res, nil
}

// length evaluates every position of one oligo length in parallel. At most
// s.workers positions run at once and each takes a matcher from a free list
// while it runs, so no more than s.workers matchers are ever built and none
// is shared between goroutines.
func (s *sweep) length(idx, length int) model.LengthResult {
	start := time.Now()
	positions, _ := window.Positions(len(s.tmpl), length, s.cfg.Params.Resolution)
	total := len(positions)

	workers := min(s.workers, total)
	free := make(chan Matcher, workers)
	out := make([]model.PositionResult, total)
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(workers)
	for i, pos := range positions {
		g.Go(func() error {
			var m Matcher
			select {
			case m = <-free:
			default:
			}
			matcher := func() Matcher {
				if m == nil {
					m = s.cfg.NewMatcher(length, s.maxTarget, s.cfg.Params.Pairwise)
				}
				return m
			}

			t0 := time.Now()
			pr := s.position(matcher, length, pos)
			if m != nil {
				free <- m
			}
			s.cfg.Observer.ObservePosition(length, pr.Analysis.Skipped, time.Since(t0))
			out[i] = pr

			if n := int(done.Add(1)); n%progressEvery == 0 || n == total {
				s.emit(model.Progress{
					CurrentLength:    length,
					CurrentPosition:  pos,
					TotalPositions:   total,
					LengthsCompleted: idx,
					TotalLengths:     s.totalLengths,
					Message:          fmt.Sprintf("Length %d/%d: Position %d/%d", idx+1, s.totalLengths, n, total),
				})
			}
			return nil
		})
	}
	// Position tasks never fail; Wait is the barrier.
	_ = g.Wait()

	elapsed := time.Since(start)
	s.cfg.Observer.ObserveLength(length, total, elapsed)
	s.cfg.Log.WithFields(logrus.Fields{
		"length":    length,
		"positions": total,
		"elapsed":   elapsed.Round(time.Millisecond),
	}).Debug("length screened")

	return model.LengthResult{OligoLength: length, Positions: out}
}

// position aligns one window against the references and, when configured,
// the exclusivity set. The matcher is only built once a window needs it.
func (s *sweep) position(matcher func() Matcher, length, pos int) model.PositionResult {
	p := s.cfg.Params
	totalRefs := len(s.refs)

	oligo, ok := window.Slice(s.tmpl, pos, length)
	if !ok {
		return model.PositionResult{
			Position: pos,
			Analysis: consensus.Skipped(totalRefs, 0, consensus.SkipShortTemplate),
		}
	}

	m := matcher()
	matches, noMatch := m.CollectMatches(oligo, s.refs)

	var a model.WindowAnalysisResult
	if len(matches) == 0 {
		a = consensus.Skipped(totalRefs, noMatch, consensus.SkipNoMatches)
	} else {
		a = consensus.Analyze(matches, p.Method, p.ExcludeN, p.CoverageThreshold)
		consensus.Rescale(&a, totalRefs, p.CoverageThreshold)
	}
	pr := model.PositionResult{
		Position:       pos,
		VariantsNeeded: a.VariantsForThreshold,
		Analysis:       a,
	}
	if s.cfg.Exclusivity != nil {
		e := exclusivity.Score(m.CollectMismatchCounts(oligo, s.excl), s.exclNames)
		pr.Exclusivity = &e
	}
	return pr
}

func (s *sweep) emit(ev model.Progress) {
	if s.cfg.Progress == nil {
		return
	}
	select {
	case s.cfg.Progress <- ev:
	default:
	}
}
