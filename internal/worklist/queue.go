// Package worklist runs queued screening jobs one at a time and saves
// each finished run to a store.
package worklist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"oligoscreen/internal/model"
	"oligoscreen/internal/screen"
	"oligoscreen/internal/store"
)

// ErrBusy is returned by Process when the queue is already processing.
var ErrBusy = errors.New("worklist already processing")

// State of the queue.
type State int

const (
	Idle State = iota
	Processing
	StopRequested
)

func (s State) String() string {
	switch s {
	case Processing:
		return "processing"
	case StopRequested:
		return "stop requested"
	}
	return "idle"
}

// Runner screens one job with threads workers.
type Runner func(ctx context.Context, job Job, threads int) (*model.ScreeningResults, error)

// JobObserver is told how each job ended; metrics.Recorder satisfies it.
type JobObserver interface {
	ObserveJob(status string)
}

// Completed is a finished job. Err is set when screening failed; SaveErr
// when the results could not be auto-saved.
type Completed struct {
	Job     Job
	Results *model.ScreeningResults
	Key     string
	Err     error
	SaveErr error
}

// Options configures a Queue. Everything is optional.
type Options struct {
	Threads  int          // applied to each job when it starts; <= 0 means all CPUs
	Store    store.Store  // nil disables auto-save
	Log      logrus.FieldLogger
	Progress chan<- model.Progress
	Observer screen.Observer
	Jobs     JobObserver
	Run      Runner // defaults to screen.Run
}

// Queue holds pending jobs in insertion order. All methods are safe for
// concurrent use; only one Process runs at a time.
type Queue struct {
	mu        sync.Mutex
	opts      Options
	nextID    uint64
	pending   []Job
	running   uint64 // id of the job in flight, 0 when none
	state     State
	stopEarly bool // Stop arrived while idle
	completed []Completed
	saveErr   error
}

// New returns an empty queue.
func New(opts Options) *Queue {
	if opts.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Log = l
	}
	q := &Queue{opts: opts, nextID: 1}
	if q.opts.Run == nil {
		q.opts.Run = q.screen
	}
	return q
}

// Add queues job and returns its id. Ids start at 1 and are never reused.
func (q *Queue) Add(job Job) uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	job.ID = q.nextID
	q.nextID++
	q.pending = append(q.pending, job)
	return job.ID
}

// Remove drops a pending job. The running job cannot be removed.
func (q *Queue) Remove(id uint64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if id == q.running {
		return false
	}
	for i, j := range q.pending {
		if j.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns a copy of the jobs not yet finished, in run order.
func (q *Queue) Pending() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.pending...)
}

// Completed returns a copy of the finished jobs, oldest first.
func (q *Queue) Completed() []Completed {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Completed(nil), q.completed...)
}

// State reports whether the queue is idle, processing or stopping.
func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// LastSaveError is the most recent auto-save failure, cleared by the next
// successful save.
func (q *Queue) LastSaveError() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.saveErr
}

// Stop lets the running job finish and keeps the next one from starting.
// Called on an idle queue, it makes the next Process return before
// starting any job.
func (q *Queue) Stop() {
	q.mu.Lock()
	switch q.state {
	case Processing:
		q.state = StopRequested
	case Idle:
		q.stopEarly = true
	}
	q.mu.Unlock()
}

// Process runs pending jobs in order until the queue is empty, Stop is
// called, or ctx is cancelled. A failed job is recorded and the queue
// moves on; auto-save failures never stop it. On cancellation the
// interrupted job stays pending and ctx.Err() is returned.
func (q *Queue) Process(ctx context.Context) error {
	q.mu.Lock()
	if q.state != Idle {
		q.mu.Unlock()
		return ErrBusy
	}
	q.state = Processing
	if q.stopEarly {
		q.state, q.stopEarly = StopRequested, false
	}
	total := len(q.pending)
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.state = Idle
		q.running = 0
		q.mu.Unlock()
	}()

	q.opts.Log.WithField("jobs", total).Info("worklist started")
	for n := 1; ; n++ {
		q.mu.Lock()
		if q.state == StopRequested || len(q.pending) == 0 {
			stopped := q.state == StopRequested
			left := len(q.pending)
			q.mu.Unlock()
			if stopped {
				q.opts.Log.WithField("pending", left).Info("worklist stopped")
			}
			return nil
		}
		job := q.pending[0]
		q.running = job.ID
		threads := q.opts.Threads
		q.mu.Unlock()

		log := q.opts.Log.WithFields(logrus.Fields{"job": job.ID, "template": job.TemplateFile})
		log.Infof("job %d/%d started", n, total)
		res, err := q.opts.Run(ctx, job, threads)
		if err != nil && ctx.Err() != nil {
			q.mu.Lock()
			q.running = 0
			q.mu.Unlock()
			return ctx.Err()
		}

		done := Completed{Job: job, Results: res, Err: err}
		status := "ok"
		if err != nil {
			status = "failed"
			log.WithError(err).Error("job failed")
		} else if q.opts.Store != nil {
			done.Key = AutoSaveKey(job.TemplateFile, job.ID)
			if _, serr := q.opts.Store.Put(ctx, done.Key, res); serr != nil {
				done.SaveErr = fmt.Errorf("auto-save failed: %w", serr)
				status = "save_failed"
				log.WithError(serr).Warn("auto-save failed")
			} else {
				log.WithField("key", done.Key).Info("job saved")
			}
		}
		if q.opts.Jobs != nil {
			q.opts.Jobs.ObserveJob(status)
		}

		q.mu.Lock()
		for i, j := range q.pending {
			if j.ID == job.ID {
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				break
			}
		}
		q.running = 0
		q.completed = append(q.completed, done)
		if err == nil && q.opts.Store != nil {
			q.saveErr = done.SaveErr
		}
		q.mu.Unlock()
	}
}

func (q *Queue) screen(ctx context.Context, job Job, threads int) (*model.ScreeningResults, error) {
	p := job.Params
	p.Threads = threads
	return screen.Run(ctx, job.Template, job.References, screen.Config{
		Params:      p,
		Exclusivity: job.Exclusivity,
		Progress:    q.opts.Progress,
		Observer:    q.opts.Observer,
		Log:         q.opts.Log,
	})
}
