// Package metrics exposes screening throughput as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "oligoscreen"

// Recorder counts windows, lengths and worklist jobs. It satisfies
// screen.Observer and is safe for concurrent use.
type Recorder struct {
	reg       *prometheus.Registry
	positions *prometheus.CounterVec
	posTime   prometheus.Histogram
	lengths   prometheus.Counter
	lenTime   *prometheus.HistogramVec
	jobs      *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		positions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_total",
			Help:      "Windows screened, by outcome.",
		}, []string{"outcome"}),
		posTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "position_seconds",
			Help:      "Time to match and analyze one window.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		lengths: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lengths_total",
			Help:      "Oligo lengths fully screened.",
		}),
		lenTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "length_seconds",
			Help:      "Wall time per oligo length.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"length"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worklist_jobs_total",
			Help:      "Worklist jobs finished, by status.",
		}, []string{"status"}),
	}
	r.reg.MustRegister(r.positions, r.posTime, r.lengths, r.lenTime, r.jobs)
	return r
}

func (r *Recorder) ObservePosition(_ int, skipped bool, d time.Duration) {
	outcome := "analyzed"
	if skipped {
		outcome = "skipped"
	}
	r.positions.WithLabelValues(outcome).Inc()
	r.posTime.Observe(d.Seconds())
}

func (r *Recorder) ObserveLength(length, _ int, d time.Duration) {
	r.lengths.Inc()
	r.lenTime.WithLabelValues(strconv.Itoa(length)).Observe(d.Seconds())
}

// ObserveJob counts a finished worklist job; status is "ok", "failed" or
// "save_failed".
func (r *Recorder) ObserveJob(status string) {
	r.jobs.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done. The returned address
// is the bound one, useful with ":0".
func (r *Recorder) Serve(ctx context.Context, addr string) (string, <-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", r.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	done := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()
	return ln.Addr().String(), done, nil
}
