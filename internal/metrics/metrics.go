// Package metrics records per-stage task outcomes in a prometheus registry
// and writes them as a node-exporter textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Task outcomes.
const (
	OK      = "ok"
	Failed  = "failed"
	Skipped = "skipped"
)

// Counts is a snapshot of a stage's outcomes.
type Counts struct {
	OK      int
	Failed  int
	Skipped int
}

func (c Counts) Total() int { return c.OK + c.Failed + c.Skipped }

// Stage collects outcomes for one stage invocation. It is safe for
// concurrent use by fan-out workers.
type Stage struct {
	Name  string
	Run   string
	start time.Time

	registry *prometheus.Registry
	tasks    *prometheus.CounterVec
	duration prometheus.Gauge
	last     prometheus.Gauge

	ok, failed, skipped atomic.Int64
}

// NewStage starts the clock for stage of run.
func NewStage(stage, run string) *Stage {
	labels := prometheus.Labels{"run": run, "stage": stage}
	s := &Stage{
		Name:     stage,
		Run:      run,
		start:    time.Now(),
		registry: prometheus.NewRegistry(),
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "repsim",
			Name:        "stage_tasks_total",
			Help:        "Stage tasks by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "repsim",
			Name:        "stage_duration_seconds",
			Help:        "Wall time of the last stage invocation.",
			ConstLabels: labels,
		}),
		last: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "repsim",
			Name:        "stage_last_run_timestamp_seconds",
			Help:        "Unix time the stage finished.",
			ConstLabels: labels,
		}),
	}
	s.registry.MustRegister(s.tasks, s.duration, s.last)
	for _, o := range []string{OK, Failed, Skipped} {
		s.tasks.WithLabelValues(o)
	}
	return s
}

// Observe records n tasks with the given outcome.
func (s *Stage) Observe(outcome string, n int) {
	if n <= 0 {
		return
	}
	s.tasks.WithLabelValues(outcome).Add(float64(n))
	switch outcome {
	case OK:
		s.ok.Add(int64(n))
	case Failed:
		s.failed.Add(int64(n))
	case Skipped:
		s.skipped.Add(int64(n))
	}
}

func (s *Stage) Succeeded() { s.Observe(OK, 1) }
func (s *Stage) Fail()      { s.Observe(Failed, 1) }
func (s *Stage) Skip()      { s.Observe(Skipped, 1) }

// Counts returns the outcomes recorded so far.
func (s *Stage) Counts() Counts {
	return Counts{OK: int(s.ok.Load()), Failed: int(s.failed.Load()), Skipped: int(s.skipped.Load())}
}

// Started is when NewStage was called.
func (s *Stage) Started() time.Time { return s.start }

// Finish stops the clock and returns the elapsed time.
func (s *Stage) Finish() time.Duration {
	elapsed := time.Since(s.start)
	s.duration.Set(elapsed.Seconds())
	s.last.SetToCurrentTime()
	return elapsed
}

// Registry exposes the stage's collectors.
func (s *Stage) Registry() *prometheus.Registry { return s.registry }

// WriteTextfile writes the stage's metrics to path.
func (s *Stage) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
