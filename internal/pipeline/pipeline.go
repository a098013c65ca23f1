// Package pipeline drives the four stages of a run, recording each stage's
// outcome counts to the results store and a prometheus textfile.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repsim/internal/config"
	"repsim/internal/elections"
	"repsim/internal/logging"
	"repsim/internal/metrics"
	"repsim/internal/naming"
	"repsim/internal/profiles"
	"repsim/internal/settings"
	"repsim/internal/store"
	"repsim/internal/summary"
)

// ErrUnknownStage is returned for a stage name outside Stages.
var ErrUnknownStage = errors.New("unknown stage")

// Stages lists the stage names in execution order.
var Stages = []string{settings.Stage, profiles.Stage, elections.Stage, summary.Stage}

// Recorder persists stage runs and summaries. *store.SqlStore implements it.
type Recorder interface {
	StartStageRun(run, stage string) (string, error)
	FinishStageRun(id string, ok, failed, skipped int, stageErr error) error
	SaveSummary(run string, res *summary.Result) error
}

// StageFunc runs one stage against cfg, counting task outcomes on rec.
type StageFunc func(ctx context.Context, cfg *config.Config, rec *metrics.Stage) error

// Report describes one completed stage execution.
type Report struct {
	ID          string          `json:"id"`
	Stage       string          `json:"stage"`
	Counts      metrics.Counts  `json:"counts"`
	Duration    time.Duration   `json:"duration_ns"`
	MetricsPath string          `json:"metrics_path"`
	Summary     *summary.Result `json:"-"`
}

// Runner executes stages for one configuration.
type Runner struct {
	Config *config.Config
	Store  Recorder

	funcs map[string]StageFunc
}

// New returns a Runner wired to the real stage implementations.
func New(cfg *config.Config, rec Recorder) *Runner {
	return &Runner{
		Config: cfg,
		Store:  rec,
		funcs: map[string]StageFunc{
			settings.Stage:  settings.Run,
			profiles.Stage:  profiles.Run,
			elections.Stage: elections.Run,
		},
	}
}

// OpenStore opens the results store for cfg's run.
func OpenStore(cfg *config.Config) (*store.SqlStore, error) {
	return store.Open(naming.New(cfg.OutputRoot, cfg.RunName).StorePath())
}

// Override replaces a stage implementation. Summarize cannot be overridden.
func (r *Runner) Override(stage string, fn StageFunc) {
	r.funcs[stage] = fn
}

// RunStage executes one stage. The returned error is the stage's fatal
// error; per-task failures only show up in the report counts.
func (r *Runner) RunStage(ctx context.Context, stage string) (*Report, error) {
	cfg := r.Config
	logger := logging.ForStage(stage, cfg.RunName)
	scheme := naming.New(cfg.OutputRoot, cfg.RunName)

	fn, ok := r.funcs[stage]
	if !ok && stage != summary.Stage {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}

	id, err := r.Store.StartStageRun(cfg.RunName, stage)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stage, err)
	}

	rec := metrics.NewStage(stage, cfg.RunName)
	rep := &Report{ID: id, Stage: stage, MetricsPath: scheme.MetricsPath(stage)}

	var stageErr error
	if stage == summary.Stage {
		rep.Summary, stageErr = summary.Run(ctx, cfg, rec)
		if stageErr == nil {
			stageErr = r.Store.SaveSummary(cfg.RunName, rep.Summary)
		}
	} else {
		stageErr = fn(ctx, cfg, rec)
	}

	rep.Duration = rec.Finish()
	rep.Counts = rec.Counts()
	if err := rec.WriteTextfile(rep.MetricsPath); err != nil {
		logger.Warn("metrics textfile not written", "resource", rep.MetricsPath, "error", err)
	}
	if err := r.Store.FinishStageRun(id, rep.Counts.OK, rep.Counts.Failed, rep.Counts.Skipped, stageErr); err != nil {
		logger.Warn("stage run not recorded", "id", id, "error", err)
	}

	if stageErr != nil {
		logger.Error("stage failed", "id", id, "error", stageErr)
		return rep, stageErr
	}
	logger.Info("stage complete", "id", id, "ok", rep.Counts.OK, "failed", rep.Counts.Failed,
		"skipped", rep.Counts.Skipped, "duration", rep.Duration)
	return rep, nil
}

// RunAll executes every stage in order, stopping at the first fatal error.
func (r *Runner) RunAll(ctx context.Context) ([]*Report, error) {
	var reports []*Report
	for _, stage := range Stages {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		rep, err := r.RunStage(ctx, stage)
		if rep != nil {
			reports = append(reports, rep)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// Known reports whether stage names a pipeline stage.
func Known(stage string) bool {
	for _, s := range Stages {
		if s == stage {
			return true
		}
	}
	return false
}
