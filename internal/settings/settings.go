// Package settings derives per-district voter-model parameters from the
// subsampled plan trace and writes one settings artifact per (plan, district).
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"repsim/internal/artifact"
	"repsim/internal/bloc"
	"repsim/internal/config"
	"repsim/internal/logging"
	"repsim/internal/metrics"
	"repsim/internal/naming"
	"repsim/internal/population"
	"repsim/internal/trace"
)

// Stage is the stage name used in logs, metrics and the results store.
const Stage = "settings"

// Artifact is the on-disk settings document for one district.
type Artifact struct {
	NumVoters         int                           `json:"num_voters"`
	SlateToCandidates map[string][]string           `json:"slate_to_candidates"`
	Cohesion          map[string]map[string]float64 `json:"cohesion_parameters"`
	Alphas            map[string]map[string]float64 `json:"alphas"`
	BlocProportions   map[string]float64            `json:"bloc_proportions"`
	TotalIVAP         float64                       `json:"total_ivap"`
	TotalVAP          float64                       `json:"total_vap"`
}

// Load reads a settings artifact.
func Load(path string) (*Artifact, error) {
	var a Artifact
	if err := artifact.ReadJSON(path, &a); err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return &a, nil
}

// Derive builds the settings for one district from its population totals.
func Derive(cfg *config.Config, d bloc.DistrictTotals) Artifact {
	focal, other := cfg.FocalGroup, cfg.OtherBloc()
	adj := bloc.TurnoutAdjust(d.Proportion(), cfg.Turnout[focal], cfg.Turnout[other])
	return Artifact{
		NumVoters:         cfg.NumVoters,
		SlateToCandidates: cfg.SlateToCandidates,
		Cohesion:          cfg.Cohesion,
		Alphas:            cfg.Alphas,
		BlocProportions:   map[string]float64{focal: adj, other: 1 - adj},
		TotalIVAP:         d.Interest,
		TotalVAP:          d.Total,
	}
}

// TracePath returns the trace read for district count n, honoring trace_dir.
func TracePath(cfg *config.Config, n int) string {
	scheme := naming.New(cfg.OutputRoot, cfg.RunName)
	if cfg.TraceDir == "" {
		return scheme.TracePath(n)
	}
	return filepath.Join(cfg.TraceDir, filepath.Base(scheme.TracePath(n)))
}

// Run writes settings artifacts for every configured district count. A
// missing or malformed trace fails that district count only. Each written
// artifact counts as one task.
func Run(ctx context.Context, cfg *config.Config, rec *metrics.Stage) error {
	sub, err := trace.NewSubsampler(cfg.ChainLength, cfg.NumSubsamples)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}
	pop, err := population.LoadFile(cfg.GeodataPath, cfg.PopulationCol, cfg.InterestCol)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	logger := logging.ForStage(Stage, cfg.RunName)
	scheme := naming.New(cfg.OutputRoot, cfg.RunName)

	for _, n := range cfg.DistrictCounts() {
		if err := ctx.Err(); err != nil {
			return err
		}
		log := logger.With(slog.Int("district_num", n))
		dir := scheme.SettingsDir(n)
		if err := artifact.EnsureDir(dir); err != nil {
			return err
		}
		path := TracePath(cfg, n)

		written := 0
		stats, err := sub.SelectFile(ctx, path, pop.Units(), func(s trace.Sample) error {
			totals, err := bloc.SumByDistrict(s.Entry.Assignment, pop.Interest, pop.Total)
			if err != nil {
				return fmt.Errorf("plan %d: %w", s.Plan, err)
			}
			for _, d := range totals {
				out := scheme.SettingsPath(n, s.Plan, d.District)
				if err := artifact.WriteJSON(out, Derive(cfg, d)); err != nil {
					rec.Fail()
					log.Error("write settings failed", "resource", out, "error", err)
					continue
				}
				rec.Succeeded()
				written++
			}
			return nil
		})
		switch {
		case errors.Is(err, trace.ErrShortTrace):
			log.Warn("trace shorter than chain length", "resource", path,
				"read", stats.Read, "chain_length", cfg.ChainLength)
		case err != nil:
			rec.Fail()
			log.Error("trace failed", "resource", path, "error", err)
			continue
		}
		log.Info("settings written", "resource", dir, "plans", stats.Selected, "artifacts", written)
	}
	return nil
}
