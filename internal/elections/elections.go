// Package elections tabulates every ballot profile and writes one winner set
// per (district count, winners, voter model).
package elections

import (
	"context"
	"fmt"
	"os"

	"repsim/internal/artifact"
	"repsim/internal/ballot"
	"repsim/internal/config"
	"repsim/internal/fanout"
	"repsim/internal/logging"
	"repsim/internal/metrics"
	"repsim/internal/naming"
	"repsim/internal/tabulate"
)

const Stage = "elections"

// WinnerSet is the on-disk winner-set document. Winners[i] was elected from
// ProfileFiles[i].
type WinnerSet struct {
	RunName            string     `json:"run_name"`
	VoterMode          string     `json:"voter_mode"`
	DistrictNum        int        `json:"district_num"`
	WinnersPerDistrict int        `json:"winners_per_district"`
	ProfileFiles       []string   `json:"profile_files"`
	Winners            [][]string `json:"winners"`
}

// Aligned reports whether every profile has exactly one winner list.
func (w *WinnerSet) Aligned() bool { return len(w.ProfileFiles) == len(w.Winners) }

// Load reads a winner set and rejects misaligned documents.
func Load(path string) (*WinnerSet, error) {
	var w WinnerSet
	if err := artifact.ReadJSON(path, &w); err != nil {
		return nil, fmt.Errorf("load winner set: %w", err)
	}
	if !w.Aligned() {
		return nil, fmt.Errorf("winner set %s: %d profiles but %d winner lists", path, len(w.ProfileFiles), len(w.Winners))
	}
	return &w, nil
}

// Elect tabulates one profile file.
func Elect(path string, seats int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, err := ballot.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	return tabulate.For(seats).Tabulate(p, seats)
}

// Build tabulates profiles on the worker pool. A profile whose tabulation
// fails is left out of both lists and reported in failed. If ctx ends before
// every profile is tabulated the partial lists are discarded and ctx's error
// is returned.
func Build(ctx context.Context, workers int, profiles []string, seats int) (files []string, winners [][]string, failed []fanout.Result[[]string], err error) {
	results := fanout.Run(ctx, workers, profiles, func(_ context.Context, path string) ([]string, error) {
		return Elect(path, seats)
	})
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	files = make([]string, 0, len(profiles))
	winners = make([][]string, 0, len(profiles))
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
			continue
		}
		files = append(files, profiles[r.Index])
		winners = append(winners, r.Value)
	}
	return files, winners, failed, nil
}

// Run writes a winner set for every district configuration and voter model.
// A missing profile directory is logged and skipped.
func Run(ctx context.Context, cfg *config.Config, rec *metrics.Stage) error {
	logger := logging.ForStage(Stage, cfg.RunName)
	scheme := naming.New(cfg.OutputRoot, cfg.RunName)

	for _, dc := range cfg.DistrictConfigs {
		for _, model := range cfg.VoterModels {
			if err := ctx.Err(); err != nil {
				return err
			}
			log := logger.With("district_num", dc.NumDistricts, "winners", dc.Winners, "voter_model", model)
			if err := artifact.EnsureDir(scheme.ResultsDir(model)); err != nil {
				return err
			}

			dir := scheme.ProfileDir(model, dc.NumDistricts)
			if !artifact.DirExists(dir) {
				log.Warn("profile directory missing", "resource", dir)
				continue
			}
			profiles, err := artifact.List(dir, "*.csv")
			if err != nil {
				return fmt.Errorf("elections: %w", err)
			}

			files, winners, failed, err := Build(ctx, cfg.Workers, profiles, dc.Winners)
			if err != nil {
				return err
			}
			for _, f := range failed {
				rec.Fail()
				log.Error("tabulation failed", "resource", profiles[f.Index], "error", f.Err)
			}
			rec.Observe(metrics.OK, len(files))

			out := scheme.WinnerSetPath(model, dc.NumDistricts, dc.Winners)
			ws := WinnerSet{
				RunName:            cfg.RunName,
				VoterMode:          model,
				DistrictNum:        dc.NumDistricts,
				WinnersPerDistrict: dc.Winners,
				ProfileFiles:       files,
				Winners:            winners,
			}
			if err := artifact.WriteJSON(out, ws); err != nil {
				return fmt.Errorf("elections: %w", err)
			}
			log.Info("winner set written", "resource", out, "profiles", len(files), "failed", len(failed),
				"method", dc.ElectionMethod())
		}
	}
	return nil
}
