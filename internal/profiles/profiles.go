// Package profiles fans settings artifacts out into ballot-profile artifacts:
// one per settings file, voter model and replicate.
package profiles

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math/rand/v2"
	"path/filepath"

	"repsim/internal/artifact"
	"repsim/internal/ballot"
	"repsim/internal/config"
	"repsim/internal/fanout"
	"repsim/internal/logging"
	"repsim/internal/metrics"
	"repsim/internal/naming"
	"repsim/internal/settings"
)

const Stage = "profiles"

// Task is one generator invocation.
type Task struct {
	N            int
	Model        string
	SettingsPath string
	Identity     naming.Identity
	Replicate    int
	Output       string
}

// Seed derives the generator seed for one task from the run seed, the
// model, the settings identity and the replicate.
func Seed(runSeed uint64, model string, n int, id naming.Identity, rep int) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], runSeed)
	h.Write(buf[:])
	h.Write([]byte(model))
	for _, v := range []int{n, int(id.Plan), int(id.District), rep} {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Plan lists every task for the configuration in deterministic order.
// Settings files whose names do not decode are returned as skipped.
func Plan(cfg *config.Config, log *slog.Logger) (tasks []Task, skipped int, err error) {
	scheme := naming.New(cfg.OutputRoot, cfg.RunName)
	for _, n := range cfg.DistrictCounts() {
		dir := scheme.SettingsDir(n)
		if !artifact.DirExists(dir) {
			log.Warn("settings directory missing", "resource", dir, "district_num", n)
			for _, m := range cfg.VoterModels {
				if err := artifact.EnsureDir(scheme.ProfileDir(m, n)); err != nil {
					return nil, skipped, err
				}
			}
			continue
		}
		files, err := artifact.List(dir, "*.json")
		if err != nil {
			return nil, skipped, err
		}
		for _, f := range files {
			id := scheme.Decode(f)
			if !id.Plan.Known() || !id.District.Known() {
				log.Warn("undecodable settings name", "resource", f, "district_num", n)
				skipped++
				continue
			}
			for _, m := range cfg.VoterModels {
				for rep := 0; rep < cfg.NumReps; rep++ {
					tasks = append(tasks, Task{
						N:            n,
						Model:        m,
						SettingsPath: f,
						Identity:     id,
						Replicate:    rep,
						Output:       scheme.ProfilePath(m, n, int(id.Plan), int(id.District), rep),
					})
				}
			}
		}
	}
	return tasks, skipped, nil
}

// Generate runs one task and writes its profile.
func Generate(ctx context.Context, cfg *config.Config, t Task) error {
	s, err := settings.Load(t.SettingsPath)
	if err != nil {
		return err
	}
	gen, err := ballot.Lookup(t.Model)
	if err != nil {
		return err
	}
	seed := Seed(cfg.Seed, t.Model, t.N, t.Identity, t.Replicate)
	rng := rand.New(rand.NewPCG(seed, cfg.Seed))
	p, err := gen.Generate(ctx, ballot.Config{
		NumVoters:       s.NumVoters,
		Slates:          s.SlateToCandidates,
		BlocProportions: s.BlocProportions,
		Cohesion:        s.Cohesion,
		Alphas:          s.Alphas,
	}, rng)
	if err != nil {
		return fmt.Errorf("generate %s: %w", filepath.Base(t.Output), err)
	}
	return artifact.Write(t.Output, func(w io.Writer) error { return p.WriteCSV(w) })
}

// Run executes every profile task on the worker pool. Task failures are
// logged and counted; they never stop the stage.
func Run(ctx context.Context, cfg *config.Config, rec *metrics.Stage) error {
	logger := logging.ForStage(Stage, cfg.RunName)
	tasks, skipped, err := Plan(cfg, logger)
	if err != nil {
		return fmt.Errorf("profiles: %w", err)
	}
	rec.Observe(metrics.Skipped, skipped)
	logger.Info("generating profiles", "tasks", len(tasks), "workers", cfg.Workers)

	results := fanout.Run(ctx, cfg.Workers, tasks, func(ctx context.Context, t Task) (struct{}, error) {
		return struct{}{}, Generate(ctx, cfg, t)
	})
	for _, r := range results {
		t := tasks[r.Index]
		if r.Err != nil {
			rec.Fail()
			logger.Error("profile task failed", "resource", t.SettingsPath, "district_num", t.N,
				"voter_model", t.Model, "replicate", t.Replicate, "error", r.Err)
			continue
		}
		rec.Succeeded()
	}
	ok, failed := fanout.Tally(results)
	logger.Info("profiles written", "ok", ok, "failed", failed)
	return ctx.Err()
}
