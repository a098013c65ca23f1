package profiles

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"repsim/internal/artifact"
	"repsim/internal/ballot"
	"repsim/internal/config"
	"repsim/internal/metrics"
	"repsim/internal/naming"
	"repsim/internal/settings"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	doc := `{
  "run_name": "toy",
  "geodata_path": "units.csv",
  "population_column": "VAP",
  "pop_of_interest_column": "IVAP",
  "output_root": "` + filepath.Join(root, "outputs") + `",
  "num_voters": 50,
  "num_reps": 2,
  "workers": 2,
  "seed": 11,
  "voter_models": ["slate_pl", "cambridge"],
  "district_configs": [{"2": 1}],
  "turnout": {"A": 0.8, "B": 0.6},
  "focal_group": "A",
  "cohesion_parameters": {"A": {"A": 0.9, "B": 0.1}, "B": {"A": 0.2, "B": 0.8}},
  "slate_to_candidates": {"A": ["A1", "A2"], "B": ["B1"]}
}`
	t.Setenv(config.EnvOutputRoot, "")
	cfg, err := config.Load([]byte(doc), ".json")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func writeSettings(t *testing.T, cfg *config.Config, plan, district int) {
	t.Helper()
	a := settings.Artifact{
		NumVoters:         cfg.NumVoters,
		SlateToCandidates: cfg.SlateToCandidates,
		Cohesion:          cfg.Cohesion,
		Alphas:            cfg.Alphas,
		BlocProportions:   map[string]float64{"A": 0.3, "B": 0.7},
		TotalIVAP:         3,
		TotalVAP:          10,
	}
	path := naming.New(cfg.OutputRoot, cfg.RunName).SettingsPath(2, plan, district)
	if err := artifact.WriteJSON(path, a); err != nil {
		t.Fatal(err)
	}
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPlan_Order(t *testing.T) {
	cfg := testConfig(t)
	writeSettings(t, cfg, 2, 1)
	writeSettings(t, cfg, 0, 0)
	tasks, skipped, err := Plan(cfg, quiet())
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 0 || len(tasks) != 2*2*2 {
		t.Fatalf("got %d tasks, %d skipped", len(tasks), skipped)
	}
	s := naming.New(cfg.OutputRoot, cfg.RunName)
	var got []string
	for _, tk := range tasks[:4] {
		got = append(got, tk.Output)
	}
	want := []string{
		s.ProfilePath("slate_pl", 2, 0, 0, 0),
		s.ProfilePath("slate_pl", 2, 0, 0, 1),
		s.ProfilePath("cambridge", 2, 0, 0, 0),
		s.ProfilePath("cambridge", 2, 0, 0, 1),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestRun_WritesProfiles(t *testing.T) {
	cfg := testConfig(t)
	writeSettings(t, cfg, 0, 0)
	writeSettings(t, cfg, 0, 1)
	rec := metrics.NewStage(Stage, cfg.RunName)
	if err := Run(context.Background(), cfg, rec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := rec.Counts(); got.OK != 8 || got.Failed != 0 {
		t.Fatalf("counts = %+v", got)
	}
	s := naming.New(cfg.OutputRoot, cfg.RunName)
	f, err := os.Open(s.ProfilePath("slate_pl", 2, 0, 1, 1))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	p, err := ballot.ReadCSV(f)
	if err != nil {
		t.Fatal(err)
	}
	if p.TotalWeight() != 50 {
		t.Errorf("profile weight = %v, want 50", p.TotalWeight())
	}
}

func TestRun_Reproducible(t *testing.T) {
	cfg := testConfig(t)
	writeSettings(t, cfg, 0, 0)
	s := naming.New(cfg.OutputRoot, cfg.RunName)
	path := s.ProfilePath("cambridge", 2, 0, 0, 1)

	if err := Run(context.Background(), cfg, metrics.NewStage(Stage, cfg.RunName)); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Run(context.Background(), cfg, metrics.NewStage(Stage, cfg.RunName)); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Error("same seed produced different profiles")
	}
}

func TestRun_MissingSettingsDir(t *testing.T) {
	cfg := testConfig(t)
	rec := metrics.NewStage(Stage, cfg.RunName)
	if err := Run(context.Background(), cfg, rec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.Counts().Total() != 0 {
		t.Errorf("counts = %+v", rec.Counts())
	}
	s := naming.New(cfg.OutputRoot, cfg.RunName)
	for _, m := range cfg.VoterModels {
		if !artifact.DirExists(s.ProfileDir(m, 2)) {
			t.Errorf("profile dir for %s not created", m)
		}
	}
}

func TestRun_BadSettingsFailsTaskOnly(t *testing.T) {
	cfg := testConfig(t)
	writeSettings(t, cfg, 0, 0)
	bad := naming.New(cfg.OutputRoot, cfg.RunName).SettingsPath(2, 1, 0)
	if err := os.WriteFile(bad, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := metrics.NewStage(Stage, cfg.RunName)
	if err := Run(context.Background(), cfg, rec); err != nil {
		t.Fatal(err)
	}
	if got := rec.Counts(); got.OK != 4 || got.Failed != 4 {
		t.Errorf("counts = %+v, want 4 ok and 4 failed", got)
	}
}

func TestSeed_DistinctPerTask(t *testing.T) {
	id := naming.Identity{Plan: 1, District: 2, Replicate: naming.Unknown}
	seen := map[uint64]bool{}
	for _, m := range []string{"slate_pl", "slate_bt"} {
		for rep := 0; rep < 3; rep++ {
			seen[Seed(0, m, 4, id, rep)] = true
		}
	}
	if len(seen) != 6 {
		t.Errorf("got %d distinct seeds, want 6", len(seen))
	}
	if Seed(1, "slate_pl", 4, id, 0) == Seed(2, "slate_pl", 4, id, 0) {
		t.Error("run seed ignored")
	}
}
