package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"repsim/internal/artifact"
	"repsim/internal/config"
	"repsim/internal/elections"
	"repsim/internal/metrics"
	"repsim/internal/naming"
	"repsim/internal/profiles"
	"repsim/internal/settings"
	"repsim/internal/store"
	"repsim/internal/summary"
	"repsim/internal/trace"
)

func toyRun(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	geo := filepath.Join(root, "units.csv")
	require.NoError(t, os.WriteFile(geo, []byte("VAP,IVAP\n10,8\n10,2\n10,8\n10,2\n"), 0o644))
	doc := `{
  "run_name": "toy",
  "geodata_path": "` + geo + `",
  "population_column": "VAP",
  "pop_of_interest_column": "IVAP",
  "output_root": "` + filepath.Join(root, "outputs") + `",
  "chain_length": 4,
  "num_subsamples": 2,
  "num_voters": 40,
  "num_reps": 1,
  "workers": 2,
  "seed": 3,
  "voter_models": ["slate_pl"],
  "district_configs": [{"2": 1}],
  "turnout": {"A": 0.8, "B": 0.6},
  "focal_group": "A",
  "cohesion_parameters": {"A": {"A": 0.9, "B": 0.1}, "B": {"A": 0.2, "B": 0.8}},
  "slate_to_candidates": {"A": ["A1"], "B": ["B1"]}
}`
	t.Setenv(config.EnvOutputRoot, "")
	cfg, err := config.Load([]byte(doc), ".json")
	require.NoError(t, err)

	path := naming.New(cfg.OutputRoot, cfg.RunName).TracePath(2)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, trace.Write(f, []trace.Entry{
		{Assignment: []int{0, 0, 1, 1}, SampleIndex: 0},
		{Assignment: []int{0, 1, 1, 0}, SampleIndex: 1},
		{Assignment: []int{0, 1, 0, 1}, SampleIndex: 2},
		{Assignment: []int{1, 1, 0, 0}, SampleIndex: 3},
	}))
	return cfg
}

func openStore(t *testing.T, cfg *config.Config) *store.SqlStore {
	t.Helper()
	st, err := OpenStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRunAll_EndToEnd(t *testing.T) {
	cfg := toyRun(t)
	st := openStore(t, cfg)

	reports, err := New(cfg, st).RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, len(Stages))

	for i, rep := range reports {
		require.Equal(t, Stages[i], rep.Stage)
		require.Zero(t, rep.Counts.Failed, "stage %s", rep.Stage)
		require.FileExists(t, rep.MetricsPath)
	}
	require.Equal(t, 4, reports[0].Counts.OK, "two plans of two districts")
	require.Equal(t, 4, reports[1].Counts.OK)
	require.Equal(t, 4, reports[2].Counts.OK)

	res := reports[3].Summary
	require.NotNil(t, res)
	require.Len(t, res.Rows, 4)
	require.Len(t, res.Plans, 2)
	require.Zero(t, res.Dropped)

	runs, err := st.ListStageRuns("toy")
	require.NoError(t, err)
	require.Len(t, runs, 4)
	for _, r := range runs {
		require.Equal(t, store.StatusSucceeded, r.Status)
	}

	plans, err := st.PlanSummaries("toy", store.PlanFilter{NumDistricts: 2, Winners: 1, VoterModel: "slate_pl"})
	require.NoError(t, err)
	require.Equal(t, res.Plans, plans)

	ref, _, err := st.Reference("toy")
	require.NoError(t, err)
	require.InDelta(t, 0.5, ref.IProp, 1e-9)
}

func TestRunStage_Unknown(t *testing.T) {
	cfg := toyRun(t)
	_, err := New(cfg, openStore(t, cfg)).RunStage(context.Background(), "tabulate")
	require.ErrorIs(t, err, ErrUnknownStage)
}

func TestRunStage_RecordsFailure(t *testing.T) {
	cfg := toyRun(t)
	st := openStore(t, cfg)
	r := New(cfg, st)
	boom := errors.New("boom")
	r.Override(profiles.Stage, func(_ context.Context, _ *config.Config, rec *metrics.Stage) error {
		rec.Succeeded()
		rec.Fail()
		return boom
	})

	rep, err := r.RunStage(context.Background(), profiles.Stage)
	require.ErrorIs(t, err, boom)
	require.Equal(t, metrics.Counts{OK: 1, Failed: 1}, rep.Counts)

	runs, err := st.ListStageRuns("toy")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, store.StatusFailed, runs[0].Status)
	require.Equal(t, "boom", runs[0].Error)
	require.Equal(t, 1, runs[0].Failed)
}

func TestRunAll_StopsAtFatalStage(t *testing.T) {
	cfg := toyRun(t)
	st := openStore(t, cfg)
	r := New(cfg, st)
	r.Override(profiles.Stage, func(context.Context, *config.Config, *metrics.Stage) error { return nil })
	r.Override(elections.Stage, func(context.Context, *config.Config, *metrics.Stage) error { return nil })

	reports, err := r.RunAll(context.Background())
	require.ErrorIs(t, err, summary.ErrNoResults)
	require.Len(t, reports, 4)

	s := naming.New(cfg.OutputRoot, cfg.RunName)
	files, err := artifact.List(s.SettingsDir(2), "*.json")
	require.NoError(t, err)
	require.Len(t, files, 4)
}

func TestRunAll_Canceled(t *testing.T) {
	cfg := toyRun(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reports, err := New(cfg, openStore(t, cfg)).RunAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, reports)
}

func TestKnown(t *testing.T) {
	require.True(t, Known(settings.Stage))
	require.True(t, Known(summary.Stage))
	require.False(t, Known("tabulate"))
}
