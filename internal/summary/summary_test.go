package summary

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"repsim/internal/artifact"
	"repsim/internal/config"
	"repsim/internal/elections"
	"repsim/internal/format"
	"repsim/internal/metrics"
	"repsim/internal/naming"
	"repsim/internal/population"
	"repsim/internal/settings"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	geo := filepath.Join(root, "units.csv")
	if err := os.WriteFile(geo, []byte("VAP,IVAP\n10,4\n10,4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	doc := `{
  "run_name": "toy",
  "geodata_path": "` + geo + `",
  "population_column": "VAP",
  "pop_of_interest_column": "IVAP",
  "output_root": "` + filepath.Join(root, "outputs") + `",
  "voter_models": ["slate_pl", "slate_bt"],
  "district_configs": [{"2": 1}],
  "turnout": {"A": 0.8, "B": 0.6},
  "focal_group": "A",
  "cohesion_parameters": {"A": {"A": 0.9, "B": 0.1}, "B": {"A": 0.2, "B": 0.8}},
  "slate_to_candidates": {"A": ["A1", "A2"], "B": ["B1", "B2"]}
}`
	t.Setenv(config.EnvOutputRoot, "")
	cfg, err := config.Load([]byte(doc), ".json")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return cfg
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func writeSettings(t *testing.T, path string, ivap, vap float64) {
	t.Helper()
	if err := artifact.WriteJSON(path, settings.Artifact{TotalIVAP: ivap, TotalVAP: vap}); err != nil {
		t.Fatal(err)
	}
}

// fixture writes settings for plans 0 and 2 and a slate_pl winner set with
// four resolvable profiles, one undecodable name and one without settings.
func fixture(t *testing.T, cfg *config.Config) naming.Scheme {
	t.Helper()
	s := naming.New(cfg.OutputRoot, cfg.RunName)
	for _, plan := range []int{0, 2} {
		for d := 0; d < 2; d++ {
			writeSettings(t, s.SettingsPath(2, plan, d), float64(4+d), 10)
		}
	}
	ws := elections.WinnerSet{
		RunName:            cfg.RunName,
		VoterMode:          "slate_pl",
		DistrictNum:        2,
		WinnersPerDistrict: 1,
		ProfileFiles: []string{
			s.ProfilePath("slate_pl", 2, 0, 0, 0),
			s.ProfilePath("slate_pl", 2, 0, 1, 0),
			filepath.Join(s.ProfileDir("slate_pl", 2), "junk.csv"),
			s.ProfilePath("slate_pl", 2, 2, 0, 0),
			s.ProfilePath("slate_pl", 2, 2, 1, 0),
			s.ProfilePath("slate_pl", 2, 4, 0, 0),
		},
		Winners: [][]string{{"A1"}, {"B1"}, {"A1"}, {"A2"}, {"A1"}, {"A1"}},
	}
	if err := artifact.WriteJSON(s.WinnerSetPath("slate_pl", 2, 1), ws); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCountFocal(t *testing.T) {
	tests := []struct {
		name    string
		winners []string
		focal   string
		slate   []string
		want    int
	}{
		{"slate and prefix", []string{"A1", "B2", "A3"}, "A", []string{"A1", "A3"}, 2},
		{"prefix only", []string{"A9", "B2"}, "A", nil, 1},
		{"long focal name needs slate", []string{"POC1", "W1"}, "POC", []string{"POC1"}, 1},
		{"long focal name no prefix rule", []string{"POC2"}, "POC", []string{"POC1"}, 0},
		{"none", nil, "A", []string{"A1"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountFocal(tt.winners, tt.focal, tt.slate); got != tt.want {
				t.Errorf("CountFocal = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputeReference_Example(t *testing.T) {
	cfg := testConfig(t)
	pop, err := population.LoadFile(cfg.GeodataPath, cfg.PopulationCol, cfg.InterestCol)
	if err != nil {
		t.Fatal(err)
	}
	ref := ComputeReference(cfg, pop)
	if math.Abs(ref.IProp-0.4) > 1e-12 {
		t.Errorf("iprop = %v", ref.IProp)
	}
	if math.Abs(ref.IPropTurnout-0.471) > 5e-4 {
		t.Errorf("iprop_turnout = %v, want ~0.471", ref.IPropTurnout)
	}
	if math.Abs(ref.CombinedSupport-0.530) > 1e-3 {
		t.Errorf("combined_support = %v, want ~0.530", ref.CombinedSupport)
	}
	if ref.TotalIVAP != 8 || ref.TotalVAP != 20 {
		t.Errorf("totals = %v/%v", ref.TotalIVAP, ref.TotalVAP)
	}
}

func TestAggregate_DropsUnresolved(t *testing.T) {
	cfg := testConfig(t)
	fixture(t, cfg)
	rec := metrics.NewStage(Stage, cfg.RunName)
	rows, dropped, err := Aggregate(context.Background(), cfg, Reference{FocalGroup: "A", IProp: 0.4, CombinedSupport: 0.53}, quiet(), rec)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	type key struct{ plan, district, sim, seats int }
	var got []key
	for _, r := range rows {
		got = append(got, key{r.Plan, r.District, r.SimIndex, r.FocalSeats})
		if r.Match != MatchExact {
			t.Errorf("row %+v resolved by %s", r, r.Match)
		}
		if r.RunName != "toy" || r.FocalGroup != "A" || r.ElectionMethod != "Plurality" || r.IProp != 0.4 || r.CombinedSupport != 0.53 {
			t.Errorf("row %+v missing run-level fields", r)
		}
	}
	want := []key{{0, 0, 0, 1}, {0, 1, 1, 0}, {2, 0, 3, 1}, {2, 1, 4, 1}}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(key{})); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	if rows[1].TotalIVAP != 5 {
		t.Errorf("district 1 total_ivap = %v", rows[1].TotalIVAP)
	}
	// slate_bt has no winner set: skipped, not fatal.
	if got := rec.Counts(); got.OK != 1 || got.Skipped != 1+2 {
		t.Errorf("counts = %+v", got)
	}
}

func TestGroupPlans_AndDistributions(t *testing.T) {
	cfg := testConfig(t)
	fixture(t, cfg)
	rows, _, err := Aggregate(context.Background(), cfg, Reference{FocalGroup: "A"}, quiet(), metrics.NewStage(Stage, cfg.RunName))
	if err != nil {
		t.Fatal(err)
	}
	plans := GroupPlans(cfg, rows)
	want := []PlanRow{
		{Plan: 0, NumDistricts: 2, Winners: 1, VoterModel: "slate_pl", Replicate: 0, FocalSeats: 1, TotalSeats: 2},
		{Plan: 2, NumDistricts: 2, Winners: 1, VoterModel: "slate_pl", Replicate: 0, FocalSeats: 2, TotalSeats: 2},
	}
	if diff := cmp.Diff(want, plans); diff != "" {
		t.Errorf("plans (-want +got):\n%s", diff)
	}

	dists := Distributions(plans)
	if len(dists) != 1 {
		t.Fatalf("got %d distributions", len(dists))
	}
	d := dists[0]
	if d.Count != 2 || d.Mean != 1.5 || d.Min != 1 || d.Max != 2 {
		t.Errorf("distribution = %+v", d)
	}
	if math.Abs(d.StdDev-math.Sqrt(0.5)) > 1e-12 {
		t.Errorf("std = %v", d.StdDev)
	}
	if d.MeanShare() != 0.75 {
		t.Errorf("mean share = %v", d.MeanShare())
	}
}

func TestGroupPlans_TotalSeatsOverride(t *testing.T) {
	cfg := testConfig(t)
	cfg.TotalSeats = 10
	plans := GroupPlans(cfg, []Row{{Plan: 1, NumDistricts: 2, Winners: 1, VoterModel: "slate_pl", FocalSeats: 1}})
	if plans[0].TotalSeats != 10 {
		t.Errorf("total seats = %d", plans[0].TotalSeats)
	}
}

func TestDescribe(t *testing.T) {
	d := Describe(4, 1, "cambridge", 4, []float64{3, 1, 2})
	if d.Median != 2 || d.Mean != 2 || d.StdDev != 1 {
		t.Errorf("got %+v", d)
	}
	if one := Describe(4, 1, "cambridge", 4, []float64{3}); one.StdDev != 0 || one.Median != 3 {
		t.Errorf("single value: %+v", one)
	}
	if empty := Describe(4, 1, "cambridge", 4, nil); empty.Count != 0 || empty.Mean != 0 {
		t.Errorf("empty: %+v", empty)
	}
}

func TestRun_WritesArtifacts(t *testing.T) {
	cfg := testConfig(t)
	s := fixture(t, cfg)
	res, err := Run(context.Background(), cfg, metrics.NewStage(Stage, cfg.RunName))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Figures) != 1 || res.Figures[0] != s.FigurePath(2, 1, "Plurality") {
		t.Errorf("figures = %v", res.Figures)
	}
	for _, p := range []string{s.SummaryCSV(), s.PlanSummaryCSV(), s.ReferenceJSON(), s.FigurePath(2, 1, "Plurality")} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("missing %s: %v", p, err)
		}
	}

	f, err := os.Open(s.SummaryCSV())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 5 {
		t.Fatalf("summary csv has %d records", len(recs))
	}
	col := make(map[string]int, len(recs[0]))
	for i, h := range recs[0] {
		col[h] = i
	}
	for _, h := range []string{"run_name", "focal_group", "election_method", "iprop", "combined_support", "total_IVAP", "total_VAP", "settings_match"} {
		if _, ok := col[h]; !ok {
			t.Errorf("summary csv header %v lacks %q", recs[0], h)
		}
	}
	if _, ok := col["total_ivap"]; ok {
		t.Errorf("summary csv header %v uses a fixed interest column name", recs[0])
	}
	for _, rec := range recs[1:] {
		if len(rec) != len(recs[0]) {
			t.Fatalf("record %v has %d fields, header has %d", rec, len(rec), len(recs[0]))
		}
		if rec[col["run_name"]] != "toy" || rec[col["focal_group"]] != "A" || rec[col["election_method"]] != "Plurality" {
			t.Errorf("record %v", rec)
		}
		if rec[col["iprop"]] != ftoa(res.Reference.IProp) || rec[col["combined_support"]] != ftoa(res.Reference.CombinedSupport) {
			t.Errorf("record %v does not carry the reference statistics", rec)
		}
	}

	var doc ReferenceDoc
	if err := artifact.ReadJSON(s.ReferenceJSON(), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.FocalGroup != "A" || doc.Dropped != 2 || len(doc.Distributions) != 1 {
		t.Errorf("reference doc = %+v", doc)
	}
}

func TestRun_NoResults(t *testing.T) {
	cfg := testConfig(t)
	_, err := Run(context.Background(), cfg, metrics.NewStage(Stage, cfg.RunName))
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("want ErrNoResults, got %v", err)
	}
}

func TestResolver(t *testing.T) {
	cfg := testConfig(t)
	s := naming.New(cfg.OutputRoot, cfg.RunName)

	writeSettings(t, s.SettingsPath(4, 1, 2), 1, 2)
	legacy := filepath.Join(s.SettingsDir(4), "toy_4_settings_plan_7_district_3.json")
	writeSettings(t, legacy, 1, 2)

	r := NewResolver(s)
	path, method, err := r.Resolve(4, 1, 2)
	if err != nil || method != MatchExact || path != s.SettingsPath(4, 1, 2) {
		t.Errorf("exact: %s %s %v", path, method, err)
	}
	path, method, err = r.Resolve(4, 7, 3)
	if err != nil || method != MatchPattern || path != legacy {
		t.Errorf("pattern: %s %s %v", path, method, err)
	}
	if _, _, err := r.Resolve(4, 9, 9); err == nil {
		t.Error("want error with several candidates and no match")
	}

	only := filepath.Join(s.SettingsDir(6), "district_settings.json")
	writeSettings(t, only, 1, 2)
	path, method, err = NewResolver(s).Resolve(6, 3, 1)
	if err != nil || method != MatchSole || path != only {
		t.Errorf("sole: %s %s %v", path, method, err)
	}
}

func TestFormatReport(t *testing.T) {
	ref := Reference{FocalGroup: "A", IProp: 0.4, IPropTurnout: 0.47, CombinedSupport: 0.53}
	dists := []Distribution{Describe(2, 1, "slate_pl", 2, []float64{1, 2})}
	out := FormatReport("toy", ref, dists, 2, format.ASCII)
	for _, want := range []string{"Representation Summary: toy", "Impulsive", "2x1", "53.0%", "Dropped rows"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if empty := FormatReport("toy", ref, nil, 0, format.Markdown); !strings.Contains(empty, "no plan-level results") {
		t.Errorf("empty report:\n%s", empty)
	}
}
