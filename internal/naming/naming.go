// Package naming maps artifact identity to file paths and back. Every stage
// that writes or reads an artifact goes through a Scheme, so the layout below
// is the only place identity is encoded:
//
//	districts/{run}_chain_out/{run}_{n}_districts.jsonl
//	settings/{run}_settings/{n}/{run}_{n}_sample_settings_district_plan_{plan:03d}_district_{d:02d}.json
//	profiles/{run}/{model}/{n}/{run}_{n}_profile_district_plan_{plan:03d}_district_{d:02d}_v{rep}.csv
//	election_results/{run}_election_results/{model}/{run}_{n}_districts_{w}_winners_for_voter_mode_{model}.json
//	summaries/{run}_summary/...
package naming

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Index is a decoded identity component. Unknown marks a component that
// could not be recovered from a name.
type Index int

const Unknown Index = -1

func (i Index) Known() bool { return i >= 0 }

func (i Index) String() string {
	if !i.Known() {
		return "unknown"
	}
	return strconv.Itoa(int(i))
}

// Identity is the (plan, district, replicate) triple carried by a name.
type Identity struct {
	Plan      Index
	District  Index
	Replicate Index
}

// Complete reports whether every component decoded.
func (id Identity) Complete() bool {
	return id.Plan.Known() && id.District.Known() && id.Replicate.Known()
}

// Scheme encodes paths for one run under one output root.
type Scheme struct {
	Root string
	Run  string
}

func New(root, run string) Scheme {
	return Scheme{Root: root, Run: run}
}

// TraceDir is where the sampler writes one trace per district count.
func (s Scheme) TraceDir() string {
	return filepath.Join(s.Root, "districts", s.Run+"_chain_out")
}

func (s Scheme) TracePath(n int) string {
	return filepath.Join(s.TraceDir(), fmt.Sprintf("%s_%d_districts.jsonl", s.Run, n))
}

func (s Scheme) SettingsDir(n int) string {
	return filepath.Join(s.Root, "settings", s.Run+"_settings", strconv.Itoa(n))
}

// SettingsName is the base name of a settings artifact.
func (s Scheme) SettingsName(n, plan, district int) string {
	return fmt.Sprintf("%s_%d_sample_settings_district_plan_%03d_district_%02d.json", s.Run, n, plan, district)
}

func (s Scheme) SettingsPath(n, plan, district int) string {
	return filepath.Join(s.SettingsDir(n), s.SettingsName(n, plan, district))
}

// SettingsPatterns are the glob fallbacks tried, in order, when no settings
// file has the exact expected name.
func (s Scheme) SettingsPatterns(plan, district int) []string {
	return []string{
		fmt.Sprintf("*plan*%03d*district*%02d*.json", plan, district),
		fmt.Sprintf("*plan*%d*district*%d*.json", plan, district),
		fmt.Sprintf("*%03d*%02d*.json", plan, district),
	}
}

func (s Scheme) ProfileDir(model string, n int) string {
	return filepath.Join(s.Root, "profiles", s.Run, model, strconv.Itoa(n))
}

// ProfileName derives the profile base name from its settings name.
func (s Scheme) ProfileName(n, plan, district, rep int) string {
	name := strings.Replace(s.SettingsName(n, plan, district), "sample_settings", "profile", 1)
	return strings.TrimSuffix(name, ".json") + fmt.Sprintf("_v%d.csv", rep)
}

func (s Scheme) ProfilePath(model string, n, plan, district, rep int) string {
	return filepath.Join(s.ProfileDir(model, n), s.ProfileName(n, plan, district, rep))
}

// ResultsRoot holds every winner set of the run.
func (s Scheme) ResultsRoot() string {
	return filepath.Join(s.Root, "election_results", s.Run+"_election_results")
}

func (s Scheme) ResultsDir(model string) string {
	return filepath.Join(s.ResultsRoot(), model)
}

func (s Scheme) WinnerSetPath(model string, n, winners int) string {
	return filepath.Join(s.ResultsDir(model),
		fmt.Sprintf("%s_%d_districts_%d_winners_for_voter_mode_%s.json", s.Run, n, winners, model))
}

// DecodeWinnerSet recovers (n, winners, model) from a winner-set path.
func (s Scheme) DecodeWinnerSet(path string) (n, winners int, model string, ok bool) {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	base, found := strings.CutPrefix(base, s.Run+"_")
	if !found {
		return 0, 0, "", false
	}
	head, model, found := strings.Cut(base, "_winners_for_voter_mode_")
	if !found || model == "" {
		return 0, 0, "", false
	}
	nStr, wStr, found := strings.Cut(head, "_districts_")
	if !found {
		return 0, 0, "", false
	}
	n, err1 := strconv.Atoi(nStr)
	winners, err2 := strconv.Atoi(wStr)
	if err1 != nil || err2 != nil {
		return 0, 0, "", false
	}
	return n, winners, model, true
}

func (s Scheme) SummaryDir() string {
	return filepath.Join(s.Root, "summaries", s.Run+"_summary")
}

func (s Scheme) SummaryCSV() string {
	return filepath.Join(s.SummaryDir(), s.Run+"_summary.csv")
}

func (s Scheme) PlanSummaryCSV() string {
	return filepath.Join(s.SummaryDir(), s.Run+"_plan_summary.csv")
}

func (s Scheme) ReferenceJSON() string {
	return filepath.Join(s.SummaryDir(), s.Run+"_reference.json")
}

func (s Scheme) FigurePath(n, winners int, method string) string {
	return filepath.Join(s.SummaryDir(), "figures", fmt.Sprintf("%s_%dx%d_%s_bymode.png", s.Run, n, winners, method))
}

func (s Scheme) StorePath() string {
	return filepath.Join(s.Root, s.Run+"_pipeline.db")
}

func (s Scheme) MetricsPath(stage string) string {
	return filepath.Join(s.Root, "metrics", fmt.Sprintf("%s_%s.prom", s.Run, stage))
}

var (
	planRe      = regexp.MustCompile(`(?i)(?:district[_-]?plan[_-]?|plan[_-]?)(\d+)`)
	districtRe  = regexp.MustCompile(`(?i)district[_-]?(\d+)`)
	replicateRe = regexp.MustCompile(`(?i)(?:^|[_-])v(\d+)(?:\D|$)`)
)

// Decode recovers identity from any artifact path, with the run prefix
// stripped from the base name so run names cannot leak into identity.
func (s Scheme) Decode(path string) Identity {
	base := filepath.Base(path)
	if s.Run != "" {
		base = strings.TrimPrefix(base, s.Run+"_")
	}
	return decodeName(base)
}

// Decode recovers identity from a path whose run is not known.
func Decode(path string) Identity {
	return decodeName(filepath.Base(path))
}

// decodeName takes the first plan token, the last district token and the
// last version marker.
func decodeName(name string) Identity {
	id := Identity{Plan: Unknown, District: Unknown, Replicate: Unknown}
	if m := planRe.FindStringSubmatch(name); m != nil {
		id.Plan = atoi(m[1])
	}
	if all := districtRe.FindAllStringSubmatch(name, -1); len(all) > 0 {
		id.District = atoi(all[len(all)-1][1])
	}
	if all := replicateRe.FindAllStringSubmatch(name, -1); len(all) > 0 {
		id.Replicate = atoi(all[len(all)-1][1])
	}
	return id
}

func atoi(s string) Index {
	n, err := strconv.Atoi(s)
	if err != nil {
		return Unknown
	}
	return Index(n)
}
