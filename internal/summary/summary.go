// Package summary joins winner sets back to their settings artifacts and
// produces per-plan focal seat-share distributions.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"repsim/internal/artifact"
	"repsim/internal/bloc"
	"repsim/internal/config"
	"repsim/internal/elections"
	"repsim/internal/logging"
	"repsim/internal/metrics"
	"repsim/internal/naming"
	"repsim/internal/population"
	"repsim/internal/settings"
)

const Stage = "summarize"

// ErrNoResults means the run has no election results directory at all.
var ErrNoResults = errors.New("no election results")

// Reference holds run-level constants drawn as figure markers.
type Reference struct {
	FocalGroup      string  `json:"focal_group"`
	IProp           float64 `json:"iprop"`
	IPropTurnout    float64 `json:"iprop_turnout"`
	CombinedSupport float64 `json:"combined_support"`
	TotalIVAP       float64 `json:"total_ivap"`
	TotalVAP        float64 `json:"total_vap"`
}

// Row is one simulated district election. RunName, FocalGroup, IProp and
// CombinedSupport are run-level and repeat on every row.
type Row struct {
	RunName         string
	FocalGroup      string
	Plan            int
	District        int
	Replicate       int
	NumDistricts    int
	Winners         int
	ElectionMethod  string
	VoterModel      string
	SimIndex        int
	FocalSeats      int
	TotalIVAP       float64
	TotalVAP        float64
	IProp           float64
	CombinedSupport float64
	Match           string
	ProfileFile     string
	SettingsFile    string
}

// PlanRow sums focal seats over a plan's districts for one replicate.
type PlanRow struct {
	Plan         int
	NumDistricts int
	Winners      int
	VoterModel   string
	Replicate    int
	FocalSeats   int
	TotalSeats   int
}

// Share is focal seats over total seats.
func (p PlanRow) Share() float64 {
	if p.TotalSeats == 0 {
		return 0
	}
	return float64(p.FocalSeats) / float64(p.TotalSeats)
}

// Result is everything the aggregator computes for one run.
type Result struct {
	Reference     Reference
	Rows          []Row
	Plans         []PlanRow
	Distributions []Distribution
	Dropped       int
	Figures       []string
}

// ComputeReference derives the reference statistics from the geography-wide
// population share, the turnout rates and the cohesion table.
func ComputeReference(cfg *config.Config, pop *population.Table) Reference {
	interest, total := pop.Sums()
	iprop := bloc.Proportion(interest, total)
	focal, other := cfg.FocalGroup, cfg.OtherBloc()
	adj := bloc.TurnoutAdjust(iprop, cfg.Turnout[focal], cfg.Turnout[other])
	return Reference{
		FocalGroup:      focal,
		IProp:           iprop,
		IPropTurnout:    adj,
		CombinedSupport: bloc.CombinedSupport(adj, cfg.Cohesion, focal, other),
		TotalIVAP:       interest,
		TotalVAP:        total,
	}
}

// CountFocal counts winners belonging to the focal group: members of its
// slate, or, for a single-letter group name, candidates whose name starts
// with that letter.
func CountFocal(winners []string, focal string, slate []string) int {
	in := make(map[string]bool, len(slate))
	for _, c := range slate {
		in[c] = true
	}
	n := 0
	for _, w := range winners {
		if in[w] || (len(focal) == 1 && strings.HasPrefix(w, focal)) {
			n++
		}
	}
	return n
}

// Aggregate builds rows for every winner set of the run, stamping each with
// ref. Rows whose identity or settings cannot be resolved are dropped and
// counted.
func Aggregate(ctx context.Context, cfg *config.Config, ref Reference, log *slog.Logger, rec *metrics.Stage) ([]Row, int, error) {
	scheme := naming.New(cfg.OutputRoot, cfg.RunName)
	if !artifact.DirExists(scheme.ResultsRoot()) {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoResults, scheme.ResultsRoot())
	}
	resolver := NewResolver(scheme)
	slate := cfg.SlateToCandidates[cfg.FocalGroup]

	var rows []Row
	dropped := 0
	for _, dc := range cfg.DistrictConfigs {
		for _, model := range cfg.VoterModels {
			if err := ctx.Err(); err != nil {
				return nil, dropped, err
			}
			l := log.With("district_num", dc.NumDistricts, "winners", dc.Winners, "voter_model", model)
			path := scheme.WinnerSetPath(model, dc.NumDistricts, dc.Winners)
			ws, err := elections.Load(path)
			if err != nil {
				l.Warn("winner set unavailable", "resource", path, "error", err)
				rec.Skip()
				continue
			}
			for i, pf := range ws.ProfileFiles {
				id := scheme.Decode(pf)
				if !id.Complete() {
					l.Warn("undecodable profile name", "resource", pf, "plan", id.Plan, "district", id.District, "replicate", id.Replicate)
					dropped++
					continue
				}
				plan, district := int(id.Plan), int(id.District)
				sp, method, err := resolver.Resolve(dc.NumDistricts, plan, district)
				if err != nil {
					l.Warn("settings not found", "resource", pf, "error", err)
					dropped++
					continue
				}
				if method == MatchSole {
					l.Warn("settings resolved by sole-file fallback", "resource", pf, "settings", sp)
				}
				s, err := settings.Load(sp)
				if err != nil {
					l.Warn("settings unreadable", "resource", sp, "error", err)
					dropped++
					continue
				}
				rows = append(rows, Row{
					RunName:         cfg.RunName,
					FocalGroup:      ref.FocalGroup,
					Plan:            plan,
					District:        district,
					Replicate:       int(id.Replicate),
					NumDistricts:    dc.NumDistricts,
					Winners:         dc.Winners,
					ElectionMethod:  dc.ElectionMethod(),
					VoterModel:      model,
					SimIndex:        i,
					FocalSeats:      CountFocal(ws.Winners[i], cfg.FocalGroup, slate),
					TotalIVAP:       s.TotalIVAP,
					TotalVAP:        s.TotalVAP,
					IProp:           ref.IProp,
					CombinedSupport: ref.CombinedSupport,
					Match:           method,
					ProfileFile:     pf,
					SettingsFile:    sp,
				})
			}
			rec.Succeeded()
		}
	}
	rec.Observe(metrics.Skipped, dropped)
	return rows, dropped, nil
}

type planKey struct {
	plan, n, w int
	model      string
	rep        int
}

// GroupPlans sums focal seats per (plan, n, winners, model, replicate).
// Total seats are n*winners unless cfg overrides them.
func GroupPlans(cfg *config.Config, rows []Row) []PlanRow {
	sums := make(map[planKey]int)
	for _, r := range rows {
		sums[planKey{r.Plan, r.NumDistricts, r.Winners, r.VoterModel, r.Replicate}] += r.FocalSeats
	}
	out := make([]PlanRow, 0, len(sums))
	for k, seats := range sums {
		out = append(out, PlanRow{
			Plan:         k.plan,
			NumDistricts: k.n,
			Winners:      k.w,
			VoterModel:   k.model,
			Replicate:    k.rep,
			FocalSeats:   seats,
			TotalSeats:   cfg.TotalSeatsFor(config.DistrictConfig{NumDistricts: k.n, Winners: k.w}),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.NumDistricts != b.NumDistricts {
			return a.NumDistricts < b.NumDistricts
		}
		if a.Winners != b.Winners {
			return a.Winners < b.Winners
		}
		if a.VoterModel != b.VoterModel {
			return a.VoterModel < b.VoterModel
		}
		if a.Plan != b.Plan {
			return a.Plan < b.Plan
		}
		return a.Replicate < b.Replicate
	})
	return out
}

// Run aggregates the run, writes the summary artifacts and figures, and
// returns the computed result.
func Run(ctx context.Context, cfg *config.Config, rec *metrics.Stage) (*Result, error) {
	logger := logging.ForStage(Stage, cfg.RunName)
	scheme := naming.New(cfg.OutputRoot, cfg.RunName)

	pop, err := population.LoadFile(cfg.GeodataPath, cfg.PopulationCol, cfg.InterestCol)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	ref := ComputeReference(cfg, pop)
	rows, dropped, err := Aggregate(ctx, cfg, ref, logger, rec)
	if err != nil {
		return nil, err
	}
	res := &Result{
		Reference: ref,
		Rows:      rows,
		Dropped:   dropped,
	}
	res.Plans = GroupPlans(cfg, rows)
	res.Distributions = Distributions(res.Plans)

	if err := WriteOutputs(cfg, scheme, res); err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	figures, err := WriteFigures(cfg, scheme, res)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	res.Figures = figures

	logger.Info("summary written", "resource", scheme.SummaryDir(), "rows", len(rows),
		"plans", len(res.Plans), "dropped", dropped, "figures", len(figures))
	return res, nil
}
