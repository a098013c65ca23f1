// Package mcp exposes a run's configuration, stored results and stage
// execution as MCP tools.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"repsim/internal/config"
	"repsim/internal/display"
	"repsim/internal/logging"
	"repsim/internal/pipeline"
	"repsim/internal/store"
	"repsim/internal/summary"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP SDK server for one configured run.
type Server struct {
	MCPServer *sdkmcp.Server
	Config    *config.Config
	Store     *store.SqlStore

	// stage runs are serialized; they write into the same output tree.
	mu sync.Mutex
}

// NewServer creates an MCP server bound to cfg and its results store.
func NewServer(cfg *config.Config, st *store.SqlStore, version string) *Server {
	s := &Server{Config: cfg, Store: st}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "repsim", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_configurations",
		Description: "List the run's district configurations and voter models.",
	}, s.handleListConfigurations)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_reference",
		Description: "Get the stored reference statistics (population share, turnout-adjusted share, combined support) for a run.",
	}, s.handleGetReference)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_plan_summary",
		Description: "Get plan-level focal seat counts and their distribution for one district configuration and voter model.",
	}, s.handleGetPlanSummary)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_stage_runs",
		Description: "List recorded stage executions for a run with outcome counts.",
	}, s.handleGetStageRuns)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_stage",
		Description: "Run one pipeline stage (settings, profiles, elections, summarize) and return its outcome counts.",
	}, s.handleRunStage)
}

// --- Tool input/output types ---

type listConfigurationsInput struct{}

type configurationInfo struct {
	NumDistricts int    `json:"district_num"`
	Winners      int    `json:"winners"`
	Label        string `json:"label"`
	Method       string `json:"method"`
	TotalSeats   int    `json:"total_seats"`
}

type listConfigurationsOutput struct {
	Run            string              `json:"run"`
	FocalGroup     string              `json:"focal_group"`
	VoterModels    []string            `json:"voter_models"`
	Configurations []configurationInfo `json:"configurations"`
}

type runInput struct {
	Run string `json:"run,omitempty" jsonschema:"run name (defaults to the configured run)"`
}

type getReferenceOutput struct {
	Run       string            `json:"run"`
	Reference summary.Reference `json:"reference"`
	Dropped   int               `json:"dropped_rows"`
}

type getPlanSummaryInput struct {
	Run          string `json:"run,omitempty" jsonschema:"run name (defaults to the configured run)"`
	NumDistricts int    `json:"district_num,omitempty" jsonschema:"number of districts"`
	Winners      int    `json:"winners,omitempty" jsonschema:"winners per district"`
	VoterModel   string `json:"voter_model,omitempty" jsonschema:"voter model (slate_pl, slate_bt, cambridge)"`
}

type planEntry struct {
	Plan       int     `json:"plan"`
	Replicate  int     `json:"replicate"`
	FocalSeats int     `json:"focal_seats"`
	TotalSeats int     `json:"total_seats"`
	Share      float64 `json:"seat_share"`
}

type getPlanSummaryOutput struct {
	Run          string                `json:"run"`
	Plans        []planEntry           `json:"plans"`
	Distribution *summary.Distribution `json:"distribution,omitempty"`
}

type getStageRunsOutput struct {
	Run       string           `json:"run"`
	StageRuns []store.StageRun `json:"stage_runs"`
}

type runStageInput struct {
	Stage string `json:"stage" jsonschema:"stage name: settings, profiles, elections or summarize"`
}

type runStageOutput struct {
	ID          string  `json:"id"`
	Stage       string  `json:"stage"`
	OK          int     `json:"ok"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	Seconds     float64 `json:"seconds"`
	MetricsPath string  `json:"metrics_path"`
	Error       string  `json:"error,omitempty"`
}

// --- Tool handlers ---

func (s *Server) runName(in string) string {
	if in != "" {
		return in
	}
	return s.Config.RunName
}

func (s *Server) handleListConfigurations(_ context.Context, _ *sdkmcp.CallToolRequest, _ listConfigurationsInput) (*sdkmcp.CallToolResult, listConfigurationsOutput, error) {
	out := listConfigurationsOutput{
		Run:         s.Config.RunName,
		FocalGroup:  s.Config.FocalGroup,
		VoterModels: s.Config.VoterModels,
	}
	for _, dc := range s.Config.DistrictConfigs {
		out.Configurations = append(out.Configurations, configurationInfo{
			NumDistricts: dc.NumDistricts,
			Winners:      dc.Winners,
			Label:        display.Configuration(dc.NumDistricts, dc.Winners),
			Method:       dc.ElectionMethod(),
			TotalSeats:   s.Config.TotalSeatsFor(dc),
		})
	}
	return nil, out, nil
}

func (s *Server) handleGetReference(_ context.Context, _ *sdkmcp.CallToolRequest, input runInput) (*sdkmcp.CallToolResult, getReferenceOutput, error) {
	run := s.runName(input.Run)
	ref, dropped, err := s.Store.Reference(run)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, getReferenceOutput{}, fmt.Errorf("run %q has no summary yet (run the summarize stage first)", run)
		}
		return nil, getReferenceOutput{}, err
	}
	return nil, getReferenceOutput{Run: run, Reference: ref, Dropped: dropped}, nil
}

func (s *Server) handleGetPlanSummary(_ context.Context, _ *sdkmcp.CallToolRequest, input getPlanSummaryInput) (*sdkmcp.CallToolResult, getPlanSummaryOutput, error) {
	if input.NumDistricts <= 0 || input.Winners <= 0 || input.VoterModel == "" {
		return nil, getPlanSummaryOutput{}, fmt.Errorf("district_num, winners and voter_model are required")
	}
	run := s.runName(input.Run)
	plans, err := s.Store.PlanSummaries(run, store.PlanFilter{
		NumDistricts: input.NumDistricts,
		Winners:      input.Winners,
		VoterModel:   input.VoterModel,
	})
	if err != nil {
		return nil, getPlanSummaryOutput{}, err
	}
	out := getPlanSummaryOutput{Run: run, Plans: make([]planEntry, 0, len(plans))}
	for _, p := range plans {
		out.Plans = append(out.Plans, planEntry{
			Plan:       p.Plan,
			Replicate:  p.Replicate,
			FocalSeats: p.FocalSeats,
			TotalSeats: p.TotalSeats,
			Share:      p.Share(),
		})
	}

	dists, err := s.Store.Distributions(run)
	if err != nil {
		return nil, getPlanSummaryOutput{}, err
	}
	for i, d := range dists {
		if d.NumDistricts == input.NumDistricts && d.Winners == input.Winners && d.VoterModel == input.VoterModel {
			out.Distribution = &dists[i]
			break
		}
	}
	return nil, out, nil
}

func (s *Server) handleGetStageRuns(_ context.Context, _ *sdkmcp.CallToolRequest, input runInput) (*sdkmcp.CallToolResult, getStageRunsOutput, error) {
	run := s.runName(input.Run)
	runs, err := s.Store.ListStageRuns(run)
	if err != nil {
		return nil, getStageRunsOutput{}, err
	}
	if runs == nil {
		runs = []store.StageRun{}
	}
	return nil, getStageRunsOutput{Run: run, StageRuns: runs}, nil
}

func (s *Server) handleRunStage(ctx context.Context, _ *sdkmcp.CallToolRequest, input runStageInput) (*sdkmcp.CallToolResult, runStageOutput, error) {
	if !pipeline.Known(input.Stage) {
		return nil, runStageOutput{}, fmt.Errorf("unknown stage %q (want one of %v)", input.Stage, pipeline.Stages)
	}
	logger := logging.New("mcp")

	s.mu.Lock()
	defer s.mu.Unlock()

	logger.Info("running stage", "stage", input.Stage, "run", s.Config.RunName)
	rep, err := pipeline.New(s.Config, s.Store).RunStage(ctx, input.Stage)
	if rep == nil {
		return nil, runStageOutput{}, err
	}
	out := runStageOutput{
		ID:          rep.ID,
		Stage:       rep.Stage,
		OK:          rep.Counts.OK,
		Failed:      rep.Counts.Failed,
		Skipped:     rep.Counts.Skipped,
		Seconds:     rep.Duration.Seconds(),
		MetricsPath: rep.MetricsPath,
	}
	if err != nil {
		out.Error = err.Error()
	}
	return nil, out, nil
}
