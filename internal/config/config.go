// Package config loads and validates the run configuration shared by every
// pipeline stage. A Config is built once per process and never mutated after
// Load returns.
package config

import (
	"errors"
	"runtime"
	"sort"
)

// ErrInvalid marks configuration errors. They are fatal for every stage.
var ErrInvalid = errors.New("invalid configuration")

// Defaults for optional keys.
const (
	DefaultChainLength   = 1000
	DefaultNumSubsamples = 5
	DefaultNumVoters     = 10000
	DefaultNumReps       = 2
	DefaultOutputRoot    = "outputs"
	DefaultAlpha         = 1.0
)

// DefaultVoterModels lists the ballot generators run when voter_models is omitted.
var DefaultVoterModels = []string{"slate_pl", "slate_bt", "cambridge"}

// Config is the immutable run configuration.
type Config struct {
	RunName       string   `json:"run_name" yaml:"run_name"`
	GeodataPath   string   `json:"geodata_path" yaml:"geodata_path"`
	PopulationCol string   `json:"population_column" yaml:"population_column"`
	InterestCol   string   `json:"pop_of_interest_column" yaml:"pop_of_interest_column"`
	TraceDir      string   `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
	OutputRoot    string   `json:"output_root,omitempty" yaml:"output_root,omitempty"`
	ChainLength   int      `json:"chain_length" yaml:"chain_length"`
	NumSubsamples int      `json:"num_subsamples" yaml:"num_subsamples"`
	NumReps       int      `json:"num_reps" yaml:"num_reps"`
	NumVoters     int      `json:"num_voters" yaml:"num_voters"`
	TotalSeats    int      `json:"total_seats,omitempty" yaml:"total_seats,omitempty"`
	Workers       int      `json:"workers,omitempty" yaml:"workers,omitempty"`
	Seed          uint64   `json:"seed,omitempty" yaml:"seed,omitempty"`
	FocalGroup    string   `json:"focal_group" yaml:"focal_group"`
	VoterModels   []string `json:"voter_models,omitempty" yaml:"voter_models,omitempty"`

	DistrictConfigs   []DistrictConfig              `json:"district_configs" yaml:"district_configs"`
	Turnout           map[string]float64            `json:"turnout" yaml:"turnout"`
	Cohesion          map[string]map[string]float64 `json:"cohesion_parameters" yaml:"cohesion_parameters"`
	Alphas            map[string]map[string]float64 `json:"alphas" yaml:"alphas"`
	SlateToCandidates map[string][]string           `json:"slate_to_candidates" yaml:"slate_to_candidates"`
}

// defaultConfig seeds the numeric keys before decoding. Decoders leave absent
// keys alone, so an explicit zero survives and is rejected by Validate.
func defaultConfig() Config {
	return Config{
		ChainLength:   DefaultChainLength,
		NumSubsamples: DefaultNumSubsamples,
		NumVoters:     DefaultNumVoters,
		NumReps:       DefaultNumReps,
	}
}

// applyDefaults fills the remaining optional keys. Required keys are left
// for Validate.
func (c *Config) applyDefaults() {
	if c.OutputRoot == "" {
		c.OutputRoot = DefaultOutputRoot
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if len(c.VoterModels) == 0 {
		c.VoterModels = append([]string(nil), DefaultVoterModels...)
	}
	if c.Alphas == nil && len(c.Turnout) > 0 {
		c.Alphas = make(map[string]map[string]float64, len(c.Turnout))
		for bloc := range c.Turnout {
			row := make(map[string]float64, len(c.Turnout))
			for slate := range c.Turnout {
				row[slate] = DefaultAlpha
			}
			c.Alphas[bloc] = row
		}
	}
}

// Blocs returns the configured bloc names in sorted order.
func (c *Config) Blocs() []string {
	blocs := make([]string, 0, len(c.Turnout))
	for b := range c.Turnout {
		blocs = append(blocs, b)
	}
	sort.Strings(blocs)
	return blocs
}

// OtherBloc returns the unique non-focal bloc. Validate guarantees it exists.
func (c *Config) OtherBloc() string {
	for _, b := range c.Blocs() {
		if b != c.FocalGroup {
			return b
		}
	}
	return ""
}

// TotalSeatsFor returns the seat count used to express shares in seat units
// for one district configuration.
func (c *Config) TotalSeatsFor(dc DistrictConfig) int {
	if c.TotalSeats > 0 {
		return c.TotalSeats
	}
	return dc.TotalSeats()
}

// DistrictCounts returns the distinct district counts in configuration order.
func (c *Config) DistrictCounts() []int {
	seen := make(map[int]bool, len(c.DistrictConfigs))
	var out []int
	for _, dc := range c.DistrictConfigs {
		if seen[dc.NumDistricts] {
			continue
		}
		seen[dc.NumDistricts] = true
		out = append(out, dc.NumDistricts)
	}
	return out
}
