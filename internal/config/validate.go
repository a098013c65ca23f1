package config

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"repsim/internal/ballot"
)

// cohesionTolerance bounds how far a cohesion row may drift from summing to 1.
const cohesionTolerance = 1e-6

// Validate reports every configuration problem at once. The returned error
// wraps ErrInvalid.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	required := []struct {
		key     string
		missing bool
	}{
		{"run_name", c.RunName == ""},
		{"geodata_path", c.GeodataPath == ""},
		{"population_column", c.PopulationCol == ""},
		{"pop_of_interest_column", c.InterestCol == ""},
		{"district_configs", len(c.DistrictConfigs) == 0},
		{"turnout", len(c.Turnout) == 0},
		{"focal_group", c.FocalGroup == ""},
		{"cohesion_parameters", len(c.Cohesion) == 0},
		{"slate_to_candidates", len(c.SlateToCandidates) == 0},
	}
	for _, r := range required {
		if r.missing {
			add("missing required key %q", r.key)
		}
	}

	if c.NumSubsamples <= 0 {
		add("num_subsamples must be positive, got %d", c.NumSubsamples)
	} else if c.NumSubsamples > c.ChainLength {
		add("num_subsamples (%d) exceeds chain_length (%d)", c.NumSubsamples, c.ChainLength)
	}
	if c.ChainLength <= 0 {
		add("chain_length must be positive, got %d", c.ChainLength)
	}
	if c.NumReps <= 0 {
		add("num_reps must be positive, got %d", c.NumReps)
	}
	if c.NumVoters <= 0 {
		add("num_voters must be positive, got %d", c.NumVoters)
	}
	if c.TotalSeats < 0 {
		add("total_seats must not be negative, got %d", c.TotalSeats)
	}

	seen := make(map[DistrictConfig]int, len(c.DistrictConfigs))
	for i, dc := range c.DistrictConfigs {
		if dc.NumDistricts <= 0 || dc.Winners <= 0 {
			add("district_configs[%d]: counts must be positive, got %s", i, dc)
		}
		if j, dup := seen[dc]; dup {
			add("district_configs[%d]: %s duplicates entry %d", i, dc, j)
			continue
		}
		seen[dc] = i
	}

	if len(c.Turnout) > 0 {
		if len(c.Turnout) != 2 {
			add("turnout must name exactly two blocs, got %d", len(c.Turnout))
		}
		for _, b := range c.Blocs() {
			if t := c.Turnout[b]; t <= 0 || t > 1 {
				add("turnout[%s] must be in (0, 1], got %v", b, t)
			}
		}
		if c.FocalGroup != "" {
			if _, ok := c.Turnout[c.FocalGroup]; !ok {
				add("focal_group %q is not a turnout bloc", c.FocalGroup)
			}
		}
	}

	errs = append(errs, c.validateBlocTables()...)

	for _, m := range c.VoterModels {
		if !ballot.Known(m) {
			add("unknown voter model %q (known: %v)", m, ballot.Models())
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

func (c *Config) validateBlocTables() []error {
	var errs []error
	blocs := c.Blocs()
	if len(blocs) == 0 {
		return nil
	}

	for _, b := range blocs {
		row, ok := c.Cohesion[b]
		if !ok {
			if len(c.Cohesion) > 0 {
				errs = append(errs, fmt.Errorf("cohesion_parameters missing bloc %q", b))
			}
			continue
		}
		sum := 0.0
		for _, s := range blocs {
			v, ok := row[s]
			if !ok {
				errs = append(errs, fmt.Errorf("cohesion_parameters[%s] missing slate %q", b, s))
				continue
			}
			if v < 0 || v > 1 {
				errs = append(errs, fmt.Errorf("cohesion_parameters[%s][%s] must be in [0, 1], got %v", b, s, v))
			}
			sum += v
		}
		if math.Abs(sum-1) > cohesionTolerance {
			errs = append(errs, fmt.Errorf("cohesion_parameters[%s] must sum to 1, got %v", b, sum))
		}

		if alphas, ok := c.Alphas[b]; ok {
			for _, s := range blocs {
				if a, ok := alphas[s]; !ok || a <= 0 {
					errs = append(errs, fmt.Errorf("alphas[%s][%s] must be positive", b, s))
				}
			}
		} else {
			errs = append(errs, fmt.Errorf("alphas missing bloc %q", b))
		}
	}

	if len(c.SlateToCandidates) > 0 {
		seen := make(map[string]string)
		for _, s := range blocs {
			cands, ok := c.SlateToCandidates[s]
			if !ok || len(cands) == 0 {
				errs = append(errs, fmt.Errorf("slate_to_candidates[%s] must list at least one candidate", s))
				continue
			}
			for _, cand := range cands {
				if prev, dup := seen[cand]; dup {
					errs = append(errs, fmt.Errorf("candidate %q appears in slates %q and %q", cand, prev, s))
				}
				seen[cand] = s
			}
		}
		extra := make([]string, 0)
		for s := range c.SlateToCandidates {
			if _, ok := c.Turnout[s]; !ok {
				extra = append(extra, s)
			}
		}
		sort.Strings(extra)
		for _, s := range extra {
			errs = append(errs, fmt.Errorf("slate_to_candidates names unknown bloc %q", s))
		}
	}
	return errs
}
