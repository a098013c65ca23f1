package summary

import (
	"encoding/csv"
	"fmt"
	"image/color"
	"io"
	"strconv"

	"repsim/internal/artifact"
	"repsim/internal/config"
	"repsim/internal/display"
	"repsim/internal/naming"
	"repsim/internal/plot"
)

// ReferenceDoc is the reference JSON artifact.
type ReferenceDoc struct {
	Reference
	Dropped       int            `json:"dropped_rows"`
	Distributions []Distribution `json:"distributions"`
}

// rowHeader names the population total columns after the geodata columns
// they were summed from.
func rowHeader(popCol, interestCol string) []string {
	return []string{
		"run_name", "focal_group", "plan", "district", "replicate", "district_num", "winners",
		"election_method", "voter_model", "sim_index", "focal_seats",
		"total_" + interestCol, "total_" + popCol, "iprop", "combined_support",
		"settings_match", "profile_file", "settings_file",
	}
}

var planHeader = []string{
	"plan", "district_num", "winners", "voter_model", "replicate", "focal_seats", "total_seats", "seat_share",
}

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteRows writes the per-simulation summary CSV. popCol and interestCol
// are the configured geodata column names.
func WriteRows(w io.Writer, rows []Row, popCol, interestCol string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rowHeader(popCol, interestCol)); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.RunName, r.FocalGroup, strconv.Itoa(r.Plan), strconv.Itoa(r.District), strconv.Itoa(r.Replicate),
			strconv.Itoa(r.NumDistricts), strconv.Itoa(r.Winners), r.ElectionMethod, r.VoterModel,
			strconv.Itoa(r.SimIndex), strconv.Itoa(r.FocalSeats), ftoa(r.TotalIVAP), ftoa(r.TotalVAP),
			ftoa(r.IProp), ftoa(r.CombinedSupport), r.Match, r.ProfileFile, r.SettingsFile,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePlans writes the plan-level CSV.
func WritePlans(w io.Writer, plans []PlanRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(planHeader); err != nil {
		return err
	}
	for _, p := range plans {
		rec := []string{
			strconv.Itoa(p.Plan), strconv.Itoa(p.NumDistricts), strconv.Itoa(p.Winners), p.VoterModel,
			strconv.Itoa(p.Replicate), strconv.Itoa(p.FocalSeats), strconv.Itoa(p.TotalSeats), ftoa(p.Share()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteOutputs writes the summary CSV, plan CSV and reference JSON.
func WriteOutputs(cfg *config.Config, scheme naming.Scheme, res *Result) error {
	if err := artifact.Write(scheme.SummaryCSV(), func(w io.Writer) error {
		return WriteRows(w, res.Rows, cfg.PopulationCol, cfg.InterestCol)
	}); err != nil {
		return err
	}
	if err := artifact.Write(scheme.PlanSummaryCSV(), func(w io.Writer) error { return WritePlans(w, res.Plans) }); err != nil {
		return err
	}
	return artifact.WriteJSON(scheme.ReferenceJSON(), ReferenceDoc{
		Reference:     res.Reference,
		Dropped:       res.Dropped,
		Distributions: res.Distributions,
	})
}

// Figure builds the histogram for one district configuration: one layer per
// voter model, plus combined-support and population-share markers scaled to
// seats.
func Figure(cfg *config.Config, dc config.DistrictConfig, ref Reference, plans []PlanRow) plot.Figure {
	seats := float64(cfg.TotalSeatsFor(dc))
	f := plot.Figure{
		Title:  fmt.Sprintf("%s: %s (%s)", cfg.RunName, display.Configuration(dc.NumDistricts, dc.Winners), dc.ElectionMethod()),
		XLabel: fmt.Sprintf("%s seats of %d", cfg.FocalGroup, int(seats)),
		YLabel: "plans",
	}
	for _, model := range cfg.VoterModels {
		var values []float64
		for _, p := range plans {
			if p.NumDistricts == dc.NumDistricts && p.Winners == dc.Winners && p.VoterModel == model {
				values = append(values, float64(p.FocalSeats))
			}
		}
		if len(values) == 0 {
			continue
		}
		f.Series = append(f.Series, plot.Series{
			Label:  display.VoterModel(model),
			Color:  display.ModelColor(model),
			Values: values,
		})
	}
	f.Markers = []plot.Marker{
		{Label: "Combined support", X: ref.CombinedSupport * seats, Color: color.Black},
		{Label: "Population share", X: ref.IProp * seats, Color: color.Gray{Y: 0x70}},
	}
	return f
}

// WriteFigures saves one histogram per district configuration that has data.
func WriteFigures(cfg *config.Config, scheme naming.Scheme, res *Result) ([]string, error) {
	var paths []string
	for _, dc := range cfg.DistrictConfigs {
		f := Figure(cfg, dc, res.Reference, res.Plans)
		if len(f.Series) == 0 {
			continue
		}
		path := scheme.FigurePath(dc.NumDistricts, dc.Winners, dc.ElectionMethod())
		if err := plot.Save(path, f); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
