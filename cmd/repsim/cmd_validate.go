package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repsim/internal/display"
)

var validateFlags struct {
	config string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate a run configuration without running anything",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	addConfigFlag(validateCmd, &validateFlags.config)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(validateFlags.config)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:            %s\n", cfg.RunName)
	fmt.Fprintf(out, "Output root:    %s\n", cfg.OutputRoot)
	fmt.Fprintf(out, "Focal group:    %s\n", cfg.FocalGroup)
	fmt.Fprintf(out, "Subsamples:     %d of %d\n", cfg.NumSubsamples, cfg.ChainLength)
	fmt.Fprintf(out, "Voters x reps:  %d x %d\n", cfg.NumVoters, cfg.NumReps)
	fmt.Fprintf(out, "Voter models:  ")
	for _, m := range cfg.VoterModels {
		fmt.Fprintf(out, " %s", display.VoterModelWithCode(m))
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configurations:\n")
	for _, dc := range cfg.DistrictConfigs {
		fmt.Fprintf(out, "  %-26s %-10s %d seats\n",
			display.Configuration(dc.NumDistricts, dc.Winners), dc.ElectionMethod(), cfg.TotalSeatsFor(dc))
	}
	fmt.Fprintln(out, "configuration OK")
	return nil
}
