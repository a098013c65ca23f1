package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repsim/internal/format"
	"repsim/internal/pipeline"
	"repsim/internal/summary"
)

var reportFlags struct {
	config string
	format string
	run    string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the plan-level focal seat distributions stored for a run",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	addConfigFlag(reportCmd, &reportFlags.config)
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.format, "format", "ascii", "Table format (ascii, markdown, csv)")
	f.StringVar(&reportFlags.run, "run", "", "Run name to report (default: the configured run)")
}

func runReport(cmd *cobra.Command, _ []string) error {
	mode, err := format.ParseMode(reportFlags.format)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(reportFlags.config)
	if err != nil {
		return err
	}
	run := reportFlags.run
	if run == "" {
		run = cfg.RunName
	}

	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ref, dropped, err := st.Reference(run)
	if err != nil {
		return fmt.Errorf("report: %w (run `repsim summarize` first)", err)
	}
	dists, err := st.Distributions(run)
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), summary.FormatReport(run, ref, dists, dropped, mode))
	return nil
}
