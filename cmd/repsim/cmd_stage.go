package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"repsim/internal/display"
	"repsim/internal/elections"
	"repsim/internal/pipeline"
	"repsim/internal/profiles"
	"repsim/internal/settings"
	"repsim/internal/summary"
)

var stageShort = map[string]string{
	settings.Stage:  "Derive per-district bloc settings from the subsampled plan trace",
	profiles.Stage:  "Generate ranked ballot profiles for every settings artifact",
	elections.Stage: "Tabulate every profile and write winner sets",
	summary.Stage:   "Aggregate winner sets into focal seat distributions and figures",
}

// stageCmds builds one subcommand per pipeline stage.
func stageCmds() []*cobra.Command {
	var cmds []*cobra.Command
	for _, stage := range pipeline.Stages {
		var cfgPath string
		cmd := &cobra.Command{
			Use:   stage,
			Short: stageShort[stage],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runStages(cmd, cfgPath, stage)
			},
		}
		addConfigFlag(cmd, &cfgPath)
		cmds = append(cmds, cmd)
	}
	return cmds
}

// runStages executes the named stages in order (all stages if none are
// named) and prints one line per stage.
func runStages(cmd *cobra.Command, cfgPath string, stages ...string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	r := pipeline.New(cfg, st)
	var reports []*pipeline.Report
	if len(stages) == 0 {
		reports, err = r.RunAll(cmd.Context())
	} else {
		for _, stage := range stages {
			var rep *pipeline.Report
			rep, err = r.RunStage(cmd.Context(), stage)
			if rep != nil {
				reports = append(reports, rep)
			}
			if err != nil {
				break
			}
		}
	}

	out := cmd.OutOrStdout()
	for _, rep := range reports {
		fmt.Fprintf(out, "%-10s ok=%d failed=%d skipped=%d (%s)\n",
			display.Stage(rep.Stage), rep.Counts.OK, rep.Counts.Failed, rep.Counts.Skipped,
			rep.Duration.Round(time.Millisecond))
		if rep.Summary != nil {
			for _, f := range rep.Summary.Figures {
				fmt.Fprintf(out, "  figure: %s\n", f)
			}
		}
	}
	return err
}
