package main

import (
	"github.com/spf13/cobra"
)

var runFlags struct {
	config string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run all stages in order: settings, profiles, elections, summarize",
	Long: `Run executes the four stages in order against one configuration,
stopping at the first stage that fails outright. Per-task failures are
counted and logged but never stop the run.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runStages(cmd, runFlags.config)
	},
}

func init() {
	addConfigFlag(runCmd, &runFlags.config)
}
