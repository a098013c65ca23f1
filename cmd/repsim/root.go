package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"repsim/internal/config"
	"repsim/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "repsim",
	Short: "Simulate minority representation across districting plans and voting systems",
	Long: `repsim turns a redistricting sampler's plan trace into per-district bloc
settings, generates ranked ballot profiles under several voter models,
tabulates them by plurality or STV, and summarizes the focal group's seats.`,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logging.Init(logging.ParseLevel(rootFlags.logLevel), rootFlags.logFormat, cmd.ErrOrStderr())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")

	for _, c := range stageCmds() {
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

// addConfigFlag registers the required --config flag on cmd.
func addConfigFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVar(dst, "config", "", "Run configuration file (YAML or JSON, required)")
	_ = cmd.MarkFlagRequired("config")
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
