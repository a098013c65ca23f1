package main

import (
	"context"

	"github.com/spf13/cobra"

	"repsim/internal/logging"
	mcpserver "repsim/internal/mcp"
	"repsim/internal/pipeline"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

var serveFlags struct {
	config string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing the run's configurations,
stored summaries and stage execution as tools.

The server exits when its parent process goes away.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addConfigFlag(serveCmd, &serveFlags.config)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(serveFlags.config)
	if err != nil {
		return err
	}
	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := mcpserver.NewServer(cfg, st, version)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	mcpserver.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting repsim MCP server over stdio", "run", cfg.RunName)
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
