// ABOUTME: CLI command for starting the MCP server.
// ABOUTME: Runs a stdio MCP server exposing coverage, plans, and views of stored data.
package main

import (
	"github.com/harperreed/fitlog/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout and never fetches from the web API.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "fitlog": {
        "command": "fitlog",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  get_coverage      Coverage and gaps per metric
  get_update_plan   What an update would fetch
  read_day          One stored day table
  get_series        Daily, weekly, or monthly aggregates
  get_summary       Heart rate, sleep, steps, and calories summary

AVAILABLE RESOURCES:

  fitlog://coverage   Overall span and every gap
  fitlog://summary    Summary of the last seven days of data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		plannerOpts, err := cfg.PlannerOptions()
		if err != nil {
			return err
		}
		server, err := mcp.NewServer(store, plannerOpts)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()
		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
