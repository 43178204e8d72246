package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/wesm/suitedash/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for Claude Desktop integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows Claude Desktop (or any MCP client) to read dashboard data
through the configured backend using the list_records, get_builder, and
run_query tools.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "suitedash": {
        "command": "suitedash",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newBackendClient()
		if err != nil {
			return err
		}
		return mcpserver.Serve(cmd.Context(), client, Version)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
