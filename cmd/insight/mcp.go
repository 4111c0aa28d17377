package main

import (
	"github.com/panbanda/insight/internal/mcpserver"
	"github.com/panbanda/insight/internal/service/analysis"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analyses as MCP tools over stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout. Register it with an
MCP client, for example:

  {"mcpServers": {"insight": {"command": "insight", "args": ["mcp"]}}}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc := newService(cmd.Context(), analysis.AllKinds...)
		return mcpserver.NewServer(version, svc).Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
