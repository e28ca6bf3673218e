// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pdiddy/matsearch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve search tools over the Model Context Protocol (stdio)",
	Long: `MCP exposes search_papers, get_paper and list_fields as MCP tools on
stdin/stdout. Logs go to stderr so they do not corrupt the protocol stream.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(cfg, buildOptions{})
		if err != nil {
			return err
		}
		defer p.Close()

		s := mcp.NewServer(p.svc, version, mcp.WithLogger(slog.Default().With("component", "mcp")))
		return s.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
