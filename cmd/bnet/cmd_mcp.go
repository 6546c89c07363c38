package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgriffen/bnet/internal/config"
	"github.com/mgriffen/bnet/internal/mcp"
)

func newMCPServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-serve",
		Short: "Run the MCP server for agent integration",
		Long: `Start a Model Context Protocol server exposing bnet's inference
tools (bnet_infer, bnet_network, bnet_sweep) over stdio.

Stdout carries the protocol, so logs go to stderr. Network files are
only read from the --root directory and ~/.bnet/networks; the built-in
fever network is always available.

Example Claude Desktop config:
  {
    "mcpServers": {
      "bnet": {
        "command": "bnet",
        "args": ["mcp-serve", "--root", "/path/to/networks"]
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			storePath, _ := cmd.Flags().GetString("store")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if storePath == "" {
				storePath = cfg.Store.Path
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:      "bnet",
				Version:   version,
				Root:      root,
				StorePath: storePath,
				LogLevel:  cfg.Logging.Level,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			return server.Run(context.Background())
		},
	}

	cmd.Flags().String("root", ".", "Directory network definition files may be read from")
	cmd.Flags().String("store", "", "Run store database (defaults to store.path)")

	return cmd
}
