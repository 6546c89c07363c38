package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgriffen/bnet/internal/config"
	"github.com/mgriffen/bnet/internal/visualization"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the network structure",
		Long: `Output the network structure in DOT (Graphviz) or JSON format.

DOT output renders with any Graphviz tool, for example:
  bnet graph | dot -Tsvg -o network.svg

Examples:
  bnet graph
  bnet graph --format json
  bnet graph --network my-network.yaml -o network.dot`,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatArg, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			format, err := visualization.ParseFormat(formatArg)
			if err != nil {
				return err
			}

			doc, net, err := openNetwork(cmd, cfg)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			switch format {
			case visualization.FormatDOT:
				fmt.Fprint(w, visualization.RenderDOT(net, doc.Name))
			case visualization.FormatJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(visualization.RenderJSON(net, doc.Name)); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
			}

			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Graph written to %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().StringP("output", "o", "", "Output file path (default stdout)")

	return cmd
}
