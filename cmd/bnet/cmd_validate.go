package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgriffen/bnet/internal/config"
	"github.com/mgriffen/bnet/internal/netdef"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a network definition",
		Long: `Validate a network definition.

This checks structure (acyclic graph, known parents, unique names,
probabilities inside [0,1]) and table coverage (one CPT row for every
parent combination). A definition that fails is reported, not treated
as a command failure; unreadable files are.

The file argument takes precedence over --network; without either, the
configured default network is checked.

Examples:
  bnet validate examples/fever.yaml
  bnet validate --network my-network.yaml --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			var doc *netdef.Document
			if len(args) == 1 {
				doc, err = netdef.Open(args[0])
			} else {
				doc, err = loadDocument(cmd, cfg)
			}
			if err != nil {
				return err
			}

			var issues []string
			net, err := doc.Compile()
			if err != nil {
				issues = append(issues, err.Error())
			} else if err := net.CheckTables(); err != nil {
				issues = append(issues, err.Error())
			}
			valid := len(issues) == 0

			out := cmd.OutOrStdout()
			if jsonOut {
				result := map[string]interface{}{
					"network": doc.Name,
					"valid":   valid,
				}
				if net != nil {
					result["variables"] = net.Len()
				}
				if len(issues) > 0 {
					result["issues"] = issues
				}
				json.NewEncoder(out).Encode(result)
				return nil
			}

			if valid {
				fmt.Fprintf(out, "✓ %s is valid: %d variables, complete tables\n", doc.Name, net.Len())
				return nil
			}

			fmt.Fprintf(out, "✗ %s has %d issue(s):\n\n", doc.Name, len(issues))
			for i, issue := range issues {
				fmt.Fprintf(out, "%d. %s\n", i+1, issue)
			}
			return nil
		},
	}
}
