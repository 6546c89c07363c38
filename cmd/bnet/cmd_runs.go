package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgriffen/bnet/internal/config"
	"github.com/mgriffen/bnet/internal/runstore"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded inference runs",
		Long: `List and show inference runs recorded by the query command.

Runs are stored in the SQLite database named by store.path; an empty
store.path disables recording.`,
	}

	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsShowCmd())

	return cmd
}

func newRunsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, err := openRunStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			if store == nil {
				return fmt.Errorf("run store is not configured; set store.path")
			}
			defer store.Close()

			runs, err := store.ListRuns(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"runs":  runs,
					"count": len(runs),
				})
				return nil
			}

			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			fmt.Fprintf(out, "Recorded runs (%d):\n\n", len(runs))
			for _, run := range runs {
				fmt.Fprintf(out, "%s  [%s]\n", run.ID, run.CreatedAt.Format(time.RFC3339))
				if run.Undefined {
					fmt.Fprintf(out, "   P(%s) = undefined\n", runCondition(run))
				} else {
					fmt.Fprintf(out, "   P(%s) = %.4f\n", runCondition(run), run.Estimate)
				}
				fmt.Fprintf(out, "   %s, n=%d, seed=%d, network=%s\n", run.Method, run.SampleCount, run.Seed, run.Network)
				fmt.Fprintln(out)
			}

			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "Maximum number of runs to list (0 = all)")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a recorded run in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			id := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, err := openRunStore(cfg)
			if err != nil {
				return fmt.Errorf("failed to open run store: %w", err)
			}
			if store == nil {
				return fmt.Errorf("run store is not configured; set store.path")
			}
			defer store.Close()

			run, err := store.GetRun(context.Background(), id)
			if err != nil {
				return fmt.Errorf("failed to read run: %w", err)
			}

			out := cmd.OutOrStdout()
			if run == nil {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": "run not found",
						"id":    id,
					})
				} else {
					fmt.Fprintf(out, "Run not found: %s\n", id)
				}
				return nil
			}

			if jsonOut {
				json.NewEncoder(out).Encode(run)
				return nil
			}

			fmt.Fprintf(out, "Run %s\n", run.ID)
			fmt.Fprintf(out, "  Created:  %s\n", run.CreatedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "  Network:  %s\n", run.Network)
			fmt.Fprintf(out, "  Query:    %s\n", run.Query)
			if run.Evidence != "" {
				fmt.Fprintf(out, "  Evidence: %s\n", run.Evidence)
			}
			fmt.Fprintf(out, "  Method:   %s\n", run.Method)
			fmt.Fprintf(out, "  Samples:  %d generated, %d accepted\n", run.Generated, run.Accepted)
			if run.TotalWeight > 0 {
				fmt.Fprintf(out, "  Weight:   %.4f total\n", run.TotalWeight)
			}
			fmt.Fprintf(out, "  Seed:     %d\n", run.Seed)
			if run.Undefined {
				fmt.Fprintf(out, "  Estimate: undefined\n")
			} else {
				fmt.Fprintf(out, "  Estimate: %.6f\n", run.Estimate)
			}
			fmt.Fprintf(out, "  Elapsed:  %dms\n", run.ElapsedMS)

			return nil
		},
	}
}

// runCondition formats a run's question as "query | evidence".
func runCondition(run runstore.Run) string {
	if run.Evidence == "" {
		return run.Query
	}
	return run.Query + " | " + run.Evidence
}
