package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mgriffen/bnet/internal/config"
	"github.com/mgriffen/bnet/internal/logging"
	"github.com/mgriffen/bnet/internal/runstore"
	"github.com/mgriffen/bnet/sampling"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <event>",
		Short: "Estimate the probability of a query event",
		Long: `Estimate the probability that the query event holds, optionally
conditioned on evidence, by sampling the network.

The query and evidence are comma separated name=value assignments.
Without evidence the estimate is the unconditioned prior probability;
with evidence the default method is rejection sampling. An impossible
evidence combination yields an undefined estimate, which is reported
as a result, not an error.

Examples:
  bnet query "Exposure=true"
  bnet query "Exposure=true" --evidence "Aches=true,Thermometer=true"
  bnet query "Exposure=true" --evidence "Aches=true" --method likelihood --samples 50000
  bnet query "Fever=true" --seed 7 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			evidenceArg, _ := cmd.Flags().GetString("evidence")
			methodArg, _ := cmd.Flags().GetString("method")
			samples, _ := cmd.Flags().GetInt("samples")
			seedArg, _ := cmd.Flags().GetUint64("seed")
			noRecord, _ := cmd.Flags().GetBool("no-record")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			query, err := sampling.ParseEvent(args[0])
			if err != nil {
				return err
			}
			if len(query) == 0 {
				return fmt.Errorf("query must assign at least one variable")
			}

			evidence, err := sampling.ParseEvent(evidenceArg)
			if err != nil {
				return err
			}

			method, err := resolveMethod(methodArg, evidence, cfg)
			if err != nil {
				return err
			}

			n := samples
			if n == 0 {
				n = cfg.Sampling.SampleCount
			}
			if n <= 0 {
				return fmt.Errorf("samples must be positive, got %d", n)
			}

			seed := seedArg
			if seed == 0 {
				seed = cfg.Sampling.Seed
			}
			seed = pickSeed(seed)

			doc, net, err := openNetwork(cmd, cfg)
			if err != nil {
				return err
			}

			start := time.Now()
			engine := sampling.NewEngine(net, sampling.Config{Seed: seed})
			detail, err := sampling.EstimateDetail(engine, method, query, evidence, n)
			elapsed := time.Since(start)

			undefined := false
			if err != nil {
				if !errors.Is(err, sampling.ErrUndefined) {
					return err
				}
				// An undefined estimate is still an answer
				undefined = true
				detail.Method = method
				detail.Generated = n
			}

			runID := ""
			if !noRecord {
				runID = recordRun(cmd, cfg, runstore.Run{
					Network:     doc.Name,
					Method:      string(method),
					Query:       query.String(),
					Evidence:    evidence.String(),
					SampleCount: n,
					Seed:        seed,
					Estimate:    detail.Value,
					Undefined:   undefined,
					Generated:   detail.Generated,
					Accepted:    detail.Accepted,
					TotalWeight: detail.TotalWeight,
					ElapsedMS:   elapsed.Milliseconds(),
					CreatedAt:   time.Now(),
				})
			}

			if rl := logging.NewRunLogger(config.DefaultDir(), cfg.Logging.Level); rl != nil {
				fields := map[string]any{
					"network":    doc.Name,
					"method":     string(method),
					"query":      query.String(),
					"samples":    n,
					"seed":       seed,
					"estimate":   detail.Value,
					"undefined":  undefined,
					"elapsed_ms": elapsed.Milliseconds(),
				}
				if len(evidence) > 0 {
					fields["evidence"] = evidence.String()
				}
				if runID != "" {
					fields["run_id"] = runID
				}
				rl.Log("query", fields)
				rl.Close()
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				result := map[string]interface{}{
					"network":    doc.Name,
					"method":     string(method),
					"query":      query.String(),
					"estimate":   detail.Value,
					"undefined":  undefined,
					"samples":    detail.Generated,
					"accepted":   detail.Accepted,
					"matched":    detail.Matched,
					"seed":       seed,
					"elapsed_ms": elapsed.Milliseconds(),
				}
				if len(evidence) > 0 {
					result["evidence"] = evidence.String()
				}
				if method == sampling.MethodLikelihood {
					result["total_weight"] = detail.TotalWeight
				}
				if runID != "" {
					result["run_id"] = runID
				}
				json.NewEncoder(out).Encode(result)
				return nil
			}

			if undefined {
				fmt.Fprintf(out, "P(%s) is undefined: no information survived the evidence after %d samples\n",
					condition(query, evidence), n)
				return nil
			}

			fmt.Fprintf(out, "P(%s) = %.4f\n", condition(query, evidence), detail.Value)
			fmt.Fprintf(out, "  Method:  %s\n", method)
			switch method {
			case sampling.MethodRejection:
				fmt.Fprintf(out, "  Samples: %d generated, %d accepted, %d matched\n",
					detail.Generated, detail.Accepted, detail.Matched)
			case sampling.MethodLikelihood:
				fmt.Fprintf(out, "  Samples: %d generated, total weight %.2f\n",
					detail.Generated, detail.TotalWeight)
			default:
				fmt.Fprintf(out, "  Samples: %d generated, %d matched\n",
					detail.Generated, detail.Matched)
			}
			fmt.Fprintf(out, "  Seed:    %d\n", seed)
			if runID != "" {
				fmt.Fprintf(out, "  Run:     %s\n", runID)
			}

			return nil
		},
	}

	cmd.Flags().String("evidence", "", "Evidence assignments, e.g. \"Aches=true,Thermometer=true\"")
	cmd.Flags().String("method", "", "Estimation method: prior, rejection, or likelihood (default from config)")
	cmd.Flags().Int("samples", 0, "Number of samples to draw (default from config)")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 = draw a fresh seed)")
	cmd.Flags().Bool("no-record", false, "Skip recording the run in the history store")

	return cmd
}

// recordRun saves the run to the configured history store. Recording is
// best-effort: failures warn on stderr and never fail the query.
func recordRun(cmd *cobra.Command, cfg *config.BnetConfig, run runstore.Run) string {
	store, err := openRunStore(cfg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cannot open run store: %v\n", err)
		return ""
	}
	if store == nil {
		return ""
	}
	defer store.Close()

	id, err := store.SaveRun(context.Background(), run)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: cannot record run: %v\n", err)
		return ""
	}
	return id
}
