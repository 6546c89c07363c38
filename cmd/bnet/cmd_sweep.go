package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgriffen/bnet/bayes"
	"github.com/mgriffen/bnet/internal/config"
	"github.com/mgriffen/bnet/internal/logging"
	"github.com/mgriffen/bnet/sampling"
)

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep <event>",
		Short: "Estimate a query at increasing sample counts",
		Long: `Run the same estimate at a series of sample counts to show how it
converges as the sample budget grows.

The range is configurable; the default sweeps n from 20 up to 10000 in
steps of 100. Sample counts where the estimate is undefined are
reported as such rather than failing the sweep. --compare runs
rejection sampling and likelihood weighting over the same range side
by side.

Examples:
  bnet sweep "Exposure=true" --evidence "Aches=true,Thermometer=true"
  bnet sweep "Exposure=true" --evidence "Aches=true" --start 100 --stop 2000 --step 100
  bnet sweep "Exposure=true" --evidence "Aches=true,Thermometer=true" --compare --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			evidenceArg, _ := cmd.Flags().GetString("evidence")
			methodArg, _ := cmd.Flags().GetString("method")
			startArg, _ := cmd.Flags().GetInt("start")
			stopArg, _ := cmd.Flags().GetInt("stop")
			stepArg, _ := cmd.Flags().GetInt("step")
			seedArg, _ := cmd.Flags().GetUint64("seed")
			compare, _ := cmd.Flags().GetBool("compare")

			if compare && methodArg != "" {
				return fmt.Errorf("cannot combine --method with --compare")
			}

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

			method := sampling.MethodRejection
			if methodArg != "" {
				method, err = sampling.ParseMethod(methodArg)
				if err != nil {
					return err
				}
			}

			sweepCfg := sampling.SweepConfig{
				Start:  startArg,
				Stop:   stopArg,
				Step:   stepArg,
				Method: method,
			}
			if sweepCfg.Start == 0 {
				sweepCfg.Start = cfg.Sweep.Start
			}
			if sweepCfg.Stop == 0 {
				sweepCfg.Stop = cfg.Sweep.Stop
			}
			if sweepCfg.Step == 0 {
				sweepCfg.Step = cfg.Sweep.Step
			}

			doc, net, err := openNetwork(cmd, cfg)
			if err != nil {
				return err
			}

			seed := seedArg
			if seed == 0 {
				seed = cfg.Sampling.Seed
			}
			seed = pickSeed(seed)

			out := cmd.OutOrStdout()

			if compare {
				rejCfg := sweepCfg
				rejCfg.Method = sampling.MethodRejection
				lwCfg := sweepCfg
				lwCfg.Method = sampling.MethodLikelihood

				rej, err := runSeries(net, rejCfg, query, evidence, seed)
				if err != nil {
					return err
				}
				lw, err := runSeries(net, lwCfg, query, evidence, seed)
				if err != nil {
					return err
				}

				logSweep(cfg.Logging.Level, doc.Name, query, evidence, seed, sweepCfg,
					series{sampling.MethodRejection, rej},
					series{sampling.MethodLikelihood, lw})

				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"network":  doc.Name,
						"query":    query.String(),
						"evidence": evidence.String(),
						"seed":     seed,
						"series": map[string]interface{}{
							"rejection":  pointMaps(rej),
							"likelihood": pointMaps(lw),
						},
					})
					return nil
				}

				fmt.Fprintf(out, "Sweep of P(%s), seed %d:\n\n", condition(query, evidence), seed)
				fmt.Fprintf(out, "%9s  %11s  %11s\n", "n", "rejection", "likelihood")
				for i := range rej {
					fmt.Fprintf(out, "%9d  %11s  %11s\n", rej[i].N, formatPoint(rej[i]), formatPoint(lw[i]))
				}
				return nil
			}

			points, err := runSeries(net, sweepCfg, query, evidence, seed)
			if err != nil {
				return err
			}

			undefinedCount := 0
			for _, p := range points {
				if p.Undefined {
					undefinedCount++
				}
			}

			logSweep(cfg.Logging.Level, doc.Name, query, evidence, seed, sweepCfg,
				series{sweepCfg.Method, points})

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"network":         doc.Name,
					"method":          string(sweepCfg.Method),
					"query":           query.String(),
					"evidence":        evidence.String(),
					"seed":            seed,
					"points":          pointMaps(points),
					"undefined_count": undefinedCount,
				})
				return nil
			}

			fmt.Fprintf(out, "Sweep of P(%s) via %s, seed %d:\n\n", condition(query, evidence), sweepCfg.Method, seed)
			fmt.Fprintf(out, "%9s  %11s\n", "n", "estimate")
			for _, p := range points {
				fmt.Fprintf(out, "%9d  %11s\n", p.N, formatPoint(p))
			}
			if undefinedCount == len(points) {
				fmt.Fprintf(out, "\nEvery sample count was undefined; the evidence may be impossible.\n")
			} else if undefinedCount > 0 {
				fmt.Fprintf(out, "\n%d of %d sample counts were undefined.\n", undefinedCount, len(points))
			}

			return nil
		},
	}

	cmd.Flags().String("evidence", "", "Evidence assignments to condition on")
	cmd.Flags().String("method", "", "Estimation method: prior, rejection, or likelihood (default rejection)")
	cmd.Flags().Int("start", 0, "First sample count (default from config)")
	cmd.Flags().Int("stop", 0, "Stop sample count, exclusive (default from config)")
	cmd.Flags().Int("step", 0, "Sample count increment (default from config)")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 = draw a fresh seed)")
	cmd.Flags().Bool("compare", false, "Sweep rejection and likelihood weighting side by side")

	return cmd
}

// series pairs a method with its sweep points for the run log.
type series struct {
	method sampling.Method
	points []sampling.Point
}

// logSweep writes a sweep summary to the run log. At trace level each
// point of each series is logged as well.
func logSweep(level, network string, query, evidence sampling.Event, seed uint64, rng sampling.SweepConfig, results ...series) {
	rl := logging.NewRunLogger(config.DefaultDir(), level)
	if rl == nil {
		return
	}
	defer rl.Close()

	methods := make([]string, len(results))
	total := 0
	undefined := 0
	for i, s := range results {
		methods[i] = string(s.method)
		total += len(s.points)
		for _, p := range s.points {
			if p.Undefined {
				undefined++
			}
		}
	}

	fields := map[string]any{
		"network":         network,
		"methods":         methods,
		"query":           query.String(),
		"seed":            seed,
		"start":           rng.Start,
		"stop":            rng.Stop,
		"step":            rng.Step,
		"points":          total,
		"undefined_count": undefined,
	}
	if len(evidence) > 0 {
		fields["evidence"] = evidence.String()
	}
	rl.Log("sweep", fields)

	if logging.ParseLevel(level) != logging.LevelTrace {
		return
	}
	for _, s := range results {
		for _, p := range s.points {
			point := map[string]any{
				"method": string(s.method),
				"n":      p.N,
			}
			if p.Undefined {
				point["undefined"] = true
			} else {
				point["estimate"] = p.Estimate
			}
			rl.Log("sweep_point", point)
		}
	}
}

// runSeries sweeps one method over the range with a fresh engine. A
// fully undefined series comes back as points flagged undefined rather
// than an error, so tables and comparisons stay aligned.
func runSeries(net *bayes.Network, cfg sampling.SweepConfig, query, evidence sampling.Event, seed uint64) ([]sampling.Point, error) {
	engine := sampling.NewEngine(net, sampling.Config{Seed: seed})
	sweep := sampling.NewSweep(engine, cfg)

	points, err := sweep.Run(query, evidence)
	if err == nil {
		return points, nil
	}
	if !errors.Is(err, sampling.ErrUndefined) {
		return nil, err
	}

	cfg = sweep.Config()
	points = points[:0]
	for n := cfg.Start; n < cfg.Stop; n += cfg.Step {
		points = append(points, sampling.Point{N: n, Undefined: true})
	}
	return points, nil
}

// pointMaps converts sweep points into JSON-friendly maps. Undefined
// points carry no estimate.
func pointMaps(points []sampling.Point) []map[string]interface{} {
	out := make([]map[string]interface{}, len(points))
	for i, p := range points {
		m := map[string]interface{}{"n": p.N}
		if p.Undefined {
			m["undefined"] = true
		} else {
			m["estimate"] = p.Estimate
		}
		out[i] = m
	}
	return out
}

// formatPoint renders one sweep measurement for the text table.
func formatPoint(p sampling.Point) string {
	if p.Undefined {
		return "undefined"
	}
	return fmt.Sprintf("%.6f", p.Estimate)
}
