package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgriffen/bnet/bayes"
	"github.com/mgriffen/bnet/internal/netdef"
	"github.com/mgriffen/bnet/sampling"
)

// demoQuestion is one inference question the demo answers on the fever
// network.
type demoQuestion struct {
	label    string
	query    sampling.Event
	evidence sampling.Event
}

func demoQuestions() []demoQuestion {
	exposure := bayes.Variable("Exposure")
	aches := bayes.Variable("Aches")
	thermometer := bayes.Variable("Thermometer")

	return []demoQuestion{
		{"P(Exposure)", sampling.Event{exposure: true}, nil},
		{"P(Thermometer)", sampling.Event{thermometer: true}, nil},
		{"P(Aches)", sampling.Event{aches: true}, nil},
		{"P(Aches, Thermometer)", sampling.Event{aches: true, thermometer: true}, nil},
		{"P(Exposure | Aches)", sampling.Event{exposure: true}, sampling.Event{aches: true}},
		{"P(Exposure | Aches, Thermometer)", sampling.Event{exposure: true}, sampling.Event{aches: true, thermometer: true}},
	}
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the fever example end to end",
		Long: `Answer a fixed set of inference questions on the built-in fever
network, comparing estimation methods on each.

Unconditioned questions also report the prior estimate; every question
reports rejection sampling and likelihood weighting. The exact prior
P(Exposure) is 0.25, so the first line doubles as a sanity check.

Examples:
  bnet demo
  bnet demo --samples 100000 --seed 7
  bnet demo --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			samples, _ := cmd.Flags().GetInt("samples")
			seedArg, _ := cmd.Flags().GetUint64("seed")

			if samples <= 0 {
				return fmt.Errorf("samples must be positive, got %d", samples)
			}

			net, err := netdef.Fever().Compile()
			if err != nil {
				return err
			}

			seed := pickSeed(seedArg)

			// One engine per method so all questions share a stream
			prior := sampling.NewPriorEstimator(sampling.NewEngine(net, sampling.Config{Seed: seed}))
			rejection := sampling.NewRejectionEstimator(sampling.NewEngine(net, sampling.Config{Seed: seed}))
			likelihood := sampling.NewLikelihoodWeightingEstimator(sampling.NewEngine(net, sampling.Config{Seed: seed}))

			type answer struct {
				Label     string                 `json:"label"`
				Query     string                 `json:"query"`
				Evidence  string                 `json:"evidence,omitempty"`
				Estimates map[string]interface{} `json:"estimates"`
			}

			answers := make([]answer, 0, len(demoQuestions()))
			for _, q := range demoQuestions() {
				estimates := make(map[string]interface{})

				if len(q.evidence) == 0 {
					value, err := prior.Estimate(q.query, samples)
					if err != nil {
						return err
					}
					estimates["prior"] = value
				}

				value, err := rejection.Estimate(q.query, q.evidence, samples)
				switch {
				case err == nil:
					estimates["rejection"] = value
				case errors.Is(err, sampling.ErrUndefined):
					estimates["rejection"] = nil
				default:
					return err
				}

				value, err = likelihood.Estimate(q.query, q.evidence, samples)
				switch {
				case err == nil:
					estimates["likelihood"] = value
				case errors.Is(err, sampling.ErrUndefined):
					estimates["likelihood"] = nil
				default:
					return err
				}

				answers = append(answers, answer{
					Label:     q.label,
					Query:     q.query.String(),
					Evidence:  q.evidence.String(),
					Estimates: estimates,
				})
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"network": "fever",
					"samples": samples,
					"seed":    seed,
					"answers": answers,
				})
				return nil
			}

			fmt.Fprintf(out, "Fever network demo: n=%d, seed %d\n\n", samples, seed)
			for _, a := range answers {
				fmt.Fprintln(out, a.Label)
				for _, m := range []string{"prior", "rejection", "likelihood"} {
					v, ok := a.Estimates[m]
					if !ok {
						continue
					}
					if v == nil {
						fmt.Fprintf(out, "  %-11s undefined\n", m+":")
						continue
					}
					fmt.Fprintf(out, "  %-11s %.4f\n", m+":", v)
				}
				fmt.Fprintln(out)
			}

			return nil
		},
	}

	cmd.Flags().Int("samples", 10000, "Number of samples per estimate")
	cmd.Flags().Uint64("seed", 0, "Random seed (0 = draw a fresh seed)")

	return cmd
}
