package simulation

import (
	"testing"

	"github.com/mgriffen/bnet/sampling"
)

// Runner answers scenario questions against the real sampling engine
// and estimators.
type Runner struct {
	t *testing.T
}

// NewRunner creates a scenario runner.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	return &Runner{t: t}
}

// Run answers every question in the scenario and returns the collected
// results. Broken scenario wiring (no network, no questions) is fatal;
// estimator errors such as undefined results are recorded per question
// so scenarios can assert on them.
func (r *Runner) Run(scenario Scenario) ScenarioResult {
	r.t.Helper()

	if scenario.Network == nil {
		r.t.Fatalf("Run(%s): scenario has no network", scenario.Name)
	}
	if len(scenario.Questions) == 0 {
		r.t.Fatalf("Run(%s): scenario has no questions", scenario.Name)
	}

	n := scenario.SampleCount
	if n <= 0 {
		n = 10000
	}

	results := make([]QuestionResult, len(scenario.Questions))
	for i, q := range scenario.Questions {
		// Fresh engine per question: every question sees the same
		// stream regardless of its position in the scenario.
		engine := sampling.NewEngine(scenario.Network, sampling.Config{Seed: scenario.Seed})
		detail, err := sampling.EstimateDetail(engine, q.Method, q.Query, q.Evidence, n)
		results[i] = QuestionResult{Question: q, Detail: detail, Err: err}
	}

	return ScenarioResult{Name: scenario.Name, Results: results}
}
