// Package simulation provides a scenario harness for statistical
// accuracy experiments against the sampling estimators.
//
// A Scenario names a network, a fixed seed, and a set of probability
// questions whose exact answers are derived by hand. The Runner
// answers every question with the real engine and estimators (no
// mocks), and the assertion helpers compare the estimates against the
// exact values. These are guardrail tests: they catch estimator bias
// and convergence regressions that unit tests on single draws cannot
// see.
//
// Usage:
//
//	func TestFeverSuite(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:        "fever-suite",
//	        Network:     net,
//	        SampleCount: 10000,
//	        Seed:        42,
//	        Questions:   []simulation.Question{...},
//	    })
//	    simulation.AssertAllDefined(t, result)
//	    simulation.AssertWithinTolerance(t, result)
//	}
package simulation
