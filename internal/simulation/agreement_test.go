package simulation

import (
	"testing"

	"github.com/mgriffen/bnet/sampling"
)

// TestMethodsAgree runs rejection and likelihood weighting on the same
// conditionals. Both approximate the same posterior, so a systematic
// gap between them flags estimator bias.
func TestMethodsAgree(t *testing.T) {
	r := NewRunner(t)

	result := r.Run(Scenario{
		Name:        "method-agreement",
		Network:     feverNet(t),
		SampleCount: 10000,
		Seed:        11,
		Questions: []Question{
			{
				Label:    "rejection given aches",
				Method:   sampling.MethodRejection,
				Query:    sampling.Event{"Exposure": true},
				Evidence: sampling.Event{"Aches": true},
				Exact:    0.375, Tolerance: 0.05,
			},
			{
				Label:    "likelihood given aches",
				Method:   sampling.MethodLikelihood,
				Query:    sampling.Event{"Exposure": true},
				Evidence: sampling.Event{"Aches": true},
				Exact:    0.375, Tolerance: 0.05,
			},
			{
				Label:    "rejection posterior",
				Method:   sampling.MethodRejection,
				Query:    sampling.Event{"Exposure": true},
				Evidence: sampling.Event{"Aches": true, "Thermometer": true},
				Exact:    exactPosterior, Tolerance: 0.08,
			},
			{
				Label:    "likelihood posterior",
				Method:   sampling.MethodLikelihood,
				Query:    sampling.Event{"Exposure": true},
				Evidence: sampling.Event{"Aches": true, "Thermometer": true},
				Exact:    exactPosterior, Tolerance: 0.08,
			},
		},
	})

	AssertAllDefined(t, result)
	AssertWithinTolerance(t, result)
	AssertEstimatesAgree(t, result, "rejection given aches", "likelihood given aches", 0.1)
	AssertEstimatesAgree(t, result, "rejection posterior", "likelihood posterior", 0.1)

	if max := MaxAbsError(result); max > 0.08 {
		t.Errorf("max absolute error %.6f exceeds 0.08", max)
	}
}
