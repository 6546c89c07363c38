package sampling

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/mgriffen/bnet/bayes"
)

// The fever network admits exact answers, so the statistical assertions
// below compare seeded estimates against hand-computed probabilities
// with tolerances several standard errors wide:
//
//	P(Exposure)                          = 0.25
//	P(Exposure | Aches, Thermometer)     = 0.584239...
const feverPosterior = 0.5842391304347826

func TestPriorEstimator_Exposure(t *testing.T) {
	e := NewEngine(feverNet(t), Config{Seed: 42})
	res, err := NewPriorEstimator(e).Detail(Event{"Exposure": true}, 10000)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}

	if math.Abs(res.Value-0.25) > 0.025 {
		t.Errorf("P(Exposure) = %v, want 0.25 within 0.025", res.Value)
	}
	if res.Generated != 10000 || res.Accepted != 10000 {
		t.Errorf("expected all %d samples accepted, got generated=%d accepted=%d",
			10000, res.Generated, res.Accepted)
	}
	if got := float64(res.Matched) / float64(res.Generated); got != res.Value {
		t.Errorf("tallies disagree with value: %v vs %v", got, res.Value)
	}
	if res.Method != MethodPrior {
		t.Errorf("method = %q, want %q", res.Method, MethodPrior)
	}
}

func TestPriorEstimator_DegenerateProbabilities(t *testing.T) {
	net, err := bayes.Compile([]bayes.Definition{
		{Name: "Always", Table: []bayes.Entry{{P: 1}}},
		{Name: "Nope", Table: []bayes.Entry{{P: 0}}},
	})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	p := NewPriorEstimator(NewEngine(net, Config{Seed: 9}))

	got, err := p.Estimate(Event{"Always": true}, 200)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got != 1.0 {
		t.Errorf("P(Always) = %v, want exactly 1", got)
	}

	got, err = p.Estimate(Event{"Nope": true}, 200)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got != 0.0 {
		t.Errorf("P(Nope) = %v, want exactly 0", got)
	}
}

func TestPriorEstimator_EmptyQuery(t *testing.T) {
	e := NewEngine(feverNet(t), Config{Seed: 42})
	got, err := NewPriorEstimator(e).Estimate(Event{}, 50)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got != 1.0 {
		t.Errorf("empty query estimate = %v, want 1", got)
	}
}

func TestPriorEstimator_InvalidInput(t *testing.T) {
	p := NewPriorEstimator(NewEngine(feverNet(t), Config{Seed: 42}))

	if _, err := p.Estimate(Event{"Exposure": true}, 0); err == nil {
		t.Error("expected error for zero sample count")
	}
	if _, err := p.Estimate(Event{"Exposure": true}, -5); err == nil {
		t.Error("expected error for negative sample count")
	}
	if _, err := p.Estimate(Event{"Nope": true}, 10); err == nil {
		t.Error("expected error for unknown query variable")
	}
	if _, err := p.Samples(0); err == nil {
		t.Error("expected error for zero sample count")
	}
}

func TestPriorEstimator_Samples(t *testing.T) {
	net := feverNet(t)
	samples, err := NewPriorEstimator(NewEngine(net, Config{Seed: 42})).Samples(25)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(samples) != 25 {
		t.Fatalf("got %d samples, want 25", len(samples))
	}
	for _, s := range samples {
		assertComplete(t, net, s)
	}
}

func TestRejectionEstimator_FeverPosterior(t *testing.T) {
	e := NewEngine(feverNet(t), Config{Seed: 7})
	res, err := NewRejectionEstimator(e).Detail(
		Event{"Exposure": true},
		Event{"Aches": true, "Thermometer": true},
		10000,
	)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}

	if math.Abs(res.Value-feverPosterior) > 0.08 {
		t.Errorf("P(Exposure | Aches, Thermometer) = %v, want %v within 0.08",
			res.Value, feverPosterior)
	}
	if res.Accepted == 0 || res.Accepted >= res.Generated {
		t.Errorf("expected some but not all samples accepted, got %d of %d",
			res.Accepted, res.Generated)
	}
	if res.Matched > res.Accepted {
		t.Errorf("matched %d exceeds accepted %d", res.Matched, res.Accepted)
	}
}

func TestRejectionEstimator_SamplesSatisfyEvidence(t *testing.T) {
	e := NewEngine(feverNet(t), Config{Seed: 11})
	evidence := Event{"Aches": true}

	kept, err := NewRejectionEstimator(e).Samples(2000, evidence)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(kept) == 0 || len(kept) >= 2000 {
		t.Fatalf("expected a strict subset of survivors, got %d of 2000", len(kept))
	}
	for _, s := range kept {
		if !s.Matches(evidence) {
			t.Fatal("surviving sample contradicts the evidence")
		}
	}
}

func TestRejectionEstimator_ImpossibleEvidence(t *testing.T) {
	e := NewEngine(zeroChildNet(t), Config{Seed: 3})
	_, err := NewRejectionEstimator(e).Estimate(Event{"Root": true}, Event{"Never": true}, 500)
	if err == nil {
		t.Fatal("expected error for impossible evidence")
	}
	if !errors.Is(err, ErrNoAcceptedSamples) {
		t.Errorf("expected ErrNoAcceptedSamples, got %v", err)
	}
	if !errors.Is(err, ErrUndefined) {
		t.Errorf("expected the error to be in the ErrUndefined family, got %v", err)
	}
}

func TestRejectionEstimator_ConflictingQueryEvidence(t *testing.T) {
	e := NewEngine(feverNet(t), Config{Seed: 42})
	_, err := NewRejectionEstimator(e).Estimate(Event{"Aches": true}, Event{"Aches": false}, 100)
	if err == nil {
		t.Fatal("expected error for conflicting query and evidence")
	}
	if !strings.Contains(err.Error(), "Aches") {
		t.Errorf("error should name the conflicting variable, got %q", err)
	}
	if errors.Is(err, ErrUndefined) {
		t.Errorf("a conflict is a usage error, not an undefined estimate: %v", err)
	}
}

func TestRejectionEstimator_ConsistentOverlap(t *testing.T) {
	// A query variable repeated in the evidence with the same value is
	// satisfied by every surviving sample.
	e := NewEngine(feverNet(t), Config{Seed: 42})
	got, err := NewRejectionEstimator(e).Estimate(Event{"Aches": true}, Event{"Aches": true}, 2000)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if got != 1.0 {
		t.Errorf("estimate = %v, want exactly 1", got)
	}
}

func TestLikelihoodEstimator_FeverPosterior(t *testing.T) {
	e := NewEngine(feverNet(t), Config{Seed: 1234})
	res, err := NewLikelihoodWeightingEstimator(e).Detail(
		Event{"Exposure": true},
		Event{"Aches": true, "Thermometer": true},
		10000,
	)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}

	if math.Abs(res.Value-feverPosterior) > 0.08 {
		t.Errorf("P(Exposure | Aches, Thermometer) = %v, want %v within 0.08",
			res.Value, feverPosterior)
	}
	if res.Accepted != res.Generated {
		t.Errorf("likelihood weighting discards nothing, got accepted=%d generated=%d",
			res.Accepted, res.Generated)
	}
	if res.TotalWeight <= 0 {
		t.Errorf("total weight = %v, want positive", res.TotalWeight)
	}
	if res.MatchedWeight > res.TotalWeight {
		t.Errorf("matched weight %v exceeds total %v", res.MatchedWeight, res.TotalWeight)
	}
}

func TestLikelihoodEstimator_SamplesAgreeWithEvidence(t *testing.T) {
	e := NewEngine(feverNet(t), Config{Seed: 5})
	evidence := Event{"Aches": true, "Thermometer": true}

	samples, err := NewLikelihoodWeightingEstimator(e).Samples(500, evidence)
	if err != nil {
		t.Fatalf("Samples: %v", err)
	}
	if len(samples) != 500 {
		t.Fatalf("got %d samples, want 500", len(samples))
	}
	for _, ws := range samples {
		if !ws.Values.Matches(evidence) {
			t.Fatal("weighted sample contradicts the evidence")
		}
		// No fever table row is zero, so every weight is positive.
		if ws.Weight <= 0 {
			t.Fatalf("weight = %v, want positive", ws.Weight)
		}
	}
}

func TestLikelihoodEstimator_EmptyEvidence(t *testing.T) {
	// Without evidence every weight is exactly 1, so the weighted
	// estimate degenerates to match counting.
	e := NewEngine(feverNet(t), Config{Seed: 21})
	res, err := NewLikelihoodWeightingEstimator(e).Detail(Event{"Exposure": true}, Event{}, 1000)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if res.TotalWeight != 1000 {
		t.Errorf("total weight = %v, want exactly 1000", res.TotalWeight)
	}
	if got := float64(res.Matched) / 1000; got != res.Value {
		t.Errorf("value %v disagrees with match count %d", res.Value, res.Matched)
	}
}

func TestLikelihoodEstimator_ZeroWeight(t *testing.T) {
	e := NewEngine(zeroChildNet(t), Config{Seed: 3})
	_, err := NewLikelihoodWeightingEstimator(e).Estimate(Event{"Root": true}, Event{"Never": true}, 300)
	if err == nil {
		t.Fatal("expected error for zero-probability evidence")
	}
	if !errors.Is(err, ErrZeroWeight) {
		t.Errorf("expected ErrZeroWeight, got %v", err)
	}
	if !errors.Is(err, ErrUndefined) {
		t.Errorf("expected the error to be in the ErrUndefined family, got %v", err)
	}
}

func TestParseMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    Method
		wantErr bool
	}{
		{"prior", MethodPrior, false},
		{"forward", MethodPrior, false},
		{"simple", MethodPrior, false},
		{"rejection", MethodRejection, false},
		{"REJECTION", MethodRejection, false},
		{"reject", MethodRejection, false},
		{"likelihood", MethodLikelihood, false},
		{"likelihood-weighting", MethodLikelihood, false},
		{"lw", MethodLikelihood, false},
		{" rejection ", MethodRejection, false},
		{"gibbs", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMethod(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMethod(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMethod(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMethod(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEstimateDetail(t *testing.T) {
	net := feverNet(t)

	for _, method := range []Method{MethodPrior, MethodRejection, MethodLikelihood} {
		engine := NewEngine(net, Config{Seed: 42})
		res, err := EstimateDetail(engine, method, Event{"Exposure": true}, nil, 2000)
		if err != nil {
			t.Errorf("EstimateDetail(%v): %v", method, err)
			continue
		}
		if res.Method != method {
			t.Errorf("EstimateDetail(%v) reported method %v", method, res.Method)
		}
		if res.Value < 0.15 || res.Value > 0.35 {
			t.Errorf("EstimateDetail(%v) = %v, want near 0.25", method, res.Value)
		}
	}
}

func TestEstimateDetail_MethodMatchesEstimator(t *testing.T) {
	net := feverNet(t)
	query := Event{"Exposure": true}
	evidence := Event{"Aches": true}

	direct, err := NewRejectionEstimator(NewEngine(net, Config{Seed: 9})).Detail(query, evidence, 1000)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	dispatched, err := EstimateDetail(NewEngine(net, Config{Seed: 9}), MethodRejection, query, evidence, 1000)
	if err != nil {
		t.Fatalf("EstimateDetail: %v", err)
	}
	if direct != dispatched {
		t.Errorf("dispatched result %+v differs from direct %+v", dispatched, direct)
	}
}

func TestEstimateDetail_PriorRejectsEvidence(t *testing.T) {
	engine := NewEngine(feverNet(t), Config{Seed: 1})

	_, err := EstimateDetail(engine, MethodPrior, Event{"Exposure": true}, Event{"Aches": true}, 100)
	if err == nil {
		t.Fatal("expected an error for prior estimation with evidence")
	}
}

func TestEstimateDetail_UnknownMethod(t *testing.T) {
	engine := NewEngine(feverNet(t), Config{Seed: 1})

	_, err := EstimateDetail(engine, Method("gibbs"), Event{"Exposure": true}, nil, 100)
	if err == nil {
		t.Fatal("expected an error for an unknown method")
	}
}
