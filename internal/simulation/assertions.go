package simulation

import (
	"math"
	"testing"

	"github.com/mgriffen/bnet/sampling"
)

// AssertAllDefined asserts that every question produced an estimate.
func AssertAllDefined(t *testing.T, result ScenarioResult) {
	t.Helper()
	for _, qr := range result.Results {
		if qr.Err != nil {
			t.Errorf("AssertAllDefined: %s: question %q failed: %v", result.Name, qr.Question.Label, qr.Err)
		}
	}
}

// AssertWithinTolerance asserts that every defined estimate lands
// within its question's tolerance of the exact value.
func AssertWithinTolerance(t *testing.T, result ScenarioResult) {
	t.Helper()
	for _, qr := range result.Results {
		if qr.Err != nil {
			continue
		}
		diff := math.Abs(qr.Detail.Value - qr.Question.Exact)
		if diff > qr.Question.Tolerance {
			t.Errorf("AssertWithinTolerance: %s: %q = %.6f, exact %.6f, off by %.6f (allowed %.6f)",
				result.Name, qr.Question.Label, qr.Detail.Value, qr.Question.Exact, diff, qr.Question.Tolerance)
		}
	}
}

// AssertEstimatesAgree asserts that two labeled questions produced
// estimates within maxDelta of each other.
func AssertEstimatesAgree(t *testing.T, result ScenarioResult, labelA, labelB string, maxDelta float64) {
	t.Helper()
	a, okA := FindResult(result, labelA)
	b, okB := FindResult(result, labelB)
	if !okA {
		t.Errorf("AssertEstimatesAgree: %s: no question labeled %q", result.Name, labelA)
		return
	}
	if !okB {
		t.Errorf("AssertEstimatesAgree: %s: no question labeled %q", result.Name, labelB)
		return
	}
	if a.Err != nil || b.Err != nil {
		t.Errorf("AssertEstimatesAgree: %s: cannot compare, errors: %v / %v", result.Name, a.Err, b.Err)
		return
	}
	if diff := math.Abs(a.Detail.Value - b.Detail.Value); diff > maxDelta {
		t.Errorf("AssertEstimatesAgree: %s: %q = %.6f and %q = %.6f differ by %.6f (allowed %.6f)",
			result.Name, labelA, a.Detail.Value, labelB, b.Detail.Value, diff, maxDelta)
	}
}

// AssertTalliesConsistent asserts that every defined result's counters
// are internally consistent and reproduce its value.
func AssertTalliesConsistent(t *testing.T, result ScenarioResult) {
	t.Helper()
	for _, qr := range result.Results {
		if qr.Err != nil {
			continue
		}
		d := qr.Detail
		label := qr.Question.Label

		if d.Matched < 0 || d.Matched > d.Accepted || d.Accepted > d.Generated {
			t.Errorf("AssertTalliesConsistent: %s: %q tallies out of order: matched=%d accepted=%d generated=%d",
				result.Name, label, d.Matched, d.Accepted, d.Generated)
			continue
		}

		switch d.Method {
		case sampling.MethodPrior:
			if want := float64(d.Matched) / float64(d.Generated); d.Value != want {
				t.Errorf("AssertTalliesConsistent: %s: %q value %.9f != matched/generated %.9f", result.Name, label, d.Value, want)
			}
		case sampling.MethodRejection:
			if want := float64(d.Matched) / float64(d.Accepted); d.Value != want {
				t.Errorf("AssertTalliesConsistent: %s: %q value %.9f != matched/accepted %.9f", result.Name, label, d.Value, want)
			}
		case sampling.MethodLikelihood:
			if want := d.MatchedWeight / d.TotalWeight; d.Value != want {
				t.Errorf("AssertTalliesConsistent: %s: %q value %.9f != weight ratio %.9f", result.Name, label, d.Value, want)
			}
		}
	}
}

// FindResult returns the result for a labeled question.
func FindResult(result ScenarioResult, label string) (QuestionResult, bool) {
	for _, qr := range result.Results {
		if qr.Question.Label == label {
			return qr, true
		}
	}
	return QuestionResult{}, false
}

// MaxAbsError returns the largest |estimate - exact| across defined
// questions, or 0 if none are defined.
func MaxAbsError(result ScenarioResult) float64 {
	max := 0.0
	for _, qr := range result.Results {
		if qr.Err != nil {
			continue
		}
		if diff := math.Abs(qr.Detail.Value - qr.Question.Exact); diff > max {
			max = diff
		}
	}
	return max
}
