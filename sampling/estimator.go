package sampling

import (
	"errors"
	"fmt"
	"strings"
)

// Method identifies an estimation strategy.
type Method string

const (
	// MethodPrior estimates unconditioned probabilities by counting
	// query matches across forward samples.
	MethodPrior Method = "prior"

	// MethodRejection discards samples that contradict the evidence and
	// counts query matches among the survivors.
	MethodRejection Method = "rejection"

	// MethodLikelihood forces evidence values during sampling and weighs
	// each sample by the likelihood of the values it forced.
	MethodLikelihood Method = "likelihood"
)

// ParseMethod maps a method name to a Method. Canonical names and a few
// common aliases are accepted.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prior", "forward", "simple":
		return MethodPrior, nil
	case "rejection", "reject":
		return MethodRejection, nil
	case "likelihood", "likelihood-weighting", "lw":
		return MethodLikelihood, nil
	}
	return "", fmt.Errorf("sampling: unknown method %q", s)
}

// ErrUndefined is the family sentinel for estimates whose denominator
// vanished. Callers that only care whether an estimate exists test
// against this; the concrete causes below identify which denominator
// was empty.
var ErrUndefined = errors.New("sampling: estimate undefined")

// ErrNoAcceptedSamples reports a rejection run in which every sample
// contradicted the evidence.
var ErrNoAcceptedSamples = fmt.Errorf("%w: no samples satisfied the evidence", ErrUndefined)

// ErrZeroWeight reports a likelihood weighting run whose weights sum to
// zero.
var ErrZeroWeight = fmt.Errorf("%w: total sample weight is zero", ErrUndefined)

// Result carries an estimate together with the tallies behind it.
type Result struct {
	Method Method

	// Value is the estimated probability.
	Value float64

	// Generated is the number of samples drawn.
	Generated int

	// Accepted is the number of samples that survived evidence
	// filtering. The prior and likelihood methods accept every sample.
	Accepted int

	// Matched is the number of accepted samples that agreed with the
	// query.
	Matched int

	// TotalWeight and MatchedWeight are the likelihood weighting
	// tallies. Both stay zero for the counting methods.
	TotalWeight   float64
	MatchedWeight float64
}

// checkCount rejects non-positive sample counts.
func checkCount(n int) error {
	if n <= 0 {
		return fmt.Errorf("sampling: sample count must be positive, got %d", n)
	}
	return nil
}

// checkEvents validates the query and evidence against the engine's
// network and rejects assignments that contradict each other. A
// variable may appear in both roles only with the same truth value.
func checkEvents(e *Engine, query, evidence Event) error {
	if err := e.checkKnown(query); err != nil {
		return err
	}
	if err := e.checkKnown(evidence); err != nil {
		return err
	}
	for v, qv := range query {
		if ev, ok := evidence[v]; ok && ev != qv {
			return fmt.Errorf("sampling: variable %q is %t in the query but %t in the evidence", v, qv, ev)
		}
	}
	return nil
}

// PriorEstimator estimates unconditioned probabilities P(query) from
// forward samples. It takes no evidence by construction; conditioning
// needs RejectionEstimator or LikelihoodWeightingEstimator.
type PriorEstimator struct {
	engine *Engine
}

// NewPriorEstimator builds a prior estimator over the engine.
func NewPriorEstimator(e *Engine) *PriorEstimator {
	return &PriorEstimator{engine: e}
}

// Samples draws n forward samples.
func (p *PriorEstimator) Samples(n int) ([]Sample, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		s, err := p.engine.Sample()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Estimate returns P(query) estimated from n forward samples. An empty
// query matches every sample and estimates 1.
func (p *PriorEstimator) Estimate(query Event, n int) (float64, error) {
	r, err := p.Detail(query, n)
	if err != nil {
		return 0, err
	}
	return r.Value, nil
}

// Detail is Estimate plus the tallies behind the value.
func (p *PriorEstimator) Detail(query Event, n int) (Result, error) {
	if err := p.engine.checkKnown(query); err != nil {
		return Result{}, err
	}
	if err := checkCount(n); err != nil {
		return Result{}, err
	}

	matched := 0
	for i := 0; i < n; i++ {
		s, err := p.engine.Sample()
		if err != nil {
			return Result{}, err
		}
		if s.Matches(query) {
			matched++
		}
	}
	return Result{
		Method:    MethodPrior,
		Value:     float64(matched) / float64(n),
		Generated: n,
		Accepted:  n,
		Matched:   matched,
	}, nil
}

// RejectionEstimator estimates conditional probabilities P(query |
// evidence) by discarding samples that contradict the evidence.
type RejectionEstimator struct {
	engine *Engine
}

// NewRejectionEstimator builds a rejection estimator over the engine.
func NewRejectionEstimator(e *Engine) *RejectionEstimator {
	return &RejectionEstimator{engine: e}
}

// Samples draws n forward samples and returns the ones that agree with
// the evidence. The result may hold far fewer than n samples and is
// empty when every draw contradicted the evidence.
func (r *RejectionEstimator) Samples(n int, evidence Event) ([]Sample, error) {
	if err := r.engine.checkKnown(evidence); err != nil {
		return nil, err
	}
	if err := checkCount(n); err != nil {
		return nil, err
	}

	kept := make([]Sample, 0)
	for i := 0; i < n; i++ {
		s, err := r.engine.Sample()
		if err != nil {
			return nil, err
		}
		if s.Matches(evidence) {
			kept = append(kept, s)
		}
	}
	return kept, nil
}

// Estimate returns P(query | evidence) estimated by rejection from n
// samples. It fails with ErrNoAcceptedSamples when nothing survives the
// evidence filter, which is increasingly likely the less probable the
// evidence is.
func (r *RejectionEstimator) Estimate(query, evidence Event, n int) (float64, error) {
	res, err := r.Detail(query, evidence, n)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Detail is Estimate plus the tallies behind the value.
func (r *RejectionEstimator) Detail(query, evidence Event, n int) (Result, error) {
	if err := checkEvents(r.engine, query, evidence); err != nil {
		return Result{}, err
	}
	if err := checkCount(n); err != nil {
		return Result{}, err
	}

	accepted, matched := 0, 0
	for i := 0; i < n; i++ {
		s, err := r.engine.Sample()
		if err != nil {
			return Result{}, err
		}
		if !s.Matches(evidence) {
			continue
		}
		accepted++
		if s.Matches(query) {
			matched++
		}
	}
	if accepted == 0 {
		return Result{}, ErrNoAcceptedSamples
	}
	return Result{
		Method:    MethodRejection,
		Value:     float64(matched) / float64(accepted),
		Generated: n,
		Accepted:  accepted,
		Matched:   matched,
	}, nil
}

// LikelihoodWeightingEstimator estimates conditional probabilities by
// forcing evidence values during sampling and weighing each sample by
// the likelihood of the forced values. Unlike rejection it never
// discards a sample; improbable evidence shows up as small weights.
type LikelihoodWeightingEstimator struct {
	engine *Engine
}

// NewLikelihoodWeightingEstimator builds a likelihood weighting
// estimator over the engine.
func NewLikelihoodWeightingEstimator(e *Engine) *LikelihoodWeightingEstimator {
	return &LikelihoodWeightingEstimator{engine: e}
}

// Samples draws n weighted samples, each agreeing with the evidence.
func (l *LikelihoodWeightingEstimator) Samples(n int, evidence Event) ([]WeightedSample, error) {
	if err := l.engine.checkKnown(evidence); err != nil {
		return nil, err
	}
	if err := checkCount(n); err != nil {
		return nil, err
	}

	out := make([]WeightedSample, 0, n)
	for i := 0; i < n; i++ {
		ws, err := l.engine.WeightedSample(evidence)
		if err != nil {
			return nil, err
		}
		out = append(out, ws)
	}
	return out, nil
}

// Estimate returns P(query | evidence) as the weight of matching
// samples over the total weight. It fails with ErrZeroWeight when every
// weight vanishes, which happens when the evidence contains a
// zero-probability combination.
func (l *LikelihoodWeightingEstimator) Estimate(query, evidence Event, n int) (float64, error) {
	res, err := l.Detail(query, evidence, n)
	if err != nil {
		return 0, err
	}
	return res.Value, nil
}

// Detail is Estimate plus the tallies behind the value.
func (l *LikelihoodWeightingEstimator) Detail(query, evidence Event, n int) (Result, error) {
	if err := checkEvents(l.engine, query, evidence); err != nil {
		return Result{}, err
	}
	if err := checkCount(n); err != nil {
		return Result{}, err
	}

	var total, matchedWeight float64
	matched := 0
	for i := 0; i < n; i++ {
		ws, err := l.engine.WeightedSample(evidence)
		if err != nil {
			return Result{}, err
		}
		total += ws.Weight
		if ws.Values.Matches(query) {
			matchedWeight += ws.Weight
			matched++
		}
	}
	if total == 0 {
		return Result{}, ErrZeroWeight
	}
	return Result{
		Method:        MethodLikelihood,
		Value:         matchedWeight / total,
		Generated:     n,
		Accepted:      n,
		Matched:       matched,
		TotalWeight:   total,
		MatchedWeight: matchedWeight,
	}, nil
}

// EstimateDetail runs a single estimate under the given method and
// returns the full run detail. The prior method cannot condition on
// evidence.
func EstimateDetail(e *Engine, method Method, query, evidence Event, n int) (Result, error) {
	switch method {
	case MethodPrior:
		if len(evidence) > 0 {
			return Result{}, fmt.Errorf("sampling: the prior method cannot condition on evidence")
		}
		return NewPriorEstimator(e).Detail(query, n)
	case MethodRejection:
		return NewRejectionEstimator(e).Detail(query, evidence, n)
	case MethodLikelihood:
		return NewLikelihoodWeightingEstimator(e).Detail(query, evidence, n)
	}
	return Result{}, fmt.Errorf("sampling: unknown method %q", method)
}
