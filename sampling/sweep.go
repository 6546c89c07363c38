package sampling

import (
	"errors"
	"fmt"
)

// SweepConfig controls a convergence sweep: which estimator to run and
// the series of sample counts to run it at.
type SweepConfig struct {
	// Start, Stop, Step define the half-open range of sample counts
	// [Start, Stop), advancing by Step. Defaults: 20, 10000, 100.
	Start int
	Stop  int
	Step  int

	// Method selects the estimator. Default: MethodRejection.
	Method Method
}

// DefaultSweepConfig returns the standard sweep range.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Start:  20,
		Stop:   10000,
		Step:   100,
		Method: MethodRejection,
	}
}

// Point is one sweep measurement. Undefined marks sample counts whose
// estimate had an empty denominator; Estimate is zero there.
type Point struct {
	N         int
	Estimate  float64
	Undefined bool
}

// Sweep runs an estimator across increasing sample counts, exposing how
// an estimate settles as the sample budget grows.
type Sweep struct {
	engine *Engine
	config SweepConfig
}

// NewSweep builds a sweep over the engine. Zero fields in config fall
// back to the DefaultSweepConfig values.
func NewSweep(e *Engine, config SweepConfig) *Sweep {
	def := DefaultSweepConfig()
	if config.Start == 0 {
		config.Start = def.Start
	}
	if config.Stop == 0 {
		config.Stop = def.Stop
	}
	if config.Step == 0 {
		config.Step = def.Step
	}
	if config.Method == "" {
		config.Method = def.Method
	}
	return &Sweep{engine: e, config: config}
}

// Config returns the effective sweep configuration.
func (s *Sweep) Config() SweepConfig {
	return s.config
}

// Run estimates P(query | evidence) at every sample count in the
// configured range. A count whose estimate is undefined produces a
// point with Undefined set instead of failing the sweep; only a sweep
// with no defined point at all returns an error. MethodPrior takes no
// evidence.
func (s *Sweep) Run(query, evidence Event) ([]Point, error) {
	cfg := s.config
	if cfg.Start <= 0 {
		return nil, fmt.Errorf("sampling: sweep start must be positive, got %d", cfg.Start)
	}
	if cfg.Step <= 0 {
		return nil, fmt.Errorf("sampling: sweep step must be positive, got %d", cfg.Step)
	}
	if cfg.Stop <= cfg.Start {
		return nil, fmt.Errorf("sampling: sweep stop %d is not past start %d", cfg.Stop, cfg.Start)
	}
	if cfg.Method == MethodPrior && len(evidence) > 0 {
		return nil, fmt.Errorf("sampling: the prior method cannot condition on evidence")
	}

	points := make([]Point, 0, (cfg.Stop-cfg.Start+cfg.Step-1)/cfg.Step)
	defined := 0
	for n := cfg.Start; n < cfg.Stop; n += cfg.Step {
		value, err := s.estimate(query, evidence, n)
		switch {
		case err == nil:
			points = append(points, Point{N: n, Estimate: value})
			defined++
		case errors.Is(err, ErrUndefined):
			points = append(points, Point{N: n, Undefined: true})
		default:
			return nil, err
		}
	}
	if defined == 0 {
		return nil, fmt.Errorf("%w at every sample count in [%d, %d)", ErrUndefined, cfg.Start, cfg.Stop)
	}
	return points, nil
}

// estimate dispatches one measurement to the configured method.
func (s *Sweep) estimate(query, evidence Event, n int) (float64, error) {
	switch s.config.Method {
	case MethodPrior:
		return NewPriorEstimator(s.engine).Estimate(query, n)
	case MethodRejection:
		return NewRejectionEstimator(s.engine).Estimate(query, evidence, n)
	case MethodLikelihood:
		return NewLikelihoodWeightingEstimator(s.engine).Estimate(query, evidence, n)
	}
	return 0, fmt.Errorf("sampling: unknown method %q", s.config.Method)
}
