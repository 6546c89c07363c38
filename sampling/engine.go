// Package sampling implements approximate inference over compiled
// networks by Monte Carlo simulation: forward sampling from the priors,
// rejection sampling against evidence, and likelihood weighting. All
// estimators draw from an Engine, which owns the random source; two
// engines built with the same seed over the same network produce
// identical sample streams.
package sampling

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"strings"

	"github.com/mgriffen/bnet/bayes"
)

// Event is a partial truth assignment over network variables. The same
// shape serves both query targets and observed evidence.
type Event map[bayes.Variable]bool

// Sample is a complete truth assignment, one entry per network variable.
type Sample map[bayes.Variable]bool

// WeightedSample pairs a forced-evidence sample with its likelihood
// weight.
type WeightedSample struct {
	Values Sample
	Weight float64
}

// Matches reports whether the sample agrees with every assignment in
// the event. Variables the sample does not carry never match.
func (s Sample) Matches(ev Event) bool {
	for v, want := range ev {
		got, ok := s[v]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// String renders the event as sorted name=value pairs, for example
// "Aches=true,Thermometer=false". An empty event renders as "".
func (e Event) String() string {
	if len(e) == 0 {
		return ""
	}
	names := make([]string, 0, len(e))
	for v := range e {
		names = append(names, string(v))
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + "=" + strconv.FormatBool(e[bayes.Variable(name)])
	}
	return strings.Join(parts, ",")
}

// ParseEvent parses a comma separated list of name=value pairs, where
// value is a boolean literal. Whitespace around names and values is
// ignored, and an empty string parses as an empty event.
func ParseEvent(s string) (Event, error) {
	ev := make(Event)
	if strings.TrimSpace(s) == "" {
		return ev, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("sampling: %q is not a name=value pair", pair)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("sampling: missing variable name in %q", pair)
		}
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("sampling: value for %s: %w", name, err)
		}
		if _, dup := ev[bayes.Variable(name)]; dup {
			return nil, fmt.Errorf("sampling: variable %s assigned twice", name)
		}
		ev[bayes.Variable(name)] = b
	}
	return ev, nil
}

// Config holds the engine's randomness settings.
type Config struct {
	// Seed seeds the engine's PCG source. Zero selects a
	// nondeterministic seed.
	Seed uint64

	// Source, when non-nil, overrides Seed entirely. Tests use this to
	// control the draw stream exactly.
	Source rand.Source
}

// DefaultConfig returns a configuration with a nondeterministic seed.
func DefaultConfig() Config {
	return Config{}
}

// step caches one variable's draw context so the hot loop avoids
// repeated parent lookups.
type step struct {
	v       bayes.Variable
	parents []bayes.Variable
}

// Engine draws samples from a compiled network, visiting variables in
// topological order so every parent value exists before its children
// draw. An Engine is not safe for concurrent use; build one per
// goroutine.
type Engine struct {
	net   *bayes.Network
	steps []step
	given []bool
	rng   *rand.Rand
}

// NewEngine builds a sampling engine over the network.
func NewEngine(net *bayes.Network, config Config) *Engine {
	order := net.Order()
	steps := make([]step, len(order))
	maxParents := 0
	for i, v := range order {
		parents := net.Parents(v)
		steps[i] = step{v: v, parents: parents}
		if len(parents) > maxParents {
			maxParents = len(parents)
		}
	}

	src := config.Source
	if src == nil {
		seed := config.Seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		src = rand.NewPCG(seed, seed)
	}

	return &Engine{
		net:   net,
		steps: steps,
		given: make([]bool, maxParents),
		rng:   rand.New(src),
	}
}

// Network returns the network the engine samples from.
func (e *Engine) Network() *bayes.Network {
	return e.net
}

// Sample draws one complete assignment. Each variable is set to true
// when the next uniform draw is strictly below its conditional
// probability. Sparse tables surface here as bayes.ErrNoEntry.
func (e *Engine) Sample() (Sample, error) {
	s := make(Sample, len(e.steps))
	for _, st := range e.steps {
		p, err := e.probTrue(st, s)
		if err != nil {
			return nil, err
		}
		s[st.v] = e.rng.Float64() < p
	}
	return s, nil
}

// WeightedSample draws one sample with evidence variables forced to
// their observed values instead of being drawn. The weight is the
// product over forced variables of the likelihood of the observed value
// under the sampled parents; an empty evidence yields weight 1.
func (e *Engine) WeightedSample(evidence Event) (WeightedSample, error) {
	if err := e.checkKnown(evidence); err != nil {
		return WeightedSample{}, err
	}

	s := make(Sample, len(e.steps))
	weight := 1.0
	for _, st := range e.steps {
		p, err := e.probTrue(st, s)
		if err != nil {
			return WeightedSample{}, err
		}
		if forced, ok := evidence[st.v]; ok {
			s[st.v] = forced
			if forced {
				weight *= p
			} else {
				weight *= 1 - p
			}
		} else {
			s[st.v] = e.rng.Float64() < p
		}
	}
	return WeightedSample{Values: s, Weight: weight}, nil
}

// probTrue gathers parent values from the partial sample and looks up
// P(v = true). Topological order guarantees the parents are present.
func (e *Engine) probTrue(st step, s Sample) (float64, error) {
	given := e.given[:len(st.parents)]
	for i, p := range st.parents {
		given[i] = s[p]
	}
	return e.net.ProbTrue(st.v, given)
}

// checkKnown fails when the event names a variable the network does not
// declare.
func (e *Engine) checkKnown(ev Event) error {
	for v := range ev {
		if !e.net.Contains(v) {
			return fmt.Errorf("sampling: unknown variable %q", v)
		}
	}
	return nil
}
