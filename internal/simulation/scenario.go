package simulation

import (
	"github.com/mgriffen/bnet/bayes"
	"github.com/mgriffen/bnet/sampling"
)

// Scenario defines a complete estimation experiment: one network, a
// fixed sampler configuration, and a set of probability questions.
type Scenario struct {
	Name    string
	Network *bayes.Network

	// SampleCount is the per-question sample budget. 0 means 10000.
	SampleCount int

	// Seed drives every question. Each question gets a fresh engine
	// from this seed, so results do not depend on question order.
	Seed uint64

	Questions []Question
}

// Question is a single probability query with its analytically
// derived answer.
type Question struct {
	Label    string
	Method   sampling.Method
	Query    sampling.Event
	Evidence sampling.Event

	// Exact is the true probability, Tolerance the allowed
	// |estimate - Exact| at the scenario's sample budget.
	Exact     float64
	Tolerance float64
}

// QuestionResult captures one estimate next to its question.
type QuestionResult struct {
	Question Question
	Detail   sampling.Result
	Err      error
}

// ScenarioResult captures all question outcomes for a scenario.
type ScenarioResult struct {
	Name    string
	Results []QuestionResult
}
