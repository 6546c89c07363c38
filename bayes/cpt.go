package bayes

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNoEntry reports a probability lookup for a parent value combination
// the table does not cover.
var ErrNoEntry = errors.New("bayes: no table entry")

// MaxParents bounds the number of parents a single variable may declare.
// A fully specified table over n parents has 2^n rows.
const MaxParents = 16

// CPT is a compiled conditional probability table. It maps each
// combination of parent truth values to the probability that the owning
// variable is true. Tables may be sparse: combinations that were never
// declared fail lookup with ErrNoEntry.
type CPT struct {
	parents int
	rows    map[uint32]float64
}

// NewCPT compiles table entries for a variable with parentCount parents.
// Every entry must carry exactly parentCount parent values and a
// probability in [0, 1]; combinations may not repeat. Entries for a root
// variable use an empty Given.
func NewCPT(parentCount int, entries []Entry) (*CPT, error) {
	if parentCount < 0 {
		return nil, fmt.Errorf("%w: negative parent count %d", ErrMalformed, parentCount)
	}
	if parentCount > MaxParents {
		return nil, fmt.Errorf("%w: %d parents exceeds the limit of %d", ErrMalformed, parentCount, MaxParents)
	}

	rows := make(map[uint32]float64, len(entries))
	for _, e := range entries {
		if len(e.Given) != parentCount {
			return nil, fmt.Errorf("%w: entry %s carries %d parent values, want %d",
				ErrMalformed, formatGiven(e.Given), len(e.Given), parentCount)
		}
		if math.IsNaN(e.P) || e.P < 0 || e.P > 1 {
			return nil, fmt.Errorf("%w: probability %v for %s is outside [0, 1]",
				ErrMalformed, e.P, formatGiven(e.Given))
		}
		key := tableKey(e.Given)
		if _, dup := rows[key]; dup {
			return nil, fmt.Errorf("%w: duplicate entry for parent values %s",
				ErrMalformed, formatGiven(e.Given))
		}
		rows[key] = e.P
	}

	return &CPT{parents: parentCount, rows: rows}, nil
}

// ProbTrue returns the probability that the variable is true given the
// parent truth values, aligned with the declared parent order. Lookups
// for combinations without a row fail with ErrNoEntry.
func (c *CPT) ProbTrue(given []bool) (float64, error) {
	if len(given) != c.parents {
		return 0, fmt.Errorf("bayes: lookup with %d parent values, want %d", len(given), c.parents)
	}
	p, ok := c.rows[tableKey(given)]
	if !ok {
		return 0, fmt.Errorf("%w for parent values %s", ErrNoEntry, formatGiven(given))
	}
	return p, nil
}

// ProbFalse returns the complement probability for the same combination.
func (c *CPT) ProbFalse(given []bool) (float64, error) {
	p, err := c.ProbTrue(given)
	if err != nil {
		return 0, err
	}
	return 1 - p, nil
}

// Len reports the number of declared rows.
func (c *CPT) Len() int {
	return len(c.rows)
}

// ParentCount reports the number of parents the table conditions on.
func (c *CPT) ParentCount() int {
	return c.parents
}

// tableKey packs parent truth values into a map key, parent i at bit i.
func tableKey(given []bool) uint32 {
	var k uint32
	for i, v := range given {
		if v {
			k |= 1 << i
		}
	}
	return k
}

// formatGiven renders parent values as a tuple like (true, false).
func formatGiven(given []bool) string {
	parts := make([]string, len(given))
	for i, v := range given {
		parts[i] = strconv.FormatBool(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
