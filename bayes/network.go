// Package bayes models discrete Bayesian networks over boolean
// variables. A network is declared as an ordered list of variable
// definitions, each naming its parents and a conditional probability
// table, then compiled into an immutable Network with a precomputed
// parents-before-children order. Compilation validates structure only;
// table lookups stay sparse, so a partially specified table is usable
// until a missing combination is actually drawn.
package bayes

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed reports a structurally invalid network: empty or
// duplicate names, unknown or repeated parents, dependency cycles, or
// invalid table rows.
var ErrMalformed = errors.New("bayes: malformed network")

// Variable identifies a node in a network. Names are compared exactly,
// so "Fever" and "fever" are distinct variables.
type Variable string

// Definition declares one variable: its name, the parents its
// probability depends on, and the table rows conditioned on them.
type Definition struct {
	Name    Variable
	Parents []Variable
	Table   []Entry
}

// Entry is one table row: the probability that the variable is true
// when its parents take the truth values in Given. Given aligns with
// the Parents slice of the owning Definition; root variables use a
// single Entry with an empty Given.
type Entry struct {
	Given []bool
	P     float64
}

// Network is a compiled network. It is immutable after Compile and safe
// for concurrent readers.
type Network struct {
	defs  []Definition
	cpts  []*CPT
	index map[Variable]int
	order []Variable
}

// Compile validates the definitions and builds a Network. Parents may
// be declared in any position relative to their children; the
// topological order is computed here and fixed for the lifetime of the
// network. Compile fails with ErrMalformed on duplicate names, unknown
// or repeated parents, cycles, or invalid table rows. It does not
// require tables to cover every parent combination; use CheckTables for
// that guarantee. The definitions are retained, so callers must not
// modify them afterwards.
func Compile(defs []Definition) (*Network, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no variables", ErrMalformed)
	}

	index := make(map[Variable]int, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: definition %d has an empty name", ErrMalformed, i)
		}
		if _, dup := index[d.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate variable %q", ErrMalformed, d.Name)
		}
		index[d.Name] = i
	}

	cpts := make([]*CPT, len(defs))
	for i, d := range defs {
		seen := make(map[Variable]struct{}, len(d.Parents))
		for _, p := range d.Parents {
			if _, ok := index[p]; !ok {
				return nil, fmt.Errorf("%w: variable %q names unknown parent %q", ErrMalformed, d.Name, p)
			}
			if _, dup := seen[p]; dup {
				return nil, fmt.Errorf("%w: variable %q repeats parent %q", ErrMalformed, d.Name, p)
			}
			seen[p] = struct{}{}
		}

		cpt, err := NewCPT(len(d.Parents), d.Table)
		if err != nil {
			return nil, fmt.Errorf("variable %q: %w", d.Name, err)
		}
		cpts[i] = cpt
	}

	order, err := topoOrder(defs)
	if err != nil {
		return nil, err
	}

	return &Network{
		defs:  append([]Definition(nil), defs...),
		cpts:  cpts,
		index: index,
		order: order,
	}, nil
}

// topoOrder computes a parents-before-children ordering with Kahn's
// algorithm. The queue is seeded and drained in declaration order so
// the result is stable for a given input. A nonempty remainder means a
// dependency cycle.
func topoOrder(defs []Definition) ([]Variable, error) {
	children := make(map[Variable][]Variable, len(defs))
	indegree := make(map[Variable]int, len(defs))
	for _, d := range defs {
		indegree[d.Name] = len(d.Parents)
		for _, p := range d.Parents {
			children[p] = append(children[p], d.Name)
		}
	}

	queue := make([]Variable, 0, len(defs))
	for _, d := range defs {
		if indegree[d.Name] == 0 {
			queue = append(queue, d.Name)
		}
	}

	order := make([]Variable, 0, len(defs))
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		order = append(order, v)
		for _, c := range children[v] {
			indegree[c]--
			if indegree[c] == 0 {
				queue = append(queue, c)
			}
		}
	}

	if len(order) != len(defs) {
		stuck := make([]string, 0, len(defs)-len(order))
		for _, d := range defs {
			if indegree[d.Name] > 0 {
				stuck = append(stuck, string(d.Name))
			}
		}
		return nil, fmt.Errorf("%w: dependency cycle involving %s", ErrMalformed, strings.Join(stuck, ", "))
	}
	return order, nil
}

// Len returns the number of variables in the network.
func (n *Network) Len() int {
	return len(n.defs)
}

// Variables returns the variable names in declaration order.
func (n *Network) Variables() []Variable {
	out := make([]Variable, len(n.defs))
	for i, d := range n.defs {
		out[i] = d.Name
	}
	return out
}

// Order returns the variable names in topological order, every parent
// before all of its children.
func (n *Network) Order() []Variable {
	return append([]Variable(nil), n.order...)
}

// Contains reports whether the network declares v.
func (n *Network) Contains(v Variable) bool {
	_, ok := n.index[v]
	return ok
}

// Parents returns the parents of v in table order, or nil when v is
// unknown. The returned slice is a copy.
func (n *Network) Parents(v Variable) []Variable {
	i, ok := n.index[v]
	if !ok {
		return nil
	}
	return append([]Variable(nil), n.defs[i].Parents...)
}

// Definition returns the definition v was compiled from.
func (n *Network) Definition(v Variable) (Definition, bool) {
	i, ok := n.index[v]
	if !ok {
		return Definition{}, false
	}
	return n.defs[i], true
}

// ProbTrue returns P(v = true) given parent truth values aligned with
// Parents(v). Unknown variables and uncovered combinations fail; the
// latter wraps ErrNoEntry.
func (n *Network) ProbTrue(v Variable, given []bool) (float64, error) {
	i, ok := n.index[v]
	if !ok {
		return 0, fmt.Errorf("bayes: unknown variable %q", v)
	}
	p, err := n.cpts[i].ProbTrue(given)
	if err != nil {
		return 0, fmt.Errorf("variable %q: %w", v, err)
	}
	return p, nil
}

// ProbFalse returns the complement of ProbTrue for the same combination.
func (n *Network) ProbFalse(v Variable, given []bool) (float64, error) {
	p, err := n.ProbTrue(v, given)
	if err != nil {
		return 0, err
	}
	return 1 - p, nil
}

// CheckTables verifies that every variable's table covers all 2^n
// combinations of its n parents. Compile accepts sparse tables and
// sampling fails lazily with ErrNoEntry; a CheckTables pass guarantees
// sampling can never hit that error.
func (n *Network) CheckTables() error {
	for i, d := range n.defs {
		cpt := n.cpts[i]
		want := 1 << len(d.Parents)
		if cpt.Len() == want {
			continue
		}

		missing := make([]string, 0, want-cpt.Len())
		given := make([]bool, len(d.Parents))
		for k := 0; k < want; k++ {
			if _, ok := cpt.rows[uint32(k)]; ok {
				continue
			}
			for b := range given {
				given[b] = k&(1<<b) != 0
			}
			missing = append(missing, formatGiven(given))
		}
		if len(missing) > 6 {
			missing = append(missing[:6], "...")
		}
		return fmt.Errorf("%w: variable %q covers %d of %d parent combinations, missing %s",
			ErrMalformed, d.Name, cpt.Len(), want, strings.Join(missing, " "))
	}
	return nil
}
