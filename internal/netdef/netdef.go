// Package netdef reads and writes network definition documents, the
// YAML format bnet uses to describe a network on disk, and carries the
// built-in fever example network.
package netdef

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgriffen/bnet/bayes"
	"gopkg.in/yaml.v3"
)

// Document is a network definition file: a named, ordered list of
// variable declarations.
type Document struct {
	// Name labels the network in output and run records.
	Name string `json:"name" yaml:"name"`

	// Variables declares the network, one entry per variable. Parents
	// may be declared in any position relative to their children.
	Variables []Variable `json:"variables" yaml:"variables"`
}

// Variable declares one network variable. Root variables set P; child
// variables list Parents and one CPT row per parent combination.
type Variable struct {
	Name    string   `json:"name" yaml:"name"`
	Parents []string `json:"parents,omitempty" yaml:"parents,flow,omitempty"`

	// P is the root shorthand: the unconditional probability of true.
	// Only valid for variables without parents, and exclusive with CPT.
	P *float64 `json:"p,omitempty" yaml:"p,omitempty"`

	// CPT lists conditional probability rows.
	CPT []Row `json:"cpt,omitempty" yaml:"cpt,omitempty"`
}

// Row is one conditional probability row: the probability that the
// variable is true when its parents take the values in Given.
type Row struct {
	// Given holds parent truth values aligned with the parents list.
	Given []bool `json:"given,omitempty" yaml:"given,flow,omitempty"`

	// P is the probability that the variable is true.
	P float64 `json:"p" yaml:"p"`
}

// Parse decodes a document from YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing network definition: %w", err)
	}
	return &doc, nil
}

// Load reads and decodes a document from a file. A document without a
// name takes the file's base name.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading network definition: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Open resolves a network reference: the literal name "fever" yields
// the built-in example, anything else is read as a file path.
func Open(ref string) (*Document, error) {
	if ref == "fever" {
		return Fever(), nil
	}
	return Load(ref)
}

// Encode renders the document as YAML.
func (d *Document) Encode() ([]byte, error) {
	data, err := yaml.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encoding network definition: %w", err)
	}
	return data, nil
}

// Definitions converts the document into compiler definitions. The root
// shorthand becomes a single-row table.
func (d *Document) Definitions() ([]bayes.Definition, error) {
	defs := make([]bayes.Definition, 0, len(d.Variables))
	for i, v := range d.Variables {
		if v.Name == "" {
			return nil, fmt.Errorf("netdef: variable %d has no name", i)
		}

		var table []bayes.Entry
		switch {
		case v.P != nil && len(v.CPT) > 0:
			return nil, fmt.Errorf("netdef: variable %s sets both p and cpt", v.Name)
		case v.P != nil && len(v.Parents) > 0:
			return nil, fmt.Errorf("netdef: variable %s uses the root shorthand p but has parents", v.Name)
		case v.P != nil:
			table = []bayes.Entry{{P: *v.P}}
		case len(v.CPT) > 0:
			table = make([]bayes.Entry, len(v.CPT))
			for j, row := range v.CPT {
				table[j] = bayes.Entry{Given: row.Given, P: row.P}
			}
		default:
			return nil, fmt.Errorf("netdef: variable %s declares neither p nor cpt", v.Name)
		}

		parents := make([]bayes.Variable, len(v.Parents))
		for j, p := range v.Parents {
			parents[j] = bayes.Variable(p)
		}
		defs = append(defs, bayes.Definition{
			Name:    bayes.Variable(v.Name),
			Parents: parents,
			Table:   table,
		})
	}
	return defs, nil
}

// Compile validates the document and builds the runnable network.
func (d *Document) Compile() (*bayes.Network, error) {
	defs, err := d.Definitions()
	if err != nil {
		return nil, err
	}
	net, err := bayes.Compile(defs)
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", d.Name, err)
	}
	return net, nil
}

// Fever returns the built-in fever diagnosis example: exposure to
// infection can cause a fever, and a fever shows up as body aches and
// a positive thermometer reading.
func Fever() *Document {
	p := func(v float64) *float64 { return &v }
	return &Document{
		Name: "fever",
		Variables: []Variable{
			{Name: "Exposure", P: p(0.25)},
			{Name: "Fever", Parents: []string{"Exposure"}, CPT: []Row{
				{Given: []bool{true}, P: 0.5},
				{Given: []bool{false}, P: 0.1},
			}},
			{Name: "Aches", Parents: []string{"Fever"}, CPT: []Row{
				{Given: []bool{true}, P: 0.875},
				{Given: []bool{false}, P: 0.25},
			}},
			{Name: "Thermometer", Parents: []string{"Fever"}, CPT: []Row{
				{Given: []bool{true}, P: 0.75},
				{Given: []bool{false}, P: 0.0625},
			}},
		},
	}
}
