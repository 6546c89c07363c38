// Package visualization renders network structure in various output formats.
package visualization

import (
	"fmt"
	"strings"

	"github.com/mgriffen/bnet/bayes"
)

// Format specifies the output format for structure rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat maps a user-supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dot", "graphviz":
		return FormatDOT, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown render format %q (want dot or json)", s)
	}
}

// RenderDOT produces a Graphviz DOT representation of the network
// structure: one node per variable, one edge per parent link. Roots,
// inner variables, and leaves get distinct fill colors.
func RenderDOT(net *bayes.Network, name string) string {
	childCount := countChildren(net)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("digraph %s {\n", graphID(name)))
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, v := range net.Order() {
		parents := net.Parents(v)
		color := nodeColor(len(parents) == 0, childCount[v] == 0)

		b.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q, tooltip=%q];\n",
			string(v), truncate(string(v), 40), color, tooltip(net, v)))
	}
	b.WriteString("\n")

	for _, v := range net.Order() {
		for _, p := range net.Parents(v) {
			b.WriteString(fmt.Sprintf("  %q -> %q;\n", string(p), string(v)))
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON-ready structure description with variable
// and edge arrays. Variables appear in sampling order.
func RenderJSON(net *bayes.Network, name string) map[string]interface{} {
	variables := make([]map[string]interface{}, 0, net.Len())
	var edges []map[string]interface{}

	for _, v := range net.Order() {
		parents := net.Parents(v)
		parentNames := make([]string, len(parents))
		for i, p := range parents {
			parentNames[i] = string(p)
			edges = append(edges, map[string]interface{}{
				"source": string(p),
				"target": string(v),
			})
		}

		entry := map[string]interface{}{
			"name":    string(v),
			"parents": parentNames,
		}
		if def, ok := net.Definition(v); ok {
			entry["rows"] = len(def.Table)
		}
		// Roots carry their prior directly
		if len(parents) == 0 {
			if p, err := net.ProbTrue(v, nil); err == nil {
				entry["p_true"] = p
			}
		}

		variables = append(variables, entry)
	}

	if edges == nil {
		edges = make([]map[string]interface{}, 0)
	}

	return map[string]interface{}{
		"name":           name,
		"variables":      variables,
		"edges":          edges,
		"variable_count": len(variables),
		"edge_count":     len(edges),
	}
}

// countChildren maps each variable to its number of children.
func countChildren(net *bayes.Network) map[bayes.Variable]int {
	counts := make(map[bayes.Variable]int, net.Len())
	for _, v := range net.Order() {
		for _, p := range net.Parents(v) {
			counts[p]++
		}
	}
	return counts
}

// nodeColor picks a fill color by the variable's role in the graph.
func nodeColor(isRoot, isLeaf bool) string {
	switch {
	case isRoot:
		return "steelblue"
	case isLeaf:
		return "goldenrod"
	default:
		return "mediumseagreen"
	}
}

// tooltip summarizes a variable's table for hover display.
func tooltip(net *bayes.Network, v bayes.Variable) string {
	if len(net.Parents(v)) == 0 {
		if p, err := net.ProbTrue(v, nil); err == nil {
			return fmt.Sprintf("P(true)=%.4g", p)
		}
	}
	if def, ok := net.Definition(v); ok {
		return fmt.Sprintf("rows=%d", len(def.Table))
	}
	return ""
}

// graphID sanitizes a name into a DOT identifier.
func graphID(name string) string {
	if name == "" {
		return "network"
	}
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if id[0] >= '0' && id[0] <= '9' {
		id = "_" + id
	}
	return id
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
