package mcp

// InferInput defines the input for the bnet_infer tool.
type InferInput struct {
	Network  string          `json:"network,omitempty" jsonschema:"Network to query: 'fever' for the built-in example or a path to a network definition YAML file (default: 'fever')"`
	Query    map[string]bool `json:"query" jsonschema:"Query assignment: variable names mapped to the truth values whose joint probability is estimated"`
	Evidence map[string]bool `json:"evidence,omitempty" jsonschema:"Observed evidence: variable names mapped to observed truth values"`
	Method   string          `json:"method,omitempty" jsonschema:"Sampling method: 'prior', 'rejection', or 'likelihood' (default: 'rejection' with evidence, 'prior' without)"`
	Samples  int             `json:"samples,omitempty" jsonschema:"Number of samples to draw (default: 10000)"`
	Seed     uint64          `json:"seed,omitempty" jsonschema:"Random seed for reproducible estimates (0 or omitted: fresh seed per call)"`
}

// InferOutput defines the output for the bnet_infer tool.
type InferOutput struct {
	Network     string  `json:"network" jsonschema:"Name of the queried network"`
	Method      string  `json:"method" jsonschema:"Sampling method used"`
	Query       string  `json:"query" jsonschema:"Canonical query event"`
	Evidence    string  `json:"evidence,omitempty" jsonschema:"Canonical evidence event"`
	Estimate    float64 `json:"estimate" jsonschema:"Estimated probability (meaningless when undefined is true)"`
	Undefined   bool    `json:"undefined,omitempty" jsonschema:"True when no sample satisfied the evidence and the estimate is undefined"`
	Samples     int     `json:"samples" jsonschema:"Number of samples drawn"`
	Accepted    int     `json:"accepted" jsonschema:"Samples that survived evidence filtering"`
	Matched     int     `json:"matched" jsonschema:"Accepted samples that agreed with the query"`
	TotalWeight float64 `json:"total_weight,omitempty" jsonschema:"Sum of likelihood weights (likelihood method only)"`
	Seed        uint64  `json:"seed" jsonschema:"Seed the estimate was drawn with"`
	RunID       string  `json:"run_id,omitempty" jsonschema:"ID of the recorded run"`
	ElapsedMs   int64   `json:"elapsed_ms" jsonschema:"Wall time spent sampling"`
	Message     string  `json:"message" jsonschema:"Human-readable result summary"`
}

// NetworkInput defines the input for the bnet_network tool.
type NetworkInput struct {
	Network string `json:"network,omitempty" jsonschema:"Network to describe: 'fever' or a path to a network definition YAML file (default: 'fever')"`
	Format  string `json:"format,omitempty" jsonschema:"Output format: 'summary' for structured variable info or 'dot' for Graphviz source (default: 'summary')"`
}

// VariableInfo summarizes one network variable.
type VariableInfo struct {
	Name     string   `json:"name"`
	Parents  []string `json:"parents,omitempty"`
	Children []string `json:"children,omitempty"`
	Rows     int      `json:"rows"`
}

// NetworkOutput defines the output for the bnet_network tool.
type NetworkOutput struct {
	Name           string         `json:"name" jsonschema:"Network name"`
	VariableCount  int            `json:"variable_count" jsonschema:"Number of variables"`
	Variables      []VariableInfo `json:"variables,omitempty" jsonschema:"Per-variable structure (summary format)"`
	Order          []string       `json:"order,omitempty" jsonschema:"Topological sampling order (summary format)"`
	TablesComplete bool           `json:"tables_complete" jsonschema:"True when every CPT covers all parent combinations"`
	Issue          string         `json:"issue,omitempty" jsonschema:"First table coverage issue found"`
	DOT            string         `json:"dot,omitempty" jsonschema:"Graphviz DOT source (dot format)"`
}

// SweepInput defines the input for the bnet_sweep tool.
type SweepInput struct {
	Network  string          `json:"network,omitempty" jsonschema:"Network to query: 'fever' or a path to a network definition YAML file (default: 'fever')"`
	Query    map[string]bool `json:"query" jsonschema:"Query assignment estimated at every sweep point"`
	Evidence map[string]bool `json:"evidence,omitempty" jsonschema:"Observed evidence applied at every sweep point"`
	Method   string          `json:"method,omitempty" jsonschema:"Sampling method: 'prior', 'rejection', or 'likelihood' (default: 'rejection')"`
	Start    int             `json:"start,omitempty" jsonschema:"First sample count in the sweep (default: 20)"`
	Stop     int             `json:"stop,omitempty" jsonschema:"Exclusive upper bound on sample counts (default: 10000)"`
	Step     int             `json:"step,omitempty" jsonschema:"Increment between sample counts (default: 100)"`
	Seed     uint64          `json:"seed,omitempty" jsonschema:"Random seed for a reproducible sweep (0 or omitted: fresh seed per call)"`
}

// SweepPoint is one sweep measurement.
type SweepPoint struct {
	N         int     `json:"n"`
	Estimate  float64 `json:"estimate"`
	Undefined bool    `json:"undefined,omitempty"`
}

// SweepOutput defines the output for the bnet_sweep tool.
type SweepOutput struct {
	Network        string       `json:"network" jsonschema:"Name of the queried network"`
	Method         string       `json:"method" jsonschema:"Sampling method used"`
	Query          string       `json:"query" jsonschema:"Canonical query event"`
	Evidence       string       `json:"evidence,omitempty" jsonschema:"Canonical evidence event"`
	Points         []SweepPoint `json:"points" jsonschema:"Estimate at each sample count"`
	PointCount     int          `json:"point_count" jsonschema:"Number of sweep points"`
	UndefinedCount int          `json:"undefined_count" jsonschema:"Points where the estimate was undefined"`
	Seed           uint64       `json:"seed" jsonschema:"Seed the sweep was drawn with"`
	Message        string       `json:"message" jsonschema:"Human-readable sweep summary"`
}
