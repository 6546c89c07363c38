package mcp

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"path/filepath"
	"sort"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mgriffen/bnet/bayes"
	"github.com/mgriffen/bnet/internal/netdef"
	"github.com/mgriffen/bnet/internal/pathutil"
	"github.com/mgriffen/bnet/internal/runstore"
	"github.com/mgriffen/bnet/internal/visualization"
	"github.com/mgriffen/bnet/sampling"
)

const (
	// defaultSampleCount is used when a tool call omits the sample count.
	defaultSampleCount = 10000

	// maxSampleCount bounds a single bnet_infer call.
	maxSampleCount = 1000000

	// maxSweepPoints and maxSweepSamples bound one bnet_sweep call: at
	// most this many points, drawing at most this many samples in total.
	maxSweepPoints  = 500
	maxSweepSamples = 10000000
)

// registerTools registers the bnet MCP tools with the server.
func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "bnet_infer",
		Description: "Estimate the probability of a query, optionally conditioned on evidence, by sampling a Bayesian network",
	}, s.handleInfer)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "bnet_network",
		Description: "Describe a Bayesian network: its variables, edges, sampling order, and table coverage, as structured data or Graphviz DOT",
	}, s.handleNetwork)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "bnet_sweep",
		Description: "Estimate the same query at increasing sample counts to show how the estimate converges",
	}, s.handleSweep)
}

// loadNetwork resolves a network reference to a compiled network. The
// name "fever" (or an empty reference) yields the built-in example; any
// other reference is a file path confined to the allowed directories.
func (s *Server) loadNetwork(ref string) (*netdef.Document, *bayes.Network, error) {
	if ref == "" {
		ref = "fever"
	}

	if ref != "fever" {
		path := ref
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.root, path)
		}
		if err := pathutil.ValidatePath(path, s.networkDirs); err != nil {
			return nil, nil, err
		}
		ref = path
	}

	doc, err := netdef.Open(ref)
	if err != nil {
		return nil, nil, err
	}

	net, err := doc.Compile()
	if err != nil {
		return nil, nil, err
	}

	return doc, net, nil
}

// toEvent converts a tool argument map into a sampling event.
func toEvent(m map[string]bool) sampling.Event {
	ev := make(sampling.Event, len(m))
	for name, val := range m {
		ev[bayes.Variable(name)] = val
	}
	return ev
}

// resolveMethod parses the method argument. An empty method defaults to
// rejection when evidence is present and prior otherwise.
func resolveMethod(arg string, evidence sampling.Event) (sampling.Method, error) {
	if arg == "" {
		if len(evidence) > 0 {
			return sampling.MethodRejection, nil
		}
		return sampling.MethodPrior, nil
	}
	return sampling.ParseMethod(arg)
}

// pickSeed returns seed, or a fresh random seed when it is zero, so the
// seed actually used can be reported and recorded.
func pickSeed(seed uint64) uint64 {
	if seed == 0 {
		return rand.Uint64()
	}
	return seed
}

// condition formats "query | evidence" for messages.
func condition(query, evidence sampling.Event) string {
	if len(evidence) == 0 {
		return query.String()
	}
	return query.String() + " | " + evidence.String()
}

func (s *Server) handleInfer(ctx context.Context, req *sdk.CallToolRequest, args InferInput) (_ *sdk.CallToolResult, _ InferOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("bnet_infer", start, retErr, sanitizeToolParams(map[string]interface{}{
			"network": args.Network, "query": args.Query, "evidence": args.Evidence,
			"method": args.Method, "samples": args.Samples, "seed": args.Seed,
		}))
	}()

	if err := s.toolLimiters.Check("bnet_infer"); err != nil {
		return nil, InferOutput{}, err
	}

	if len(args.Query) == 0 {
		return nil, InferOutput{}, fmt.Errorf("query must assign at least one variable")
	}

	n := args.Samples
	if n == 0 {
		n = defaultSampleCount
	}
	if n < 0 {
		return nil, InferOutput{}, fmt.Errorf("samples must be positive, got %d", n)
	}
	if n > maxSampleCount {
		return nil, InferOutput{}, fmt.Errorf("samples must be at most %d, got %d", maxSampleCount, n)
	}

	doc, net, err := s.loadNetwork(args.Network)
	if err != nil {
		return nil, InferOutput{}, err
	}

	query := toEvent(args.Query)
	evidence := toEvent(args.Evidence)

	method, err := resolveMethod(args.Method, evidence)
	if err != nil {
		return nil, InferOutput{}, err
	}

	seed := pickSeed(args.Seed)
	engine := sampling.NewEngine(net, sampling.Config{Seed: seed})

	detail, err := sampling.EstimateDetail(engine, method, query, evidence, n)
	elapsed := time.Since(start)

	undefined := false
	if err != nil {
		if !errors.Is(err, sampling.ErrUndefined) {
			return nil, InferOutput{}, err
		}
		// An undefined estimate is an answer, not a tool failure. The
		// zero-result tallies are filled in from the call parameters.
		undefined = true
		detail.Method = method
		detail.Generated = n
	}

	out := InferOutput{
		Network:     doc.Name,
		Method:      string(method),
		Query:       query.String(),
		Evidence:    evidence.String(),
		Estimate:    detail.Value,
		Undefined:   undefined,
		Samples:     detail.Generated,
		Accepted:    detail.Accepted,
		Matched:     detail.Matched,
		TotalWeight: detail.TotalWeight,
		Seed:        seed,
		ElapsedMs:   elapsed.Milliseconds(),
	}

	if undefined {
		out.Message = fmt.Sprintf("P(%s) is undefined: no information survived the evidence after %d samples", condition(query, evidence), n)
	} else {
		out.Message = fmt.Sprintf("P(%s) = %.4f estimated from %d samples via %s", condition(query, evidence), detail.Value, detail.Generated, method)
	}

	runID, saveErr := s.runs.SaveRun(ctx, runstore.Run{
		Network:     doc.Name,
		Method:      string(method),
		Query:       query.String(),
		Evidence:    evidence.String(),
		SampleCount: n,
		Seed:        seed,
		Estimate:    detail.Value,
		Undefined:   undefined,
		Generated:   detail.Generated,
		Accepted:    detail.Accepted,
		TotalWeight: detail.TotalWeight,
		ElapsedMS:   elapsed.Milliseconds(),
		CreatedAt:   time.Now(),
	})
	if saveErr != nil {
		// Recording is best-effort; the estimate still goes back
		s.logger.Warn("failed to record run", "error", saveErr)
	} else {
		out.RunID = runID
	}

	return nil, out, nil
}

func (s *Server) handleNetwork(ctx context.Context, req *sdk.CallToolRequest, args NetworkInput) (_ *sdk.CallToolResult, _ NetworkOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("bnet_network", start, retErr, sanitizeToolParams(map[string]interface{}{
			"network": args.Network, "format": args.Format,
		}))
	}()

	if err := s.toolLimiters.Check("bnet_network"); err != nil {
		return nil, NetworkOutput{}, err
	}

	format := args.Format
	if format == "" {
		format = "summary"
	}
	if format != "summary" && format != "dot" {
		return nil, NetworkOutput{}, fmt.Errorf("unsupported format %q (valid: summary, dot)", format)
	}

	doc, net, err := s.loadNetwork(args.Network)
	if err != nil {
		return nil, NetworkOutput{}, err
	}

	out := NetworkOutput{
		Name:          doc.Name,
		VariableCount: net.Len(),
	}

	if err := net.CheckTables(); err != nil {
		out.Issue = err.Error()
	} else {
		out.TablesComplete = true
	}

	if format == "dot" {
		out.DOT = visualization.RenderDOT(net, doc.Name)
		return nil, out, nil
	}

	children := make(map[bayes.Variable][]string)
	for _, v := range net.Variables() {
		for _, p := range net.Parents(v) {
			children[p] = append(children[p], string(v))
		}
	}

	for _, v := range net.Variables() {
		def, _ := net.Definition(v)
		parents := make([]string, len(def.Parents))
		for i, p := range def.Parents {
			parents[i] = string(p)
		}
		kids := children[v]
		sort.Strings(kids)
		out.Variables = append(out.Variables, VariableInfo{
			Name:     string(v),
			Parents:  parents,
			Children: kids,
			Rows:     len(def.Table),
		})
	}

	order := net.Order()
	out.Order = make([]string, len(order))
	for i, v := range order {
		out.Order[i] = string(v)
	}

	return nil, out, nil
}

func (s *Server) handleSweep(ctx context.Context, req *sdk.CallToolRequest, args SweepInput) (_ *sdk.CallToolResult, _ SweepOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("bnet_sweep", start, retErr, sanitizeToolParams(map[string]interface{}{
			"network": args.Network, "query": args.Query, "evidence": args.Evidence,
			"method": args.Method, "start": args.Start, "stop": args.Stop, "step": args.Step,
			"seed": args.Seed,
		}))
	}()

	if err := s.toolLimiters.Check("bnet_sweep"); err != nil {
		return nil, SweepOutput{}, err
	}

	if len(args.Query) == 0 {
		return nil, SweepOutput{}, fmt.Errorf("query must assign at least one variable")
	}

	method := sampling.MethodRejection
	if args.Method != "" {
		var err error
		method, err = sampling.ParseMethod(args.Method)
		if err != nil {
			return nil, SweepOutput{}, err
		}
	}

	doc, net, err := s.loadNetwork(args.Network)
	if err != nil {
		return nil, SweepOutput{}, err
	}

	query := toEvent(args.Query)
	evidence := toEvent(args.Evidence)

	seed := pickSeed(args.Seed)
	engine := sampling.NewEngine(net, sampling.Config{Seed: seed})
	sweep := sampling.NewSweep(engine, sampling.SweepConfig{
		Start:  args.Start,
		Stop:   args.Stop,
		Step:   args.Step,
		Method: method,
	})

	if err := checkSweepBudget(sweep.Config()); err != nil {
		return nil, SweepOutput{}, err
	}

	points, err := sweep.Run(query, evidence)
	if err != nil && !errors.Is(err, sampling.ErrUndefined) {
		return nil, SweepOutput{}, err
	}

	cfg := sweep.Config()
	out := SweepOutput{
		Network:  doc.Name,
		Method:   string(cfg.Method),
		Query:    query.String(),
		Evidence: evidence.String(),
		Seed:     seed,
	}

	for _, p := range points {
		out.Points = append(out.Points, SweepPoint{N: p.N, Estimate: p.Estimate, Undefined: p.Undefined})
		if p.Undefined {
			out.UndefinedCount++
		}
	}
	out.PointCount = len(out.Points)

	switch {
	case err != nil:
		out.Message = fmt.Sprintf("P(%s) was undefined at every sample count in [%d, %d)", condition(query, evidence), cfg.Start, cfg.Stop)
	case out.UndefinedCount > 0:
		out.Message = fmt.Sprintf("Swept P(%s) over %d sample counts in [%d, %d) via %s; %d counts had undefined estimates",
			condition(query, evidence), out.PointCount, cfg.Start, cfg.Stop, cfg.Method, out.UndefinedCount)
	default:
		out.Message = fmt.Sprintf("Swept P(%s) over %d sample counts in [%d, %d) via %s",
			condition(query, evidence), out.PointCount, cfg.Start, cfg.Stop, cfg.Method)
	}

	return nil, out, nil
}

// checkSweepBudget rejects sweep ranges that exceed the per-call point
// and sample budgets.
func checkSweepBudget(cfg sampling.SweepConfig) error {
	if cfg.Start <= 0 || cfg.Step <= 0 || cfg.Stop <= cfg.Start {
		// Sweep.Run reports the precise range error
		return nil
	}

	points := 0
	total := 0
	for n := cfg.Start; n < cfg.Stop; n += cfg.Step {
		points++
		total += n
	}
	if points > maxSweepPoints {
		return fmt.Errorf("sweep spans %d points, limit is %d; raise step or lower stop", points, maxSweepPoints)
	}
	if total > maxSweepSamples {
		return fmt.Errorf("sweep draws %d samples in total, limit is %d; raise step or lower stop", total, maxSweepSamples)
	}
	return nil
}
