package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mgriffen/bnet/internal/runstore"
)

func TestQueryCmdPriorJSON(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{"query", "Exposure=true", "--json", "--samples", "4000", "--seed", "7", "--no-record"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if result["network"] != "fever" {
		t.Errorf("network = %v, want fever", result["network"])
	}
	if result["method"] != "prior" {
		t.Errorf("method = %v, want prior", result["method"])
	}
	if result["undefined"] != false {
		t.Errorf("undefined = %v, want false", result["undefined"])
	}
	if result["samples"] != float64(4000) {
		t.Errorf("samples = %v, want 4000", result["samples"])
	}
	if result["seed"] != float64(7) {
		t.Errorf("seed = %v, want 7", result["seed"])
	}
	if _, hasEvidence := result["evidence"]; hasEvidence {
		t.Error("unconditioned query should not report evidence")
	}

	estimate, ok := result["estimate"].(float64)
	if !ok {
		t.Fatalf("estimate = %v, want a number", result["estimate"])
	}
	if math.Abs(estimate-0.25) > 0.05 {
		t.Errorf("estimate = %f, want within 0.05 of 0.25", estimate)
	}
}

func TestQueryCmdRejectionPosterior(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{
		"query", "Exposure=true",
		"--evidence", "Aches=true,Thermometer=true",
		"--samples", "10000", "--seed", "1",
		"--json", "--no-record",
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if result["method"] != "rejection" {
		t.Errorf("method = %v, want rejection", result["method"])
	}
	if result["evidence"] != "Aches=true,Thermometer=true" {
		t.Errorf("evidence = %v, want Aches=true,Thermometer=true", result["evidence"])
	}

	estimate, _ := result["estimate"].(float64)
	if math.Abs(estimate-feverPosterior) > 0.07 {
		t.Errorf("estimate = %f, want within 0.07 of %f", estimate, feverPosterior)
	}

	accepted, _ := result["accepted"].(float64)
	if accepted <= 0 || accepted >= 10000 {
		t.Errorf("accepted = %v, want between 0 and 10000 exclusive", result["accepted"])
	}
}

func TestQueryCmdLikelihoodWeighting(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{
		"query", "Exposure=true",
		"--evidence", "Aches=true,Thermometer=true",
		"--method", "lw",
		"--samples", "8000", "--seed", "3",
		"--json", "--no-record",
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	if result["method"] != "likelihood" {
		t.Errorf("method = %v, want likelihood (lw should canonicalize)", result["method"])
	}
	totalWeight, _ := result["total_weight"].(float64)
	if totalWeight <= 0 {
		t.Errorf("total_weight = %v, want > 0", result["total_weight"])
	}

	estimate, _ := result["estimate"].(float64)
	if math.Abs(estimate-feverPosterior) > 0.07 {
		t.Errorf("estimate = %f, want within 0.07 of %f", estimate, feverPosterior)
	}
}

func TestQueryCmdRecordsRun(t *testing.T) {
	tmpDir := t.TempDir()
	home := isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{"query", "Fever=true", "--samples", "500", "--seed", "3", "--json"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}

	runID, ok := result["run_id"].(string)
	if !ok || runID == "" {
		t.Fatalf("run_id = %v, want a non-empty string", result["run_id"])
	}

	store, err := runstore.NewSQLiteStore(filepath.Join(home, ".bnet", "runs.db"))
	if err != nil {
		t.Fatalf("failed to open run store: %v", err)
	}
	defer store.Close()

	run, err := store.GetRun(context.Background(), runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run == nil {
		t.Fatalf("run %s not recorded", runID)
	}
	if run.Network != "fever" {
		t.Errorf("run.Network = %q, want fever", run.Network)
	}
	if run.Method != "prior" {
		t.Errorf("run.Method = %q, want prior", run.Method)
	}
	if run.Query != "Fever=true" {
		t.Errorf("run.Query = %q, want Fever=true", run.Query)
	}
	if run.SampleCount != 500 {
		t.Errorf("run.SampleCount = %d, want 500", run.SampleCount)
	}
	if run.Seed != 3 {
		t.Errorf("run.Seed = %d, want 3", run.Seed)
	}
}

func TestQueryCmdNoRecordSkipsStore(t *testing.T) {
	tmpDir := t.TempDir()
	home := isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{"query", "Fever=true", "--samples", "100", "--seed", "8", "--json", "--no-record"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if _, hasRunID := result["run_id"]; hasRunID {
		t.Error("--no-record should not report a run_id")
	}

	store, err := runstore.NewSQLiteStore(filepath.Join(home, ".bnet", "runs.db"))
	if err != nil {
		t.Fatalf("failed to open run store: %v", err)
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no recorded runs, got %d", len(runs))
	}
}

func TestQueryCmdUndefinedIsAnAnswer(t *testing.T) {
	tmpDir := t.TempDir()
	home := isolateHome(t, tmpDir)
	path := writeNetworkFile(t, tmpDir, "certainty.yaml", certaintyYAML)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{
		"query", "Root=true",
		"--evidence", "Leaf=true",
		"--network", path,
		"--samples", "200", "--seed", "2",
		"--json",
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("undefined estimate should not fail the command: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if result["undefined"] != true {
		t.Errorf("undefined = %v, want true", result["undefined"])
	}
	if result["estimate"] != float64(0) {
		t.Errorf("estimate = %v, want 0", result["estimate"])
	}

	// The undefined run is still recorded.
	runID, _ := result["run_id"].(string)
	if runID == "" {
		t.Fatal("undefined run should still be recorded")
	}
	store, err := runstore.NewSQLiteStore(filepath.Join(home, ".bnet", "runs.db"))
	if err != nil {
		t.Fatalf("failed to open run store: %v", err)
	}
	defer store.Close()
	run, err := store.GetRun(context.Background(), runID)
	if err != nil || run == nil {
		t.Fatalf("GetRun(%s) = %v, %v", runID, run, err)
	}
	if !run.Undefined {
		t.Error("recorded run should be marked undefined")
	}
}

func TestQueryCmdUndefinedText(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)
	path := writeNetworkFile(t, tmpDir, "certainty.yaml", certaintyYAML)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{
		"query", "Root=true",
		"--evidence", "Leaf=true",
		"--network", path,
		"--samples", "50", "--seed", "6",
		"--no-record",
	})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if !strings.Contains(out.String(), "is undefined") {
		t.Errorf("expected undefined message, got: %s", out.String())
	}
}

func TestQueryCmdSameSeedReproduces(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	estimates := make([]float64, 2)
	for i := range estimates {
		rootCmd := newTestRootCmd()
		rootCmd.AddCommand(newQueryCmd())
		rootCmd.SetArgs([]string{
			"query", "Exposure=true",
			"--evidence", "Aches=true",
			"--samples", "2000", "--seed", "42",
			"--json", "--no-record",
		})
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("query %d failed: %v", i, err)
		}
		var result map[string]interface{}
		if err := json.Unmarshal(out.Bytes(), &result); err != nil {
			t.Fatalf("failed to parse output %d: %v", i, err)
		}
		estimates[i], _ = result["estimate"].(float64)
	}

	if estimates[0] != estimates[1] {
		t.Errorf("same seed gave different estimates: %f vs %f", estimates[0], estimates[1])
	}
}

func TestQueryCmdConflictingEvidence(t *testing.T) {
	tmpDir := t.TempDir()
	isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{
		"query", "Exposure=true",
		"--evidence", "Exposure=false",
		"--samples", "100", "--no-record",
	})
	rootCmd.SetOut(&bytes.Buffer{})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for conflicting query and evidence")
	}
	if !strings.Contains(err.Error(), "in the query but") {
		t.Errorf("expected conflict error, got: %v", err)
	}
}

func TestQueryCmdRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"empty query", []string{"query", ""}},
		{"malformed event", []string{"query", "Exposure"}},
		{"unknown variable", []string{"query", "Nope=true", "--samples", "10", "--no-record"}},
		{"unknown method", []string{"query", "Exposure=true", "--method", "gibbs"}},
		{"negative samples", []string{"query", "Exposure=true", "--samples", "-5"}},
		{"prior with evidence", []string{"query", "Exposure=true", "--method", "prior", "--evidence", "Aches=true", "--samples", "10", "--no-record"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			isolateHome(t, tmpDir)

			rootCmd := newTestRootCmd()
			rootCmd.AddCommand(newQueryCmd())
			rootCmd.SetArgs(tt.args)
			rootCmd.SetOut(&bytes.Buffer{})
			rootCmd.SetErr(&bytes.Buffer{})
			if err := rootCmd.Execute(); err == nil {
				t.Errorf("expected error for %v", tt.args)
			}
		})
	}
}

func TestQueryCmdDebugRunLog(t *testing.T) {
	tmpDir := t.TempDir()
	tmpHome := isolateHome(t, tmpDir)

	bnetDir := filepath.Join(tmpHome, ".bnet")
	if err := os.MkdirAll(bnetDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	conf := "logging:\n  level: debug\n"
	if err := os.WriteFile(filepath.Join(bnetDir, "config.yaml"), []byte(conf), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{"query", "Fever=true", "--samples", "200", "--seed", "6", "--no-record"})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(bnetDir, "runs.jsonl"))
	if err != nil {
		t.Fatalf("run log was not written: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one run log line, got %d", len(lines))
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("run log line is not JSON: %v", err)
	}
	if entry["event"] != "query" {
		t.Errorf("event = %v, want query", entry["event"])
	}
	if entry["network"] != "fever" {
		t.Errorf("network = %v, want fever", entry["network"])
	}
	if entry["seed"] != 6.0 {
		t.Errorf("seed = %v, want 6", entry["seed"])
	}
	if entry["samples"] != 200.0 {
		t.Errorf("samples = %v, want 200", entry["samples"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a time field on the run log entry")
	}
}

func TestQueryCmdInfoLevelSkipsRunLog(t *testing.T) {
	tmpDir := t.TempDir()
	tmpHome := isolateHome(t, tmpDir)

	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newQueryCmd())
	rootCmd.SetArgs([]string{"query", "Fever=true", "--samples", "50", "--seed", "2", "--no-record"})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("query failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(tmpHome, ".bnet", "runs.jsonl")); !os.IsNotExist(err) {
		t.Errorf("run log should not exist at the default log level, stat err = %v", err)
	}
}
