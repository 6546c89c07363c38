package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEntry is a single audit record for an MCP tool invocation. It
// captures call metadata without query content or file paths.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"` // sanitized metadata only
}

// AuditLogger appends entries to ~/.bnet/audit.jsonl. It is safe for
// concurrent use, and a nil AuditLogger is safe to use; all methods are
// no-ops on a nil receiver.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger creates an audit logger writing to dir/.bnet/audit.jsonl.
// If the file cannot be created, a warning goes to stderr and the
// returned logger is nil (non-fatal).
func NewAuditLogger(dir string) *AuditLogger {
	if dir == "" {
		return nil
	}

	path := filepath.Join(dir, ".bnet", "audit.jsonl")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", filepath.Dir(path), err)
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}

	return &AuditLogger{file: f}
}

// Log appends a JSON-encoded entry as a single line. Safe to call on a
// nil receiver.
func (a *AuditLogger) Log(entry AuditEntry) {
	if a == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return // skip malformed entries
	}

	data = append(data, '\n')
	_, _ = a.file.Write(data)
}

// Close closes the audit log. Safe to call on a nil receiver and safe
// to call more than once.
func (a *AuditLogger) Close() error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.file == nil {
		return nil
	}

	err := a.file.Close()
	a.file = nil
	return err
}

// sanitizeToolParams extracts safe metadata from tool parameters. It
// returns key names and non-sensitive value summaries, never content.
//
// Parameters fall into three categories:
//   - Safe-value params: both key and value are logged (e.g. "method")
//   - Presence-only params: the key is logged, the value becomes "(set)"
//   - Unknown params: not logged at all
//
// A "_param_count" key always records how many params were provided.
func sanitizeToolParams(params map[string]interface{}) map[string]string {
	if params == nil {
		return nil
	}

	result := make(map[string]string)

	// Parameter names whose VALUES are safe to log
	safeValueParams := map[string]bool{
		"method":  true,
		"samples": true,
		"seed":    true,
		"start":   true,
		"stop":    true,
		"step":    true,
		"format":  true,
	}

	// Parameters whose existence is safe to log but whose values may
	// carry file paths or query content
	presenceOnlyParams := map[string]bool{
		"network":  true,
		"query":    true,
		"evidence": true,
	}

	for key, val := range params {
		if safeValueParams[key] {
			result[key] = fmt.Sprintf("%v", val)
		} else if presenceOnlyParams[key] {
			result[key] = "(set)"
		}
		// Other params are not logged at all
	}

	result["_param_count"] = fmt.Sprintf("%d", len(params))

	return result
}

// auditTool logs one tool invocation. Call it deferred with the start
// time captured at handler entry.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	s.auditLogger.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: time.Since(start).Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
}
