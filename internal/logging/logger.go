// Package logging provides leveled logging and run tracing for bnet.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A RunLogger for structured JSONL traces of inference runs
//     (.bnet/runs.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug for per-run detail.
// At this level sample tallies, weights, and sweep points are included.
const LevelTrace = slog.LevelDebug - 4

// ParseLevel maps a level name to a slog.Level. It accepts "info",
// "debug", and "trace" (case-insensitive); anything else, including the
// empty string, means info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: labelTraceLevel,
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// labelTraceLevel renames the synthetic trace level in handler output,
// which slog would otherwise print as DEBUG-4.
func labelTraceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// RunLogger appends inference run events to a JSONL file, one object
// per line. It is safe for concurrent use. A nil RunLogger is safe;
// all methods are no-ops on a nil receiver.
type RunLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewRunLogger creates a run logger writing to dir/runs.jsonl.
// At "info" level (the default) it returns nil and no file is created;
// "debug" and "trace" open the file for append. Returns nil if the
// file cannot be opened. All methods are nil-safe.
func NewRunLogger(dir string, level string) *RunLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	f, err := os.OpenFile(filepath.Join(dir, "runs.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &RunLogger{file: f}
}

// Log writes one event line. The event name lands under "event" and a
// "time" field is added automatically; the caller's map is not mutated.
// Safe to call on a nil receiver.
func (rl *RunLogger) Log(event string, fields map[string]any) {
	if rl == nil {
		return
	}

	entry := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		entry[k] = v
	}
	entry["event"] = event
	entry["time"] = time.Now().UTC().Format(time.RFC3339Nano)

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.file == nil {
		return
	}
	_, _ = rl.file.Write(data)
}

// Close closes the underlying file. Safe to call on a nil receiver,
// and more than once.
func (rl *RunLogger) Close() {
	if rl == nil {
		return
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.file == nil {
		return
	}
	rl.file.Close()
	rl.file = nil
}
