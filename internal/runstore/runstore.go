// Package runstore persists inference run records so past estimates
// can be listed, replayed, and compared across invocations.
package runstore

import (
	"context"
	"fmt"
	"time"
)

// Run is a single recorded inference run: the question asked, the
// sampler configuration, and the estimate it produced.
type Run struct {
	ID          string    `json:"id"`
	Network     string    `json:"network"`
	Method      string    `json:"method"`
	Query       string    `json:"query"`
	Evidence    string    `json:"evidence,omitempty"`
	SampleCount int       `json:"sample_count"`
	Seed        uint64    `json:"seed"`
	Estimate    float64   `json:"estimate"`
	Undefined   bool      `json:"undefined"` // no sample satisfied the evidence
	Generated   int       `json:"generated"`
	Accepted    int       `json:"accepted"`
	TotalWeight float64   `json:"total_weight,omitempty"`
	ElapsedMS   int64     `json:"elapsed_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store defines the interface for persisting and retrieving runs.
type Store interface {
	// SaveRun persists a run record and returns its ID.
	// A run without an ID is assigned a fresh one.
	SaveRun(ctx context.Context, run Run) (string, error)

	// GetRun retrieves a run by ID. Returns nil if not found.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns the most recent runs, newest first.
	// A limit <= 0 returns all runs.
	ListRuns(ctx context.Context, limit int) ([]Run, error)

	Close() error
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return fmt.Sprintf("r-%d", time.Now().UnixNano())
}
