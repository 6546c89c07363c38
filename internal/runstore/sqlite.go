package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements Store using SQLite for persistence.
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the run database at dbPath, creating the file
// and its parent directory as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with a single writer

	if err := initSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// SaveRun persists a run record and returns its ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, run Run) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = NewRunID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	// An undefined run has no estimate worth storing.
	estimate := sql.NullFloat64{Float64: run.Estimate, Valid: !run.Undefined}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(id, network, method, query, evidence, sample_count, seed, estimate,
		 undefined, generated, accepted, total_weight, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Network, run.Method, run.Query, nullString(run.Evidence),
		run.SampleCount, strconv.FormatUint(run.Seed, 10), estimate,
		boolToInt(run.Undefined), run.Generated, run.Accepted,
		run.TotalWeight, run.ElapsedMS, run.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	return run.ID, nil
}

// GetRun retrieves a run by ID. Returns nil if not found.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, network, method, query, evidence, sample_count, seed, estimate,
		       undefined, generated, accepted, total_weight, elapsed_ms, created_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Run IDs embed the creation nanosecond, so they break ties between
	// runs that share a created_at second.
	query := `
		SELECT id, network, method, query, evidence, sample_count, seed, estimate,
		       undefined, generated, accepted, total_weight, elapsed_ms, created_at
		FROM runs ORDER BY created_at DESC, id DESC`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		evidence  sql.NullString
		seed      sql.NullString
		estimate  sql.NullFloat64
		undefined int
		createdAt string
	)

	if err := row.Scan(&run.ID, &run.Network, &run.Method, &run.Query, &evidence,
		&run.SampleCount, &seed, &estimate, &undefined, &run.Generated,
		&run.Accepted, &run.TotalWeight, &run.ElapsedMS, &createdAt); err != nil {
		return nil, err
	}

	run.Evidence = evidence.String
	if seed.Valid && seed.String != "" {
		v, err := strconv.ParseUint(seed.String, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse seed %q: %w", seed.String, err)
		}
		run.Seed = v
	}
	run.Estimate = estimate.Float64
	run.Undefined = undefined != 0

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}
	run.CreatedAt = t

	return &run, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
