package runstore

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations holds one DDL batch per schema version. A database at
// version n has had migrations[:n] applied; initSchema brings it the
// rest of the way inside a single transaction.
var migrations = []string{
	// v1: the runs table and its version bookkeeping.
	`
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);

-- Recorded inference runs (denormalized for single-query retrieval)
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    network TEXT NOT NULL,
    method TEXT NOT NULL,
    query TEXT NOT NULL,
    evidence TEXT,

    sample_count INTEGER NOT NULL,
    seed TEXT,               -- decimal uint64, TEXT avoids INTEGER overflow
    estimate REAL,           -- NULL when the run was undefined
    undefined INTEGER DEFAULT 0,

    generated INTEGER DEFAULT 0,
    accepted INTEGER DEFAULT 0,
    total_weight REAL DEFAULT 0,

    elapsed_ms INTEGER DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_network ON runs(network);
`,
}

// initSchema brings the database up to the newest schema version.
// Databases that already hold data pass an integrity check before any
// migration runs.
func initSchema(ctx context.Context, db *sql.DB) error {
	version := schemaVersion(ctx, db)
	if version > len(migrations) {
		return fmt.Errorf("database schema version %d is newer than this build understands", version)
	}
	if version == len(migrations) {
		return nil
	}
	if version > 0 {
		if err := checkIntegrity(ctx, db); err != nil {
			return err
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer tx.Rollback()

	for v := version; v < len(migrations); v++ {
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			return fmt.Errorf("apply schema migration %d: %w", v+1, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
			v+1); err != nil {
			return fmt.Errorf("record schema version %d: %w", v+1, err)
		}
	}
	return tx.Commit()
}

// schemaVersion reads the recorded version. A missing or empty
// schema_version table means a fresh database, version 0.
func schemaVersion(ctx context.Context, db *sql.DB) int {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&v); err != nil {
		return 0
	}
	return int(v.Int64)
}

// checkIntegrity asks SQLite to verify the file before migrations touch
// it. PRAGMA integrity_check reports "ok" as its only row on a healthy
// database.
func checkIntegrity(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var report string
		if err := rows.Scan(&report); err != nil {
			return fmt.Errorf("integrity check: %w", err)
		}
		if report != "ok" {
			return fmt.Errorf("database failed integrity check: %s", report)
		}
	}
	return rows.Err()
}
