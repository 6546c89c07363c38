package runstore

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "runs.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
	if store.Path() != dbPath {
		t.Errorf("Path() = %v, want %v", store.Path(), dbPath)
	}
}

func TestSQLiteStore_SaveGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := Run{
		ID:          "r-100",
		Network:     "fever",
		Method:      "likelihood",
		Query:       "Exposure=true",
		Evidence:    "Aches=true,Thermometer=true",
		SampleCount: 10000,
		Seed:        math.MaxUint64,
		Estimate:    0.5842,
		Generated:   10000,
		Accepted:    10000,
		TotalWeight: 1437.5,
		ElapsedMS:   12,
		CreatedAt:   time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	}

	id, err := store.SaveRun(ctx, run)
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if id != "r-100" {
		t.Errorf("SaveRun() id = %v, want r-100", id)
	}

	got, err := store.GetRun(ctx, "r-100")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetRun() returned nil")
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("GetRun() CreatedAt = %v, want %v", got.CreatedAt, run.CreatedAt)
	}
	got.CreatedAt = run.CreatedAt
	if *got != run {
		t.Errorf("GetRun() = %+v, want %+v", *got, run)
	}
}

func TestSQLiteStore_SaveAssignsID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.SaveRun(ctx, Run{Network: "fever", Method: "prior", Query: "Exposure=true", SampleCount: 10})
	if err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if !strings.HasPrefix(id, "r-") {
		t.Errorf("SaveRun() id = %v, want r- prefix", id)
	}

	got, err := store.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetRun() returned nil for assigned ID")
	}
	if got.CreatedAt.IsZero() {
		t.Error("SaveRun() did not stamp CreatedAt")
	}
}

func TestSQLiteStore_GetRunMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRun(context.Background(), "r-nope")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetRun() = %+v, want nil", got)
	}
}

func TestSQLiteStore_UndefinedRunHasNoEstimate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := Run{
		ID:          "r-200",
		Network:     "fever",
		Method:      "rejection",
		Query:       "Exposure=true",
		Evidence:    "Fever=true,Fever2=false",
		SampleCount: 100,
		Estimate:    0.42, // discarded: an undefined run has no estimate
		Undefined:   true,
		Generated:   100,
		CreatedAt:   time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	}

	if _, err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	got, err := store.GetRun(ctx, "r-200")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if !got.Undefined {
		t.Error("GetRun() Undefined = false, want true")
	}
	if got.Estimate != 0 {
		t.Errorf("GetRun() Estimate = %v, want 0 for undefined run", got.Estimate)
	}
}

func TestSQLiteStore_ListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"r-1", "r-2", "r-3"} {
		run := Run{
			ID:          id,
			Network:     "fever",
			Method:      "prior",
			Query:       "Exposure=true",
			SampleCount: 10,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if _, err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun(%s) error = %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("ListRuns() returned %d runs, want 3", len(runs))
	}
	for i, want := range []string{"r-3", "r-2", "r-1"} {
		if runs[i].ID != want {
			t.Errorf("ListRuns()[%d].ID = %v, want %v", i, runs[i].ID, want)
		}
	}

	limited, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("ListRuns(2) returned %d runs, want 2", len(limited))
	}
	if limited[0].ID != "r-3" || limited[1].ID != "r-2" {
		t.Errorf("ListRuns(2) IDs = %v, %v, want r-3, r-2", limited[0].ID, limited[1].ID)
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	run := Run{
		ID:          "r-keep",
		Network:     "fever",
		Method:      "rejection",
		Query:       "Exposure=true",
		SampleCount: 500,
		Estimate:    0.25,
		CreatedAt:   time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC),
	}
	if _, err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetRun(ctx, "r-keep")
	if err != nil {
		t.Fatalf("GetRun() after reopen error = %v", err)
	}
	if got == nil {
		t.Fatal("GetRun() after reopen returned nil")
	}
	if got.Estimate != 0.25 {
		t.Errorf("GetRun() Estimate = %v, want 0.25", got.Estimate)
	}
}

func TestNewSQLiteStore_FutureSchemaRejected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")

	store, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Stamp a version this build does not know about.
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	if _, err := db.Exec(
		`INSERT INTO schema_version (version, applied_at) VALUES (99, datetime('now'))`); err != nil {
		t.Fatalf("stamping future version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("db.Close() error = %v", err)
	}

	if _, err := NewSQLiteStore(dbPath); err == nil {
		t.Fatal("NewSQLiteStore() accepted a database from a newer build")
	} else if !strings.Contains(err.Error(), "newer") {
		t.Errorf("NewSQLiteStore() error = %v, want mention of newer version", err)
	}
}
