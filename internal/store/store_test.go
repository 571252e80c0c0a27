package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roach88/bequest/internal/plan"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"config_state", "plans", "plan_executions", "beneficiary_claims", "audit_events"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}

	// Re-running the schema must not add a second config row.
	var rows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM config_state").Scan(&rows); err != nil {
		t.Fatalf("count config rows: %v", err)
	}
	if rows != 1 {
		t.Errorf("config_state has %d rows, want 1", rows)
	}
}

func TestOpen_PreservesStateAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() failed: %v", err)
	}
	err = s1.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.Config.SetOracle(ctx, "oracle")
		return err
	})
	if err != nil {
		t.Fatalf("SetOracle failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() failed: %v", err)
	}
	defer s2.Close()

	cfg, err := s2.Config().Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Oracle != "oracle" {
		t.Errorf("oracle = %q after reopen, want %q", cfg.Oracle, "oracle")
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	cfg, err := s.Config().Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PlanCapacity != 1000 {
		t.Errorf("default capacity = %d, want 1000", cfg.PlanCapacity)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

// Pragma tests

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name, want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.want); err != nil {
			t.Error(err)
		}
	}
}

// Schema tests

func TestSchema_PlansTable(t *testing.T) {
	s := createTestStore(t)

	columns := getTableColumns(t, s.db, "plans")
	want := []string{
		"id", "creator", "beneficiaries", "encrypted_allocation", "conditions",
		"status", "created_at", "updated_at", "vault_id", "version",
	}
	if !slices.Equal(columns, want) {
		t.Errorf("plans columns = %v, want %v", columns, want)
	}
}

func TestSchema_StatusCheck(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`
		INSERT INTO plans (id, creator, beneficiaries, encrypted_allocation, conditions,
		                   status, created_at, updated_at, vault_id, version)
		VALUES (0, 'alice', '[]', x'01', '[]', 'Paused', 1, 1, 1, 1)
	`)
	if err == nil {
		t.Error("expected CHECK constraint failure for unknown status")
	}
}

func TestConstraint_ExecutionRequiresPlan(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.Plans.InsertExecution(ctx, plan.Execution{PlanID: 7, ExecutedAt: 1, Verified: true, Executor: "oracle"})
	})
	if err == nil {
		t.Error("expected foreign key violation for execution of unknown plan")
	}
}

// Transaction tests

func TestWithTx_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	boom := errors.New("vault refused")

	err := s.WithTx(ctx, func(tx *Tx) error {
		if err := tx.Plans.Insert(ctx, testPlan(0)); err != nil {
			return err
		}
		if _, err := tx.Config.IncrementPlanCount(ctx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want %v", err, boom)
	}

	_, ok, err := s.Plans().Get(ctx, 0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("plan visible after rollback")
	}
	cfg, err := s.Config().Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PlanCount != 0 {
		t.Errorf("plan_count = %d after rollback, want 0", cfg.PlanCount)
	}
}

func TestWithTx_Commits(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx *Tx) error {
		return tx.Plans.Insert(ctx, testPlan(0))
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	_, ok, err := s.Plans().Get(ctx, 0)
	if err != nil || !ok {
		t.Fatalf("Get after commit: ok=%v err=%v", ok, err)
	}
}

func TestView_SeesCommittedState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	insertPlan(t, s, testPlan(0))

	var got plan.Plan
	err := s.View(ctx, func(tx *Tx) error {
		p, ok, err := tx.Plans.Get(ctx, 0)
		if !ok && err == nil {
			return sql.ErrNoRows
		}
		got = p
		return err
	})
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if got.Creator != "alice" {
		t.Errorf("creator = %q, want alice", got.Creator)
	}
}

// Migration tests

func TestMigration_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	// Simulate a database created before the per-plan audit index existed.
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec("DROP INDEX idx_audit_events_plan"); err != nil {
		t.Fatalf("failed to drop index: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("failed to set user_version: %v", err)
	}
	db.Close()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("failed to get user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d after migration", version, currentSchemaVersion)
	}

	indexes := getTableIndexes(t, s.db, "audit_events")
	if !slices.Contains(indexes, "idx_audit_events_plan") {
		t.Errorf("expected idx_audit_events_plan after migration, got indexes: %v", indexes)
	}
}

// Helper functions

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
