package migrate_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dnordberg/sqlmigrate/migrate"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func newTestTracker(t *testing.T, db *sql.DB) *migrate.Tracker {
	t.Helper()

	tracker, err := migrate.NewTracker(db, migrate.SQLiteDialect{}, "")
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}

	return tracker
}

func appliedVersions(t *testing.T, tracker *migrate.Tracker) []int64 {
	t.Helper()

	applied, err := tracker.Applied(t.Context())
	if err != nil {
		t.Fatalf("query applied migrations: %v", err)
	}

	vs := make([]int64, 0, len(applied))
	for v := range applied {
		vs = append(vs, v)
	}

	return vs
}

func TestRunner_AppliesInOrderThenIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	tracker := newTestTracker(t, db)

	units := []migrate.Migration{
		migrate.NewStatementBatch(1, "create_items", `CREATE TABLE items (id INTEGER PRIMARY KEY, label TEXT);`),
		migrate.NewStatementBatch(2, "seed_items", `INSERT INTO items (label) VALUES ('a'), ('b');`),
		migrate.NewStatementBatch(3, "index_items", `CREATE INDEX idx_items_label ON items (label);`),
	}

	runner := migrate.NewRunner(db, tracker)

	n, err := runner.Run(t.Context(), units)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	if n != 3 {
		t.Errorf("first run applied %d units, want 3", n)
	}

	sortOpt := cmpopts.SortSlices(func(a, b int64) bool { return a < b })
	if diff := cmp.Diff([]int64{1, 2, 3}, appliedVersions(t, tracker), sortOpt); diff != "" {
		t.Errorf("applied set mismatch (-want +got):\n%s", diff)
	}

	// unchanged applied set, second run is a no-op
	n, err = runner.Run(t.Context(), units)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if n != 0 {
		t.Errorf("second run applied %d units, want 0", n)
	}

	// a newly added unit is the only one applied
	units = append(units, migrate.NewStatementBatch(4, "add_column", `ALTER TABLE items ADD COLUMN note TEXT;`))

	n, err = runner.Run(t.Context(), units)
	if err != nil {
		t.Fatalf("third run failed: %v", err)
	}

	if n != 1 {
		t.Errorf("third run applied %d units, want 1", n)
	}
}

func TestRunner_StopsAtFirstFailure(t *testing.T) {
	db := newTestDB(t)
	tracker := newTestTracker(t, db)

	thirdAttempted := false

	units := []migrate.Migration{
		migrate.NewStatementBatch(1, "create_items", `CREATE TABLE items (id INTEGER PRIMARY KEY);`),
		migrate.NewStatementBatch(2, "broken", `INSERT INTO no_such_table VALUES (1);`),
		migrate.NewCallable(3, "never_reached", func(context.Context, *sql.Tx) error {
			thirdAttempted = true
			return nil
		}),
	}

	runner := migrate.NewRunner(db, tracker)

	n, err := runner.Run(t.Context(), units)

	var failedErr *migrate.MigrationFailedError
	if !errors.As(err, &failedErr) {
		t.Fatalf("want MigrationFailedError, got: %v", err)
	}

	if failedErr.Version != 2 {
		t.Errorf("failing version: got %d, want 2", failedErr.Version)
	}

	if n != 1 {
		t.Errorf("applied %d units before the failure, want 1", n)
	}

	if thirdAttempted {
		t.Error("unit 3 was attempted after unit 2 failed")
	}

	if diff := cmp.Diff([]int64{1}, appliedVersions(t, tracker)); diff != "" {
		t.Errorf("applied set mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_RollsBackPartialBatch(t *testing.T) {
	db := newTestDB(t)
	tracker := newTestTracker(t, db)

	// the first statement succeeds, the second fails; after rollback the
	// table must not exist and no applied record may remain.
	units := []migrate.Migration{
		migrate.NewStatementBatch(1, "partial", `
			CREATE TABLE partial (id INTEGER PRIMARY KEY);
			INSERT INTO no_such_table VALUES (1);
		`),
	}

	runner := migrate.NewRunner(db, tracker)

	if _, err := runner.Run(t.Context(), units); err == nil {
		t.Fatal("want run to fail, got nil error")
	}

	var count int

	err := db.QueryRowContext(t.Context(),
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'partial';`).Scan(&count)
	if err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}

	if count != 0 {
		t.Error("partially executed batch left the 'partial' table behind")
	}

	if got := appliedVersions(t, tracker); len(got) != 0 {
		t.Errorf("want empty applied set after rollback, got %v", got)
	}
}

func TestRunner_UpToStopsEarly(t *testing.T) {
	db := newTestDB(t)
	tracker := newTestTracker(t, db)

	units := []migrate.Migration{
		migrate.NewStatementBatch(1, "one", `CREATE TABLE one (id INTEGER);`),
		migrate.NewStatementBatch(2, "two", `CREATE TABLE two (id INTEGER);`),
		migrate.NewStatementBatch(3, "three", `CREATE TABLE three (id INTEGER);`),
	}

	runner := migrate.NewRunner(db, tracker, migrate.WithUpTo(2))

	n, err := runner.Run(t.Context(), units)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if n != 2 {
		t.Errorf("applied %d units, want 2", n)
	}

	sortOpt := cmpopts.SortSlices(func(a, b int64) bool { return a < b })
	if diff := cmp.Diff([]int64{1, 2}, appliedVersions(t, tracker), sortOpt); diff != "" {
		t.Errorf("applied set mismatch (-want +got):\n%s", diff)
	}
}

func TestRunner_CallableReceivesTransaction(t *testing.T) {
	db := newTestDB(t)
	tracker := newTestTracker(t, db)

	units := []migrate.Migration{
		migrate.NewStatementBatch(1, "create_items", `CREATE TABLE items (id INTEGER PRIMARY KEY, label TEXT);`),
		migrate.NewCallable(2, "backfill", func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO items (label) VALUES ('computed');`)
			return err
		}),
	}

	runner := migrate.NewRunner(db, tracker)

	if _, err := runner.Run(t.Context(), units); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	var label string
	if err := db.QueryRowContext(t.Context(), `SELECT label FROM items;`).Scan(&label); err != nil {
		t.Fatalf("query items: %v", err)
	}

	if label != "computed" {
		t.Errorf("got label %q, want %q", label, "computed")
	}
}

func TestTracker_RecordRejectsDuplicate(t *testing.T) {
	db := newTestDB(t)
	tracker := newTestTracker(t, db)

	if err := tracker.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	// EnsureSchema is idempotent
	if err := tracker.EnsureSchema(t.Context()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}

	m := migrate.NewStatementBatch(1, "first", "")

	if err := tracker.Record(t.Context(), db, m, time.Now()); err != nil {
		t.Fatalf("first record: %v", err)
	}

	err := tracker.Record(t.Context(), db, m, time.Now())
	if !errors.Is(err, migrate.ErrDuplicateVersion) {
		t.Fatalf("want ErrDuplicateVersion, got: %v", err)
	}
}

func TestTracker_RejectsInvalidTableName(t *testing.T) {
	db := newTestDB(t)

	if _, err := migrate.NewTracker(db, migrate.SQLiteDialect{}, "drop table; --"); err == nil {
		t.Fatal("want error for invalid table name, got nil")
	}
}

func TestDialectFor(t *testing.T) {
	for _, driver := range []string{"sqlite", "sqlite3", "postgres", "pgx"} {
		if _, err := migrate.DialectFor(driver); err != nil {
			t.Errorf("driver %q: unexpected error: %v", driver, err)
		}
	}

	if _, err := migrate.DialectFor("oracle"); err == nil {
		t.Error("want error for unsupported driver, got nil")
	}
}

func TestOpenSession_ClosesOnPingFailure(t *testing.T) {
	// a sqlite DSN pointing into a missing directory fails at ping time
	_, err := migrate.OpenSession(t.Context(), "sqlite", filepath.Join(t.TempDir(), "missing", "x.db"))
	if err == nil {
		t.Fatal("want error, got nil")
	}
}
