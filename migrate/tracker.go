package migrate

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// DefaultTable is the tracking table name used when none is configured.
const DefaultTable = "schema_migrations"

// Executor is the subset of [*sql.DB] and [*sql.Tx] the tracker needs to
// record rows, so Record can run inside the caller's transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// AppliedMigration is one row of the tracking table.
type AppliedMigration struct {
	Version   int64
	Name      string
	AppliedAt time.Time
}

// Tracker persists the set of applied migration versions inside the target
// database.
type Tracker struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// NewTracker returns a tracker over the given connection and dialect.
// The table name must be a plain SQL identifier; it is interpolated into
// the dialect queries.
func NewTracker(db *sql.DB, dialect Dialect, table string) (*Tracker, error) {
	if table == "" {
		table = DefaultTable
	}

	if !validTableName(table) {
		return nil, errf("invalid tracking table name %q", table)
	}

	return &Tracker{db: db, dialect: dialect, table: table}, nil
}

// EnsureSchema creates the tracking table if absent. It is idempotent and
// safe to call from concurrent processes: creation is a single
// create-if-not-exists statement, not check-then-create.
func (t *Tracker) EnsureSchema(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, t.dialect.CreateTrackingTableQuery(t.table)); err != nil {
		return errf("create tracking table %s: %w", t.table, err)
	}

	return nil
}

// Applied returns all recorded rows keyed by version.
func (t *Tracker) Applied(ctx context.Context) (map[int64]AppliedMigration, error) {
	rows, err := t.db.QueryContext(ctx, t.dialect.SelectAppliedQuery(t.table))
	if err != nil {
		return nil, errf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int64]AppliedMigration)

	for rows.Next() {
		var m AppliedMigration
		if err := rows.Scan(&m.Version, &m.Name, &m.AppliedAt); err != nil {
			return nil, errf("scan applied migration: %w", err)
		}

		applied[m.Version] = m
	}

	if err := rows.Err(); err != nil {
		return nil, errf("iterate applied migrations: %w", err)
	}

	return applied, nil
}

// Record inserts one applied row through exec, typically the transaction
// the unit itself ran in, so apply and record commit or roll back together.
//
// It returns [ErrDuplicateVersion] if the version is already recorded. The
// probe runs inside the same transaction; the table's UNIQUE constraint is
// the backstop for writers racing on separate connections.
func (t *Tracker) Record(ctx context.Context, exec Executor, m Migration, at time.Time) error {
	var one int

	err := exec.QueryRowContext(ctx, t.dialect.ExistsQuery(t.table), m.Version()).Scan(&one)
	switch {
	case err == nil:
		return errf("version %d: %w", m.Version(), ErrDuplicateVersion)
	case !errors.Is(err, sql.ErrNoRows):
		return errf("probe version %d: %w", m.Version(), err)
	}

	if _, err := exec.ExecContext(ctx, t.dialect.InsertAppliedQuery(t.table), m.Version(), m.Name(), at.UTC()); err != nil {
		return errf("record version %d: %w", m.Version(), err)
	}

	return nil
}
