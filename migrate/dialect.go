package migrate

import (
	"fmt"
	"regexp"
)

// Dialect provides the SQL needed to manage the tracking table for a
// particular database. All queries receive the (validated) table name.
type Dialect interface {
	// CreateTrackingTableQuery returns DDL that creates the tracking table
	// if it does not exist. Creation must be a single create-if-not-exists
	// statement, safe against concurrent callers.
	CreateTrackingTableQuery(table string) string

	// SelectAppliedQuery returns the query selecting all applied rows,
	// with columns ordered version, name, applied_at.
	SelectAppliedQuery(table string) string

	// ExistsQuery returns a query selecting a single row when the version
	// given as its only parameter is already recorded.
	ExistsQuery(table string) string

	// InsertAppliedQuery returns the insert for one applied row, with
	// positional parameters in the order (version, name, applied_at).
	InsertAppliedQuery(table string) string
}

// SQLiteDialect provides the tracking-table queries for SQLite.
type SQLiteDialect struct{}

var _ Dialect = SQLiteDialect{}

func (SQLiteDialect) CreateTrackingTableQuery(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE
			IF NOT EXISTS %s (
				version INTEGER NOT NULL UNIQUE,
				name TEXT NOT NULL,
				applied_at TIMESTAMP NOT NULL
			);
		`, table)
}

func (SQLiteDialect) SelectAppliedQuery(table string) string {
	return fmt.Sprintf(`SELECT version, name, applied_at FROM %s;`, table)
}

func (SQLiteDialect) ExistsQuery(table string) string {
	return fmt.Sprintf(`SELECT 1 FROM %s WHERE version = ?;`, table)
}

func (SQLiteDialect) InsertAppliedQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (version, name, applied_at) VALUES (?, ?, ?);`, table)
}

// PostgreSQLDialect provides the tracking-table queries for PostgreSQL.
type PostgreSQLDialect struct{}

var _ Dialect = PostgreSQLDialect{}

func (PostgreSQLDialect) CreateTrackingTableQuery(table string) string {
	return fmt.Sprintf(`
		CREATE TABLE
			IF NOT EXISTS %s (
				version BIGINT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				applied_at TIMESTAMPTZ NOT NULL
			);
		`, table)
}

func (PostgreSQLDialect) SelectAppliedQuery(table string) string {
	return fmt.Sprintf(`SELECT version, name, applied_at FROM %s;`, table)
}

func (PostgreSQLDialect) ExistsQuery(table string) string {
	return fmt.Sprintf(`SELECT 1 FROM %s WHERE version = $1;`, table)
}

func (PostgreSQLDialect) InsertAppliedQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (version, name, applied_at) VALUES ($1, $2, $3);`, table)
}

var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validTableName reports whether table is a plain identifier. Table names
// are interpolated into the dialect queries, so anything else is rejected.
func validTableName(table string) bool {
	return tableNameRegexp.MatchString(table)
}
