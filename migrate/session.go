package migrate

import (
	"context"
	"database/sql"
	"errors"
)

// Session owns the single database connection used for one invocation. The
// tracker and runner borrow the handle for the run's duration; Close
// releases it on all exit paths.
type Session struct {
	DB      *sql.DB
	Dialect Dialect
}

// OpenSession connects to the configured database, picks the dialect for
// the driver, and verifies the connection with a ping. The caller must
// Close the session when the run completes or fails.
func OpenSession(ctx context.Context, driver, dsn string) (*Session, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errf("open %s database: %w", driver, err)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, errors.Join(errf("ping %s database: %w", driver, err), db.Close())
	}

	return &Session{DB: db, Dialect: dialect}, nil
}

func (s *Session) Close() error {
	return s.DB.Close()
}

// Tracker returns a tracker over the session's connection, using the given
// tracking table name or [DefaultTable] when empty.
func (s *Session) Tracker(table string) (*Tracker, error) {
	return NewTracker(s.DB, s.Dialect, table)
}

// DialectFor maps a database/sql driver name to its [Dialect].
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLiteDialect{}, nil
	case "postgres", "pgx":
		return PostgreSQLDialect{}, nil
	default:
		return nil, errf("unsupported database driver %q", driver)
	}
}
