package migrate

import (
	"context"
	"database/sql"
)

// Migration is one discrete, independently versioned schema or data change.
//
// The interface is closed over two variants: [StatementBatch] for literal
// SQL scripts and [Callable] for programmatic changes that need an active
// transaction handle.
type Migration interface {
	// Version is the unit's ordering key. Versions must be unique across
	// all units loaded in one run.
	Version() int64

	// Name is a human readable description, typically derived from the
	// filename.
	Name() string

	// Apply executes the change inside the given transaction. The runner
	// commits or rolls the transaction back; Apply must not.
	Apply(ctx context.Context, tx *sql.Tx) error
}

// StatementBatch is a migration unit holding literal SQL text, applied
// verbatim in a single Exec call.
type StatementBatch struct {
	version int64
	name    string
	script  string
}

var _ Migration = StatementBatch{}

func NewStatementBatch(version int64, name, script string) StatementBatch {
	return StatementBatch{version: version, name: name, script: script}
}

func (m StatementBatch) Version() int64 { return m.version }

func (m StatementBatch) Name() string { return m.name }

// Script returns the raw SQL text of the batch.
func (m StatementBatch) Script() string { return m.script }

func (m StatementBatch) Apply(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, m.script); err != nil {
		return errf("exec statement batch: %w", err)
	}

	return nil
}

// CallableFunc is the signature of a programmatic migration.
type CallableFunc func(ctx context.Context, tx *sql.Tx) error

// Callable is a migration unit backed by a Go function. It covers changes
// that cannot be expressed as plain SQL, such as data transformations
// computed in code.
type Callable struct {
	version int64
	name    string
	fn      CallableFunc
}

var _ Migration = Callable{}

func NewCallable(version int64, name string, fn CallableFunc) Callable {
	return Callable{version: version, name: name, fn: fn}
}

func (m Callable) Version() int64 { return m.version }

func (m Callable) Name() string { return m.name }

func (m Callable) Apply(ctx context.Context, tx *sql.Tx) error {
	if m.fn == nil {
		return errf("callable migration %d (%s) has no function", m.version, m.name)
	}

	return m.fn(ctx, tx)
}
