package migrate

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Runner applies pending migration units in ascending version order, one
// transaction per unit.
type Runner struct {
	db      *sql.DB
	tracker *Tracker
	upTo    int64
	logf    func(format string, args ...any)
}

type Opt func(*Runner)

// NewRunner creates a runner over the given connection and tracker. Both
// must share the same underlying database.
func NewRunner(db *sql.DB, tracker *Tracker, opts ...Opt) *Runner {
	r := &Runner{
		db:      db,
		tracker: tracker,
		logf:    func(string, ...any) {},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// WithUpTo stops the run after the given version; later pending units are
// left unapplied. Zero means no limit.
func WithUpTo(version int64) Opt {
	return func(r *Runner) {
		r.upTo = version
	}
}

// WithLogf sets a progress function called once per applied unit.
func WithLogf(fn func(format string, args ...any)) Opt {
	return func(r *Runner) {
		if fn != nil {
			r.logf = fn
		}
	}
}

// Run ensures the tracking table exists, computes the pending plan, and
// applies each pending unit inside its own transaction, recording it
// through the tracker within that same transaction.
//
// On the first failure the unit's transaction is rolled back and the run
// stops with a [*MigrationFailedError] naming the failing version; units
// committed earlier in the run remain applied. Re-running with an unchanged
// applied set applies nothing and returns (0, nil).
//
// It returns the number of units applied.
func (r *Runner) Run(ctx context.Context, migrations []Migration) (int, error) {
	if err := r.tracker.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	applied, err := r.tracker.Applied(ctx)
	if err != nil {
		return 0, err
	}

	n := 0

	for _, m := range Plan(migrations, applied) {
		if r.upTo > 0 && m.Version() > r.upTo {
			break
		}

		if err := r.apply(ctx, m); err != nil {
			return n, err
		}

		r.logf("applied %d (%s)", m.Version(), m.Name())
		n++
	}

	return n, nil
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return &MigrationFailedError{Version: m.Version(), Name: m.Name(), Err: errf("begin transaction: %w", err)}
	}

	err = m.Apply(ctx, tx)
	if err == nil {
		err = r.tracker.Record(ctx, tx, m, time.Now())
	}

	if err = commit(tx, err); err != nil {
		return &MigrationFailedError{Version: m.Version(), Name: m.Name(), Err: err}
	}

	return nil
}

// commit commits tx when err is nil, otherwise rolls back and returns the
// original error, joined with the rollback error if that fails too.
func commit(tx *sql.Tx, err error) error {
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, errf("rollback: %w", rbErr))
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return errf("commit: %w", err)
	}

	return nil
}

// Plan returns the units whose versions are not in the applied set, sorted
// ascending by version. It never trusts the input order.
func Plan(migrations []Migration, applied map[int64]AppliedMigration) []Migration {
	pending := make([]Migration, 0, len(migrations))

	for _, m := range migrations {
		if _, ok := applied[m.Version()]; !ok {
			pending = append(pending, m)
		}
	}

	sortMigrations(pending)

	return pending
}
