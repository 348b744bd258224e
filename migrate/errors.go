package migrate

import (
	"errors"
	"fmt"
)

// ErrDuplicateVersion is returned by [Tracker.Record] when the version being
// recorded already exists in the tracking table. It usually means two
// invocations raced against the same database.
var ErrDuplicateVersion = errors.New("migration version already recorded")

// DiscoveryError reports a problem found while loading migration units,
// before any database access: an unreadable source, a .sql filename without
// a parsable numeric prefix, or two units sharing a version.
type DiscoveryError struct {
	Source string // the directory, fs path or source description
	Err    error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover migrations %s: %v", e.Source, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// MigrationFailedError wraps any failure raised while applying a unit or
// recording it. Units committed before the failing one remain applied.
type MigrationFailedError struct {
	Version int64
	Name    string
	Err     error
}

func (e *MigrationFailedError) Error() string {
	return fmt.Sprintf("migration %d (%s): %v", e.Version, e.Name, e.Err)
}

func (e *MigrationFailedError) Unwrap() error { return e.Err }

func errf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}
