// Package migrate implements a sequential schema migration runner.
//
// Migration units are discovered from one or more sources (a directory of
// versioned .sql files, any [io/fs.FS], or registered Go functions), ordered
// by their numeric version, and applied one transaction per unit. Applied
// versions are tracked in a table inside the target database, so re-running
// against an up-to-date database is a no-op.
//
// It works with any database that has a [database/sql] driver and a
// registered [Dialect]. SQLite and PostgreSQL are supported out of the box.
package migrate
