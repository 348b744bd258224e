package migrate

import (
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
)

// Source loads migration units from some backing store.
//
// Loading is pure discovery: a Source must not touch the target database.
type Source interface {
	Load() ([]Migration, error)
}

// DirSource loads .sql migration files from a directory on disk.
//
// Filenames follow the contract "NNN_description.sql": a numeric version
// prefix, an optional "_" or "-" separator, and a free-form description.
// Files without the .sql extension are ignored; .sql files without a
// parsable prefix are a [DiscoveryError]. Ordering is derived from the
// parsed prefix, never from directory enumeration order.
type DirSource struct {
	Path string
}

var _ Source = DirSource{}

func (s DirSource) Load() ([]Migration, error) {
	migrations, err := loadFS(os.DirFS(s.Path), ".")
	if err != nil {
		return nil, &DiscoveryError{Source: "in " + strconv.Quote(s.Path), Err: err}
	}

	return migrations, nil
}

// FSSource loads .sql migration files from a directory inside any [fs.FS],
// typically an [embed.FS] so migrations ship inside the binary.
//
// It follows the same filename contract as [DirSource] and does not recurse
// into subdirectories.
type FSSource struct {
	FS   fs.FS
	Path string
}

var _ Source = FSSource{}

func (s FSSource) Load() ([]Migration, error) {
	migrations, err := loadFS(s.FS, s.Path)
	if err != nil {
		return nil, &DiscoveryError{Source: "in fs path " + strconv.Quote(s.Path), Err: err}
	}

	return migrations, nil
}

// GoMigrations is a Source carrying programmatic migration units registered
// in code, with explicit versions.
type GoMigrations []Callable

var _ Source = GoMigrations{}

func (s GoMigrations) Load() ([]Migration, error) {
	migrations := make([]Migration, 0, len(s))
	for _, m := range s {
		migrations = append(migrations, m)
	}

	return migrations, nil
}

func loadFS(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []Migration

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}

		version, name, err := parseFilename(e.Name())
		if err != nil {
			return nil, err
		}

		script, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}

		migrations = append(migrations, NewStatementBatch(version, name, string(script)))
	}

	return migrations, nil
}

// parseFilename extracts the numeric version prefix and description from a
// migration filename like "012_add_users_index.sql".
func parseFilename(filename string) (version int64, name string, err error) {
	base := strings.TrimSuffix(filename, ".sql")

	i := 0
	for i < len(base) && base[i] >= '0' && base[i] <= '9' {
		i++
	}

	if i == 0 {
		return 0, "", errf("file %q: missing numeric version prefix", filename)
	}

	version, err = strconv.ParseInt(base[:i], 10, 64)
	if err != nil {
		return 0, "", errf("file %q: parse version prefix: %w", filename, err)
	}

	name = strings.TrimLeft(base[i:], "_-")
	if name == "" {
		name = base
	}

	return version, name, nil
}
