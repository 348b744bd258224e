package migrate

import (
	"sort"
)

// Load merges the units of all given sources, validates that versions are
// unique, and returns them sorted ascending by version.
//
// A duplicate version anywhere across the sources is a [*DiscoveryError];
// nothing is applied and no database is touched.
func Load(sources ...Source) ([]Migration, error) {
	var all []Migration

	for _, src := range sources {
		migrations, err := src.Load()
		if err != nil {
			return nil, err
		}

		all = append(all, migrations...)
	}

	seen := make(map[int64]string, len(all))

	for _, m := range all {
		if prev, ok := seen[m.Version()]; ok {
			return nil, &DiscoveryError{
				Source: "across sources",
				Err:    errf("duplicate version %d: %q and %q", m.Version(), prev, m.Name()),
			}
		}

		seen[m.Version()] = m.Name()
	}

	sortMigrations(all)

	return all, nil
}

func sortMigrations(migrations []Migration) {
	sort.SliceStable(migrations, func(i, j int) bool {
		return migrations[i].Version() < migrations[j].Version()
	})
}
