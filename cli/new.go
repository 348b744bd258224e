package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dnordberg/sqlmigrate/clierror"
	"github.com/dnordberg/sqlmigrate/genericclioptions"
	"github.com/dnordberg/sqlmigrate/migrate"

	"github.com/spf13/cobra"
)

const newFileTemplate = `-- %s
-- Forward migration only; it is applied in a single transaction.
`

type NewOptions struct {
	*genericclioptions.IOStreams

	defaults *DefaultSqlmigrateOptions
}

var _ genericclioptions.CmdOptions = &NewOptions{}

// NewNewOptions initializes the options struct.
func NewNewOptions(defaults *DefaultSqlmigrateOptions) *NewOptions {
	return &NewOptions{
		IOStreams: defaults.IOStreams,
		defaults:  defaults,
	}
}

func (*NewOptions) Complete() error { return nil }

func (*NewOptions) Validate() error { return nil }

func (o *NewOptions) Run(_ context.Context, args ...string) error {
	if len(args) == 0 {
		return errors.New("new: a migration description is required")
	}

	dir := o.defaults.databaseOptions.Dir

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errf("create migrations directory: %w", err)
	}

	next, err := nextVersion(dir)
	if err != nil {
		return err
	}

	name := sanitizeName(strings.Join(args, "_"))
	filename := fmt.Sprintf("%03d_%s.sql", next, name)
	path := filepath.Join(dir, filename)

	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return errf("migration file %q already exists", path)
	}

	content := fmt.Sprintf(newFileTemplate, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errf("write migration file: %w", err)
	}

	o.Infof("Created %s\n", path)

	return nil
}

// nextVersion returns one past the highest version currently in dir.
func nextVersion(dir string) (int64, error) {
	units, err := migrate.Load(migrate.DirSource{Path: dir})
	if err != nil {
		return 0, err
	}

	var highest int64
	for _, m := range units {
		if m.Version() > highest {
			highest = m.Version()
		}
	}

	return highest + 1, nil
}

// sanitizeName lowercases the description and replaces anything that is not
// a letter, digit or underscore, keeping filenames portable.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ', r == '-', r == '.':
			return '_'
		default:
			return -1
		}
	}, s)
}

// NewCmdNew creates the new cobra command.
func NewCmdNew(defaults *DefaultSqlmigrateOptions) *cobra.Command {
	o := NewNewOptions(defaults)

	cmd := &cobra.Command{
		Use:   "new DESCRIPTION",
		Short: "Scaffold the next migration file",
		Long: `Create an empty migration file in the migrations directory, named with
the next free version and the given description, e.g. "004_add_users_index.sql".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}

	return cmd
}
