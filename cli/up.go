package cli

import (
	"context"

	"github.com/dnordberg/sqlmigrate/clierror"
	"github.com/dnordberg/sqlmigrate/genericclioptions"
	"github.com/dnordberg/sqlmigrate/migrate"

	"github.com/spf13/cobra"
)

type UpOptions struct {
	*genericclioptions.IOStreams

	defaults *DefaultSqlmigrateOptions

	to int64
}

var _ genericclioptions.CmdOptions = &UpOptions{}

// NewUpOptions initializes the options struct.
func NewUpOptions(defaults *DefaultSqlmigrateOptions) *UpOptions {
	return &UpOptions{
		IOStreams: defaults.IOStreams,
		defaults:  defaults,
	}
}

func (*UpOptions) Complete() error { return nil }

func (o *UpOptions) Validate() error {
	if o.to < 0 {
		return errf("--to must be a positive version, got %d", o.to)
	}

	return o.defaults.databaseOptions.validateConnectable()
}

func (o *UpOptions) Run(ctx context.Context, _ ...string) error {
	db := o.defaults.databaseOptions

	units, err := migrate.Load(o.defaults.sources()...)
	if err != nil {
		return err
	}

	o.Debugf("loaded %d migration units from %q\n", len(units), db.Dir)

	dsn, err := db.resolveDSN(o.IOStreams)
	if err != nil {
		return err
	}

	session, err := migrate.OpenSession(ctx, db.Driver, dsn)
	if err != nil {
		return err
	}
	defer session.Close() //nolint:errcheck

	tracker, err := session.Tracker(db.Table)
	if err != nil {
		return err
	}

	opts := []migrate.Opt{
		migrate.WithLogf(func(format string, args ...any) {
			o.Infof(format+"\n", args...)
		}),
	}
	if o.to > 0 {
		opts = append(opts, migrate.WithUpTo(o.to))
	}

	runner := migrate.NewRunner(session.DB, tracker, opts...)

	n, err := runner.Run(ctx, units)
	if err != nil {
		return err
	}

	if n == 0 {
		o.Infof("Nothing to apply; database is up to date.\n")
		return nil
	}

	o.Infof("Applied %d migration(s).\n", n)

	return nil
}

// NewCmdUp creates the up cobra command.
func NewCmdUp(defaults *DefaultSqlmigrateOptions) *cobra.Command {
	o := NewUpOptions(defaults)

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Long: `Apply all pending migrations in ascending version order.

Each migration runs in its own transaction and is recorded in the tracking
table before the transaction commits. The run stops at the first failure;
migrations committed earlier in the run remain applied.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().Int64Var(&o.to, "to", 0, "stop after the given version (0 applies everything)")
	cmd.Flags().BoolVar(&defaults.databaseOptions.PromptPassword, "prompt-password", false,
		"prompt for the database password and substitute it for '{password}' in the DSN")

	return cmd
}
