package cli

import (
	"context"
	"time"

	"github.com/dnordberg/sqlmigrate/clierror"
	"github.com/dnordberg/sqlmigrate/genericclioptions"
	"github.com/dnordberg/sqlmigrate/migrate"

	"github.com/spf13/cobra"
)

type StatusOptions struct {
	*genericclioptions.IOStreams

	defaults *DefaultSqlmigrateOptions
}

var _ genericclioptions.CmdOptions = &StatusOptions{}

// NewStatusOptions initializes the options struct.
func NewStatusOptions(defaults *DefaultSqlmigrateOptions) *StatusOptions {
	return &StatusOptions{
		IOStreams: defaults.IOStreams,
		defaults:  defaults,
	}
}

func (*StatusOptions) Complete() error { return nil }

func (o *StatusOptions) Validate() error {
	return o.defaults.databaseOptions.validateConnectable()
}

func (o *StatusOptions) Run(ctx context.Context, _ ...string) error {
	db := o.defaults.databaseOptions

	units, err := migrate.Load(o.defaults.sources()...)
	if err != nil {
		return err
	}

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

	if err := tracker.EnsureSchema(ctx); err != nil {
		return err
	}

	applied, err := tracker.Applied(ctx)
	if err != nil {
		return err
	}

	o.printApplied(units, applied)
	o.printPending(migrate.Plan(units, applied))

	return nil
}

func (o *StatusOptions) printApplied(units []migrate.Migration, applied map[int64]migrate.AppliedMigration) {
	if len(applied) == 0 {
		o.Printf("No migrations applied yet.\n")
		return
	}

	o.Printf("Applied:\n")

	// walk the sorted units so output order matches version order;
	// rows recorded by other sources of truth are not listed.
	for _, m := range units {
		record, ok := applied[m.Version()]
		if !ok {
			continue
		}

		o.Printf("  %d\t%s\t%s\n", record.Version, record.Name, record.AppliedAt.Format(time.RFC3339))
	}
}

func (o *StatusOptions) printPending(pending []migrate.Migration) {
	if len(pending) == 0 {
		o.Printf("No pending migrations.\n")
		return
	}

	o.Printf("Pending:\n")

	for _, m := range pending {
		o.Printf("  %d\t%s\n", m.Version(), m.Name())
	}
}

// NewCmdStatus creates the status cobra command.
func NewCmdStatus(defaults *DefaultSqlmigrateOptions) *cobra.Command {
	o := NewStatusOptions(defaults)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show applied and pending migrations",
		Long: `Show which migrations are recorded as applied in the tracking table
and which are still pending, without applying anything.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	return cmd
}
