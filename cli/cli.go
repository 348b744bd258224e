package cli

import (
	"context"
	"strings"

	"github.com/dnordberg/sqlmigrate/clierror"
	"github.com/dnordberg/sqlmigrate/genericclioptions"
	"github.com/dnordberg/sqlmigrate/input"
	"github.com/dnordberg/sqlmigrate/migrate"

	"github.com/spf13/cobra"
)

const (
	// defaultMigrationsDir is the migrations directory used when neither
	// the --dir flag nor the config file sets one.
	defaultMigrationsDir = "migrations"

	// defaultDriver is the database driver used when none is configured.
	defaultDriver = "sqlite"

	// passwordPlaceholder is replaced in the DSN by the password read off
	// the terminal when prompting is enabled.
	passwordPlaceholder = "{password}"
)

// DatabaseOptions carries the resolved connection and discovery settings
// shared by the database-touching subcommands.
type DatabaseOptions struct {
	Driver         string
	DSN            string
	Table          string
	Dir            string
	PromptPassword bool
}

var _ genericclioptions.BaseOptions = &DatabaseOptions{}

// Complete applies the built-in defaults for anything left unset by flags
// and config.
func (o *DatabaseOptions) Complete() error {
	if o.Driver == "" {
		o.Driver = defaultDriver
	}

	if o.Table == "" {
		o.Table = migrate.DefaultTable
	}

	if o.Dir == "" {
		o.Dir = defaultMigrationsDir
	}

	return nil
}

func (o *DatabaseOptions) Validate() error {
	if _, err := migrate.DialectFor(o.Driver); err != nil {
		return err
	}

	return nil
}

// validateConnectable is the extra validation for subcommands that open a
// database connection.
func (o *DatabaseOptions) validateConnectable() error {
	if o.DSN == "" {
		return errf("database DSN is required (set --dsn or [database].dsn in the config file)")
	}

	return nil
}

// resolveDSN returns the DSN to connect with, substituting the password
// placeholder with a secret read off the terminal when prompting is
// enabled.
func (o *DatabaseOptions) resolveDSN(stdio *genericclioptions.IOStreams) (string, error) {
	if !o.PromptPassword {
		return o.DSN, nil
	}

	password, err := input.PromptPassword(stdio.ErrOut, int(stdio.In.Fd()))
	if err != nil {
		return "", err
	}

	return strings.ReplaceAll(o.DSN, passwordPlaceholder, string(password)), nil
}

type DefaultSqlmigrateOptions struct {
	*genericclioptions.IOStreams

	configOptions   *ConfigOptions
	databaseOptions *DatabaseOptions

	// goMigrations holds programmatic units registered by an embedding
	// binary, merged with the .sql directory at load time.
	goMigrations migrate.GoMigrations
}

var _ genericclioptions.CmdOptions = &DefaultSqlmigrateOptions{}

func NewDefaultSqlmigrateOptions(iostreams *genericclioptions.IOStreams) *DefaultSqlmigrateOptions {
	return &DefaultSqlmigrateOptions{
		IOStreams:       iostreams,
		configOptions:   &ConfigOptions{IOStreams: iostreams},
		databaseOptions: &DatabaseOptions{},
	}
}

func (o *DefaultSqlmigrateOptions) Complete() error {
	clierror.DebugMode(o.Verbose)

	return o.configOptions.Complete()
}

func (o *DefaultSqlmigrateOptions) Validate() error {
	return o.configOptions.Validate()
}

// Run resolves the effective database options: explicit flags win, then the
// config file, then built-in defaults.
func (o *DefaultSqlmigrateOptions) Run(_ context.Context, _ ...string) error {
	config := o.configOptions.Config

	if o.databaseOptions.Driver == "" {
		o.databaseOptions.Driver = config.Database.Driver
	}

	if o.databaseOptions.DSN == "" {
		o.databaseOptions.DSN = config.Database.DSN
	}

	if o.databaseOptions.Table == "" {
		o.databaseOptions.Table = config.Migrations.Table
	}

	if o.databaseOptions.Dir == "" {
		o.databaseOptions.Dir = config.Migrations.Dir
	}

	if !o.databaseOptions.PromptPassword {
		o.databaseOptions.PromptPassword = config.Database.PromptPassword
	}

	if err := o.databaseOptions.Complete(); err != nil {
		return err
	}

	return o.databaseOptions.Validate()
}

// sources returns the migration sources for the resolved settings: the
// .sql directory plus any registered Go migrations.
func (o *DefaultSqlmigrateOptions) sources() []migrate.Source {
	sources := []migrate.Source{migrate.DirSource{Path: o.databaseOptions.Dir}}
	if len(o.goMigrations) > 0 {
		sources = append(sources, o.goMigrations)
	}

	return sources
}

type Opt func(*DefaultSqlmigrateOptions)

// WithGoMigrations registers programmatic migration units with the command
// tree. Intended for binaries that embed sqlmigrate and need changes that
// cannot be expressed as plain SQL.
func WithGoMigrations(migrations migrate.GoMigrations) Opt {
	return func(o *DefaultSqlmigrateOptions) {
		o.goMigrations = append(o.goMigrations, migrations...)
	}
}

// NewDefaultSqlmigrateCommand creates the `sqlmigrate` command with its
// sub-commands.
func NewDefaultSqlmigrateCommand(iostreams *genericclioptions.IOStreams, args []string, opts ...Opt) *cobra.Command {
	o := NewDefaultSqlmigrateOptions(iostreams)

	for _, opt := range opts {
		opt(o)
	}

	cmd := &cobra.Command{
		Use:   "sqlmigrate",
		Short: "Very simple manual sql or go migrations",
		Long: `sqlmigrate is a command-line tool for applying versioned database migrations.

Migrations are .sql files named "NNN_description.sql" in the migrations
directory, applied in ascending order, one transaction per file. Applied
versions are recorded in a tracking table inside the target database.

Environment Variables:
    SQLMIGRATE_CONFIG_PATH: overrides the default config path: "./.sqlmigrate.toml".`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if cmd.Name() == "version" {
				return
			}

			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.SetArgs(args)

	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().StringVarP(&o.databaseOptions.Dir, "dir", "d", "",
		"migrations directory (default: ./"+defaultMigrationsDir+")")
	cmd.PersistentFlags().StringVar(&o.databaseOptions.Driver, "driver", "",
		"database driver name (default: "+defaultDriver+")")
	cmd.PersistentFlags().StringVar(&o.databaseOptions.DSN, "dsn", "", "database connection string")
	cmd.PersistentFlags().StringVar(&o.databaseOptions.Table, "table", "",
		"tracking table name (default: "+migrate.DefaultTable+")")
	cmd.PersistentFlags().StringVar(&o.configOptions.userPath, "config", "",
		"configuration file path (default: ./"+defaultConfigName+")")

	cmd.AddCommand(NewCmdUp(o))
	cmd.AddCommand(NewCmdStatus(o))
	cmd.AddCommand(NewCmdNew(o))
	cmd.AddCommand(NewCmdConfig(o))
	cmd.AddCommand(newVersionCommand(o))

	return cmd
}
