package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dnordberg/sqlmigrate/clierror"
	"github.com/dnordberg/sqlmigrate/genericclioptions"
	"github.com/dnordberg/sqlmigrate/migrate"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

const (
	// defaultConfigName is the default name of the configuration file
	// expected in the working directory.
	defaultConfigName = ".sqlmigrate.toml"

	// envConfigPathKey is the environment variable key for overriding
	// the config file path.
	envConfigPathKey = "SQLMIGRATE_CONFIG_PATH"
)

func errf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

//nolint:tagalign
type DatabaseConfig struct {
	Driver         string `toml:"driver,commented"          comment:"Database driver name (default: 'sqlite' if not set)"`
	DSN            string `toml:"dsn,commented"             comment:"Database connection string; '{password}' is replaced when prompting is enabled"`
	PromptPassword bool   `toml:"prompt_password,commented" comment:"Prompt for the database password on the terminal"`
}

//nolint:tagalign
type MigrationsConfig struct {
	Dir   string `toml:"dir,commented"   comment:"Migrations directory (default: './migrations' if not set)"`
	Table string `toml:"table,commented" comment:"Tracking table name (default: 'schema_migrations' if not set)"`
}

//nolint:tagalign
type Config struct {
	Database   DatabaseConfig   `toml:"database"`
	Migrations MigrationsConfig `toml:"migrations"`

	path string // path is the resolved file path from which this config was loaded
}

func (c Config) String() string {
	return fmt.Sprintf(`Config{
  Database: {
    Driver: %q,
    DSN: %q,
    PromptPassword: %v
  },
  Migrations: {
    Dir: %q,
    Table: %q
  }
}`, c.Database.Driver, c.Database.DSN, c.Database.PromptPassword, c.Migrations.Dir, c.Migrations.Table)
}

func (c Config) Validate() error {
	if c.Database.Driver != "" {
		if _, err := migrate.DialectFor(c.Database.Driver); err != nil {
			return errf("config: %w", err)
		}
	}

	return nil
}

func defaultConfigPath() string {
	if p, ok := os.LookupEnv(envConfigPathKey); ok {
		return p
	}

	return defaultConfigName
}

// LoadConfig reads the configuration from the given file path.
// If no path is provided, it uses the default config path (./.sqlmigrate.toml).
//
// Returns an empty Config if no config file is found and no path was explicitly given.
func LoadConfig(userPath string) (Config, error) {
	path := userPath
	userProvided := len(userPath) > 0

	if !userProvided {
		path = defaultConfigPath()
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if !userProvided {
				return Config{}, nil
			}

			return Config{}, errf("config: no config file found at %q", path)
		}

		return Config{}, errf("config: stat file: %w", err)
	}

	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, err
	}

	config := Config{path: path}
	if err := toml.Unmarshal(raw, &config); err != nil {
		return Config{}, errf("config: parse file: %w", err)
	}

	return config, config.Validate()
}

type ConfigOptions struct {
	*genericclioptions.IOStreams

	Config
	userPath string // userPath is the config file path explicitly provided by the user, if any.
}

var _ genericclioptions.CmdOptions = &ConfigOptions{}

func (o *ConfigOptions) Complete() error {
	c, err := LoadConfig(o.userPath)
	if err != nil {
		return err
	}

	o.Config = c

	return nil
}

func (o *ConfigOptions) Validate() error {
	return o.Config.Validate()
}

func (*ConfigOptions) Run(context.Context, ...string) error {
	return nil
}

// NewCmdConfig creates the cobra config command.
func NewCmdConfig(defaults *DefaultSqlmigrateOptions) *cobra.Command {
	hiddenFlags := []string{"dsn", "driver", "table", "dir"}
	o := defaults.configOptions

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Resolve and inspect the active sqlmigrate configuration",
		Long: fmt.Sprintf(`Resolve and display the active sqlmigrate configuration.

If --config is not provided, the default config path (./%s) is used.`, defaultConfigName),
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.RejectDisallowedFlags(cmd, hiddenFlags...))
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))

			if len(o.path) == 0 {
				o.Infof("No config file found; using default values.\n")
				return
			}

			o.Infof("Resolved config at %q:\n\n%s\n", o.path, o.Config)
		},
	}

	genericclioptions.MarkFlagsHidden(cmd, hiddenFlags...)

	return cmd
}
