package cli

import (
	"errors"

	"github.com/dnordberg/sqlmigrate/clierror"

	"github.com/spf13/cobra"
)

// Version is the build version, overridable via -ldflags.
var Version = "dev"

func newVersionCommand(defaults *DefaultSqlmigrateOptions) *cobra.Command {
	cmd := cobra.Command{
		Use:                "version",
		Short:              "Show version",
		DisableFlagParsing: true,
		RunE: func(_ *cobra.Command, args []string) error {
			return clierror.Check(func() error {
				if len(args) > 0 {
					return errors.New("version: command takes no arguments")
				}

				defaults.Printf("%s\n", Version)

				return nil
			}())
		},
	}

	return &cmd
}
