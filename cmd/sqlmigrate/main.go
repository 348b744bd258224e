package main

import (
	"os"

	"github.com/dnordberg/sqlmigrate/cli"
	"github.com/dnordberg/sqlmigrate/clierror"
	"github.com/dnordberg/sqlmigrate/genericclioptions"

	// Package sqlite is a CGo-free port of SQLite/SQLite3.
	_ "modernc.org/sqlite"
)

func main() {
	cmd := cli.NewDefaultSqlmigrateCommand(genericclioptions.NewDefaultIOStreams(), os.Args[1:])
	if err := cmd.Execute(); err != nil {
		os.Exit(clierror.DefaultErrorExitCode)
	}
}
