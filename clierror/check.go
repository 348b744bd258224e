package clierror

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dnordberg/sqlmigrate/migrate"
)

const (
	DefaultErrorExitCode = 1
)

var (
	// errHandler is the function used to handle cli errors.
	errHandler = FatalErrHandler

	// errWriter is used to output cli error messages.
	errWriter io.Writer = os.Stderr

	// debugMode enables always printing raw error values.
	debugMode bool
)

// SetErrorHandler overrides the default [FatalErrHandler] error handler.
func SetErrorHandler(f func(string, int)) {
	errHandler = f
}

// ResetErrorHandler restores the default error handler.
func ResetErrorHandler() {
	errHandler = FatalErrHandler
}

// SetErrWriter overrides the default error output writer [os.Stderr].
func SetErrWriter(w io.Writer) {
	errWriter = w
}

// ResetErrWriter restores the default error output writer to [os.Stderr].
func ResetErrWriter() {
	errWriter = os.Stderr
}

// DebugMode sets whether debug logging is enabled.
//
// When enabled, raw error values are printed to stderr.
func DebugMode(enabled bool) {
	debugMode = enabled
}

// FatalErrHandler prints the message provided and then exits with the given code.
func FatalErrHandler(msg string, code int) {
	printError(msg)

	//nolint:revive // Intentional exit after fatal error.
	os.Exit(code)
}

func PrintErrHandler(msg string, _ int) {
	printError(msg)
}

func printError(msg string) {
	if len(msg) == 0 {
		return
	}

	// add newline if needed
	if !strings.HasSuffix(msg, "\n") {
		msg += "\n"
	}

	fmt.Fprint(errWriter, msg)
}

func debugPrint(err error) {
	if !debugMode {
		return
	}

	fmt.Fprintf(errWriter, "DEBUG %+v\n", err)
}

// Check prints a user-friendly error message and invokes the configured error handler.
//
// When the [FatalErrHandler] is used, the program will exit before this function returns.
func Check(err error) error {
	check(err, errHandler)
	return err
}

//nolint:revive
func check(err error, handleErr func(string, int)) {
	if err == nil {
		return
	}

	debugPrint(err)

	var (
		discoveryErr *migrate.DiscoveryError
		failedErr    *migrate.MigrationFailedError
	)

	switch {
	case errors.As(err, &failedErr) && errors.Is(err, migrate.ErrDuplicateVersion):
		handleErr(fmt.Sprintf("sqlmigrate: migration %d (%s) is already recorded\nAnother invocation may have raced this one; check the tracking table before re-running.",
			failedErr.Version, failedErr.Name), DefaultErrorExitCode)
	case errors.As(err, &failedErr):
		handleErr(fmt.Sprintf("sqlmigrate: %v\nThe failing migration was rolled back; earlier migrations remain applied. Fix it and re-run.",
			failedErr), DefaultErrorExitCode)
	case errors.As(err, &discoveryErr):
		handleErr("sqlmigrate: "+discoveryErr.Error()+"\nNo migrations were applied.", DefaultErrorExitCode)
	default:
		msg := err.Error()
		if !strings.HasPrefix(msg, "sqlmigrate: ") {
			msg = "sqlmigrate: " + msg
		}

		handleErr(msg, DefaultErrorExitCode)
	}
}
