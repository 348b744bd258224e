package genericclioptions

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// FdReader is an input stream that also exposes its file descriptor, so
// commands can read secrets off the terminal.
type FdReader interface {
	Fd() uintptr

	io.Reader
}

type IOStreams struct {
	In     FdReader
	Out    io.Writer
	ErrOut io.Writer

	Verbose bool
}

// NewDefaultIOStreams returns the default IOStreams (using os.Stdin, os.Stdout, os.Stderr).
func NewDefaultIOStreams() *IOStreams {
	return &IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

// NewTestIOStreams returns IOStreams backed by in-memory buffers for unit
// tests, along with the out and error buffers for inspection.
//
//nolint:revive
func NewTestIOStreams() (iostreams *IOStreams, out, errOut *bytes.Buffer) {
	out, errOut = &bytes.Buffer{}, &bytes.Buffer{}

	iostreams = &IOStreams{
		In:     NewTestFdReader(bytes.NewBuffer(nil), 0),
		Out:    out,
		ErrOut: errOut,
	}

	return
}

// Printf writes a general, unprefixed formatted message to the standard output stream.
func (s IOStreams) Printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

// Debugf writes formatted debug output to the error stream
// if Verbose is enabled.
func (s IOStreams) Debugf(format string, args ...any) {
	if s.Verbose {
		fmt.Fprintf(s.ErrOut, "DEBUG "+format, args...)
	}
}

// Infof writes a formatted message to the standard output stream.
func (s IOStreams) Infof(format string, args ...any) {
	fmt.Fprintf(s.Out, "INFO "+format, args...)
}

// Errorf writes a formatted message to the error stream.
func (s IOStreams) Errorf(format string, args ...any) {
	fmt.Fprintf(s.ErrOut, "WARN "+format, args...)
}
