// Package input provides terminal input helpers for reading secrets.
package input

import (
	"fmt"
	"io"

	"golang.org/x/term"
)

// readPasswordFunc is used to read passwords securely.
var readPasswordFunc = term.ReadPassword

// SetDefaultReadPassword overrides readPasswordFunc for testing.
func SetDefaultReadPassword(f func(fd int) ([]byte, error)) {
	readPasswordFunc = f
}

// PromptReadSecure prompts the user via w for input and securely reads it
// from the given file descriptor.
func PromptReadSecure(w io.Writer, fd int, prompt string, a ...any) ([]byte, error) {
	fmt.Fprintf(w, prompt, a...)
	defer fmt.Fprintln(w)

	bs, err := readPasswordFunc(fd)
	if err != nil {
		return nil, fmt.Errorf("term read password: %w", err)
	}

	return bs, nil
}

// PromptPassword prompts the user to enter the database password securely.
// The prompt is displayed via the writer w, and input is read from the
// given file descriptor fd.
func PromptPassword(w io.Writer, fd int) ([]byte, error) {
	return PromptReadSecure(w, fd, "Enter database password: ")
}
