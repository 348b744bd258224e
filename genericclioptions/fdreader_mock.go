package genericclioptions

import (
	"bytes"
)

// TestFdReader is an in-memory FdReader for unit tests.
type TestFdReader struct {
	*bytes.Buffer

	fd uintptr
}

func NewTestFdReader(b *bytes.Buffer, fd uintptr) *TestFdReader {
	return &TestFdReader{
		Buffer: b,
		fd:     fd,
	}
}

var _ FdReader = &TestFdReader{}

func (r *TestFdReader) Fd() uintptr {
	return r.fd
}
