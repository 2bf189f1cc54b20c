package vos

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// VIO holds the standard streams of a process.
type VIO interface {
	Stdin() io.ReadCloser
	Stdout() io.WriteCloser
	Stderr() io.WriteCloser
}

// ReadUnwrapper is implemented by readers that decorate another reader, like
// session recorders. Child processes are handed the innermost reader so they
// can inherit the terminal directly.
type ReadUnwrapper interface {
	Unwrap() io.ReadCloser
}

// UnwrapReader strips all decorators from r.
func UnwrapReader(r io.ReadCloser) io.ReadCloser {
	for {
		u, ok := r.(ReadUnwrapper)
		if !ok {
			return r
		}
		r = u.Unwrap()
	}
}

// IsTerminal reports whether the stream is backed by a terminal.
func IsTerminal(stream interface{}) bool {
	if rc, ok := stream.(io.ReadCloser); ok {
		stream = UnwrapReader(rc)
	}
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NewVIOAdapter creates a VIO from plain readers and writers, nil streams are
// replaced with ones that read nothing and discard writes.
func NewVIOAdapter(stdin io.Reader, stdout, stderr io.Writer) *VIOAdapter {
	return &VIOAdapter{
		IStdin:  toReadCloserOrEmpty(stdin),
		IStdout: toWriteCloserOrDiscard(stdout),
		IStderr: toWriteCloserOrDiscard(stderr),
	}
}

// NewHostIO returns the standard streams of the running process.
func NewHostIO() *VIOAdapter {
	return &VIOAdapter{
		IStdin:  os.Stdin,
		IStdout: os.Stdout,
		IStderr: os.Stderr,
	}
}

type VIOAdapter struct {
	IStdin  io.ReadCloser
	IStdout io.WriteCloser
	IStderr io.WriteCloser
}

var _ VIO = (*VIOAdapter)(nil)

func (pr *VIOAdapter) Stdin() io.ReadCloser {
	return pr.IStdin
}

func (pr *VIOAdapter) Stdout() io.WriteCloser {
	return pr.IStdout
}

func (pr *VIOAdapter) Stderr() io.WriteCloser {
	return pr.IStderr
}

func toWriteCloserOrDiscard(w io.Writer) io.WriteCloser {
	if w == nil {
		return &NopWriteCloser{}
	}
	if wc, ok := w.(io.WriteCloser); ok {
		return wc
	}

	return nopWriteCloser{w}
}

// Child processes treat a failed read as a failed copy, so a missing stdin
// must look like an empty stream rather than a closed one.
func toReadCloserOrEmpty(r io.Reader) io.ReadCloser {
	if r == nil {
		return &emptyReader{}
	}
	if rc, ok := r.(io.ReadCloser); ok {
		return rc
	}

	return io.NopCloser(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NopWriteCloser discards all writes.
type NopWriteCloser struct{}

var _ io.WriteCloser = (*NopWriteCloser)(nil)

func (*NopWriteCloser) Write(b []byte) (int, error) {
	return len(b), nil
}

func (*NopWriteCloser) Close() error {
	return nil
}

type emptyReader struct{}

func (*emptyReader) Read([]byte) (int, error) {
	return 0, io.EOF
}

func (*emptyReader) Close() error {
	return nil
}
