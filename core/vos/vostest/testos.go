// Package vostest provides an in-memory VOS for tests.
package vostest

import (
	"bytes"
	"path"
	"strings"
	"sync"

	"github.com/josephlewis42/cshell/core/vos"
)

// TestOS is a VOS with an in-memory environment, captured output and a
// working directory that is tracked rather than applied to the process.
type TestOS struct {
	*vos.MapEnv
	*vos.VIOAdapter

	Out *Buffer
	Err *Buffer

	// Wd is the current working directory.
	Wd string
	// ChdirCalls holds every path passed to Chdir, in order.
	ChdirCalls []string
	// GetwdErr is returned from Getwd if set.
	GetwdErr error
	// ChdirErr is returned from Chdir if set, the directory isn't changed.
	ChdirErr error
}

var _ vos.VOS = (*TestOS)(nil)

// New creates a TestOS rooted at wd with the given environment and input.
func New(wd string, environ []string, stdin string) *TestOS {
	out, errOut := &Buffer{}, &Buffer{}
	return &TestOS{
		MapEnv:     vos.NewMapEnvFromEnvList(environ),
		VIOAdapter: vos.NewVIOAdapter(strings.NewReader(stdin), out, errOut),
		Out:        out,
		Err:        errOut,
		Wd:         wd,
	}
}

// Getwd implements vos.VDir.Getwd.
func (t *TestOS) Getwd() (string, error) {
	if t.GetwdErr != nil {
		return "", t.GetwdErr
	}
	return t.Wd, nil
}

// Chdir implements vos.VDir.Chdir. Relative paths are resolved against Wd.
func (t *TestOS) Chdir(dir string) error {
	t.ChdirCalls = append(t.ChdirCalls, dir)
	if t.ChdirErr != nil {
		return t.ChdirErr
	}
	if !path.IsAbs(dir) {
		dir = path.Join(t.Wd, dir)
	}
	t.Wd = dir
	return nil
}

// Buffer is a bytes.Buffer that can be written to by concurrent children.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}
