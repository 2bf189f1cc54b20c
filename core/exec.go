package core

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/josephlewis42/cshell/core/shell"
	"github.com/josephlewis42/cshell/core/vos"
)

var (
	// ErrNotFound is the error resulting if a path search failed to find an
	// executable file.
	ErrNotFound = exec.ErrNotFound
	// ErrSpawn is returned when the system can't create more processes.
	ErrSpawn = errors.New("could not spawn process")
	// ErrPipe is returned when a pipe couldn't be created.
	ErrPipe = errors.New("could not create pipe")
)

func resolve(wd, name string) string {
	if filepath.IsAbs(name) || wd == "" {
		return name
	}
	return filepath.Join(wd, name)
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the directories named by
// the PATH variable of the virtual OS. If file contains a slash, it is tried
// directly relative to the working directory and the PATH is not consulted.
func LookPath(virtualOS vos.VOS, file string) (string, error) {
	wd, _ := virtualOS.Getwd()
	if strings.Contains(file, "/") {
		path := resolve(wd, file)
		if err := findExecutable(path); err != nil {
			return "", err
		}
		return path, nil
	}
	for _, dir := range filepath.SplitList(virtualOS.Getenv("PATH")) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := resolve(wd, filepath.Join(dir, file))
		if err := findExecutable(path); err == nil {
			return path, nil
		}
	}
	return "", ErrNotFound
}

// PipelineContext holds the pipe between a pipe stage and the command that
// consumes it. It lives for a single line.
type PipelineContext struct {
	read  *os.File
	write *os.File
	// pending is set when the next command reads from the pipe.
	pending  bool
	producer *job

	// OnReap is called with the producer's exit status once it's reaped.
	OnReap func(argv []string, status int)
}

// Pending reports whether the next command should read from the pipe.
func (p *PipelineContext) Pending() bool {
	return p.pending
}

func (p *PipelineContext) open() error {
	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPipe, err)
	}
	p.read, p.write = r, w
	return nil
}

// Reset closes both ends of the pipe and reaps the producer. It's safe to
// call more than once.
func (p *PipelineContext) Reset() {
	if p.write != nil {
		p.write.Close()
		p.write = nil
	}
	if p.read != nil {
		p.read.Close()
		p.read = nil
	}
	p.pending = false

	if p.producer != nil {
		producer := p.producer
		p.producer = nil
		status := producer.wait()
		if p.OnReap != nil {
			p.OnReap(producer.argv, status)
		}
	}
}

// job is a started child process.
type job struct {
	cmd     *exec.Cmd
	argv    []string
	closers []io.Closer
}

func (j *job) wait() int {
	err := j.cmd.Wait()
	for _, c := range j.closers {
		c.Close()
	}
	return exitStatus(err)
}

// exitStatus converts the result of Wait into a shell status code.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

// command builds the process for frame. ok is false if the command couldn't
// be found, in which case a message has already been printed.
func (s *Shell) command(frame *shell.CommandFrame) (cmd *exec.Cmd, ok bool) {
	argv := frame.Argv()
	path, err := LookPath(s.VirtualOS, argv[0])
	if err != nil {
		s.incorrectCommand(argv, err)
		return nil, false
	}

	cmd = &exec.Cmd{
		Path:   path,
		Args:   argv,
		Env:    s.VirtualOS.Environ(),
		Stdin:  vos.UnwrapReader(s.VirtualOS.Stdin()),
		Stdout: s.VirtualOS.Stdout(),
		Stderr: s.VirtualOS.Stderr(),
	}
	if wd, err := s.VirtualOS.Getwd(); err == nil {
		cmd.Dir = wd
	}
	return cmd, true
}

func (s *Shell) incorrectCommand(argv []string, err error) {
	s.errorf("cshell: incorrect command: %s\n", argv[0])
	s.Log.Printf("%s: %v", argv[0], err)
	s.Events.LogUnknownCommand(argv, err)
}

// start launches the job. Running out of processes or memory is fatal, any
// other failure prints a message and ok is false.
func (s *Shell) start(j *job) (ok bool, err error) {
	err = j.cmd.Start()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.ENOMEM):
		return false, fmt.Errorf("%w: %s: %v", ErrSpawn, j.argv[0], err)
	default:
		s.incorrectCommand(j.argv, err)
		return false, nil
	}
}

// openRedirect opens the file a command's output is redirected to.
func (s *Shell) openRedirect(target string) (io.WriteCloser, error) {
	wd, _ := s.VirtualOS.Getwd()
	return s.Fs.OpenFile(resolve(wd, target), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

// executeCommand runs frame, reading from the pipe if one is pending. In the
// background the started job is returned without waiting, otherwise the
// command's exit status is returned. The pipeline is always reset.
func (s *Shell) executeCommand(frame *shell.CommandFrame, directive shell.Directive, pctx *PipelineContext, background bool) (*job, int, error) {
	defer pctx.Reset()

	if frame.Empty() {
		return nil, 0, nil
	}

	var closers []io.Closer
	var stdout io.Writer
	if frame.RedirectTarget != "" {
		out, err := s.openRedirect(frame.RedirectTarget)
		if err != nil {
			s.errorf("cshell: %s: %v\n", frame.RedirectTarget, err)
			return nil, 1, nil
		}
		closers = append(closers, out)
		stdout = out
	}
	closeAll := func() {
		for _, c := range closers {
			c.Close()
		}
	}

	cmd, ok := s.command(frame)
	if !ok {
		closeAll()
		return nil, 1, nil
	}
	if stdout != nil {
		cmd.Stdout = stdout
	}
	if pctx.Pending() {
		cmd.Stdin = pctx.read
	}

	j := &job{cmd: cmd, argv: cmd.Args, closers: closers}
	if started, err := s.start(j); !started {
		closeAll()
		return nil, 1, err
	}
	s.Log.Printf("started %q (pid %d, %s)", j.argv, cmd.Process.Pid, directive)

	if background {
		return j, 0, nil
	}

	status := j.wait()
	s.Events.LogRunCommand(j.argv, directive.String(), status)
	return nil, status, nil
}

// executePipeStage starts frame writing to a new pipe that the next command
// reads from. An already pending pipe is discarded first. If frame can't be
// started the next command reads an empty pipe.
func (s *Shell) executePipeStage(frame *shell.CommandFrame, pctx *PipelineContext) error {
	if frame.Empty() {
		return nil
	}
	if pctx.Pending() {
		pctx.Reset()
	}

	if err := pctx.open(); err != nil {
		return err
	}
	// The child holds its own copy of the write end, the next reader sees
	// EOF once the child exits.
	defer func() {
		pctx.write.Close()
		pctx.write = nil
		pctx.pending = true
	}()

	cmd, ok := s.command(frame)
	if !ok {
		return nil
	}
	cmd.Stdout = pctx.write

	j := &job{cmd: cmd, argv: cmd.Args}
	if started, err := s.start(j); !started {
		return err
	}
	s.Log.Printf("started %q (pid %d, pipeline)", j.argv, cmd.Process.Pid)

	pctx.producer = j
	return nil
}
