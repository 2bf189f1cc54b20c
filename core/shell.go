package core

import (
	"context"
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"strings"
	"sync/atomic"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/cshell/core/config"
	"github.com/josephlewis42/cshell/core/logger"
	"github.com/josephlewis42/cshell/core/shell"
	"github.com/josephlewis42/cshell/core/vos"
	"github.com/spf13/afero"
)

const (
	EnvHome = "HOME"
	EnvPath = "PATH"
)

// ErrLineRead is returned from Run when input can't be read, including when
// it has been closed.
var ErrLineRead = errors.New("could not read line")

// LineReader reads lines of input for the shell.
type LineReader interface {
	SetPrompt(prompt string)
	Readline() (string, error)
	Close() error
}

var _ LineReader = (*readline.Instance)(nil)

type Shell struct {
	VirtualOS vos.VOS
	Readline  LineReader
	Config    *config.Configuration
	// Events receives the commands the shell runs.
	Events *logger.SessionLogger
	// Log receives diagnostic messages.
	Log *log.Logger
	// Fs is used to open redirection targets.
	Fs afero.Fs

	// Quit is set once the shell should stop reading lines.
	Quit bool

	parser      shell.Parser
	colors      *ColorPrinter
	lastRet     int
	interrupted int32
}

// NewShell creates a shell reading lines from the virtual OS's stdin.
func NewShell(virtualOS vos.VOS, configuration *config.Configuration) (*Shell, error) {
	cfg := &readline.Config{
		Stdin:  readline.NewCancelableStdin(virtualOS.Stdin()),
		Stdout: virtualOS.Stdout(),
		Stderr: virtualOS.Stderr(),

		FuncIsTerminal: func() bool {
			return vos.IsTerminal(virtualOS.Stdin()) && vos.IsTerminal(virtualOS.Stdout())
		},
	}

	if err := cfg.Init(); err != nil {
		return nil, err
	}

	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}

	return newShell(virtualOS, configuration, rl), nil
}

func newShell(virtualOS vos.VOS, configuration *config.Configuration, lr LineReader) *Shell {
	return &Shell{
		VirtualOS: virtualOS,
		Readline:  lr,
		Config:    configuration,
		Events:    logger.NewNopLogger().Sessionless(),
		Log:       log.New(ioutil.Discard, "", 0),
		Fs:        afero.NewOsFs(),
		parser: shell.Parser{
			MaxArguments: configuration.MaxArguments,
			MaxOptions:   configuration.MaxOptions,
		},
		colors: NewColorPrinter(configuration.Color, virtualOS),
	}
}

// LastStatus returns the exit status of the last command to complete.
func (s *Shell) LastStatus() int {
	return s.lastRet
}

// Interrupt asks the shell to redraw its prompt. It's safe to call from any
// goroutine.
func (s *Shell) Interrupt() {
	atomic.StoreInt32(&s.interrupted, 1)
}

func (s *Shell) prompt() string {
	wd, err := s.VirtualOS.Getwd()
	if err != nil {
		wd = "?"
	}
	return s.colors.Sprintf(ColorBoldBlue, "%s", wd) + s.Config.PromptSuffix
}

func (s *Shell) errorf(format string, a ...interface{}) {
	fmt.Fprint(s.VirtualOS.Stderr(), s.colors.Sprintf(ColorBoldRed, format, a...))
}

// Run reads and executes lines until the exit builtin is run, input fails
// or ctx is canceled.
func (s *Shell) Run(ctx context.Context) error {
	wd, _ := s.VirtualOS.Getwd()
	s.Events.LogSessionStart(wd)

	if s.Config.Motd != "" {
		fmt.Fprint(s.VirtualOS.Stdout(), s.colors.Sprintf(ColorBoldGreen, "%s", s.Config.Motd))
	}

	for {
		if err := ctx.Err(); err != nil {
			s.Events.LogSessionEnd("canceled")
			return err
		}

		if atomic.SwapInt32(&s.interrupted, 0) == 1 {
			fmt.Fprintln(s.VirtualOS.Stdout())
		}

		s.Readline.SetPrompt(s.prompt())
		line, err := s.Readline.Readline()
		switch {
		case err == readline.ErrInterrupt:
			continue
		case err != nil:
			s.Events.LogSessionEnd("input closed")
			return fmt.Errorf("%w: %v", ErrLineRead, err)
		}

		if err := s.RunLine(line); err != nil {
			s.Events.LogSessionEnd(err.Error())
			return err
		}
		if s.Quit {
			s.Events.LogSessionEnd("exit")
			return nil
		}
	}
}

// RunLine executes every command frame on line. Background commands are
// waited for before it returns unless the shell is quitting. Only failures
// that should end the shell are returned.
func (s *Shell) RunLine(line string) error {
	line = strings.TrimSpace(line)

	pctx := &PipelineContext{
		OnReap: func(argv []string, status int) {
			s.Events.LogRunCommand(argv, shell.Pipeline.String(), status)
		},
	}
	defer pctx.Reset()

	var background []*job
	cursor := shell.NewCursor(line)
	for {
		frame, directive, err := s.parser.Parse(cursor)
		if err != nil {
			frame.Release()
			s.errorf("cshell: %v\n", err)
			s.Events.LogParseError(line, err)
			break
		}
		if directive == shell.Exception {
			frame.Release()
			break
		}

		j, err := s.dispatch(frame, directive, pctx)
		frame.Release()
		if j != nil {
			background = append(background, j)
		}
		if err != nil {
			return err
		}
		if s.Quit {
			return nil
		}
		if !directive.Continues() {
			break
		}
	}

	for _, j := range background {
		status := j.wait()
		s.Events.LogRunCommand(j.argv, shell.Parallel.String(), status)
	}
	return nil
}

// dispatch runs a single frame according to its directive. Builtins run in
// the shell regardless of the directive.
func (s *Shell) dispatch(frame *shell.CommandFrame, directive shell.Directive, pctx *PipelineContext) (*job, error) {
	if builtin, ok := AllBuiltins[frame.Command]; ok {
		argv := frame.Argv()
		s.lastRet = builtin.Main(s, argv)
		s.Events.LogBuiltin(argv, s.lastRet)
		// Builtins don't read stdin, drop the pipe so the next command doesn't.
		pctx.Reset()
		return nil, nil
	}

	switch directive {
	case shell.Parallel:
		j, _, err := s.executeCommand(frame, directive, pctx, true)
		return j, err
	case shell.Pipeline:
		return nil, s.executePipeStage(frame, pctx)
	default:
		_, status, err := s.executeCommand(frame, directive, pctx, false)
		s.lastRet = status
		return nil, err
	}
}
