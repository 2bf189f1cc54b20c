package shell

import "fmt"

// Tokens that separate command frames on a line.
const (
	ParallelToken    = "&&"
	SequentialToken  = "##"
	PipeToken        = "|"
	RedirectionToken = ">"
)

// Directive describes how a command frame relates to the one after it on the
// same line.
type Directive int

const (
	// Init means no frame has been parsed yet.
	Init Directive = iota
	// Parallel frames run without the shell waiting for them.
	Parallel
	// Sequential frames complete before the next frame starts.
	Sequential
	// Terminated marks the last frame on the line.
	Terminated
	// Pipeline frames feed their output into the next frame.
	Pipeline
	// Exception is returned for malformed input or when nothing is left.
	Exception
)

var directiveNames = map[Directive]string{
	Init:       "init",
	Parallel:   "parallel",
	Sequential: "sequential",
	Terminated: "terminated",
	Pipeline:   "pipeline",
	Exception:  "exception",
}

func (d Directive) String() string {
	if name, ok := directiveNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Directive(%d)", int(d))
}

// Continues reports whether more frames follow on the line.
func (d Directive) Continues() bool {
	switch d {
	case Parallel, Sequential, Pipeline:
		return true
	default:
		return false
	}
}

// CommandFrame is the parsed form of a single command on a line.
type CommandFrame struct {
	// Command is the name of the program to run, empty if the frame is
	// malformed.
	Command string
	// Options holds the tokens starting with "-" in the order they appeared.
	Options []string
	// Arguments holds positional tokens in the order they appeared. A
	// RedirectionToken placeholder marks where redirection started.
	Arguments []string
	// RedirectTarget is the file stdout is written to, if set.
	RedirectTarget string
}

// Empty reports whether the frame has no command and must not be executed.
func (f *CommandFrame) Empty() bool {
	return f == nil || f.Command == ""
}

// Argv builds the argument vector for the frame: the command, the options
// and then the arguments up to the first redirection placeholder.
func (f *CommandFrame) Argv() []string {
	if f.Empty() {
		return nil
	}

	argv := make([]string, 0, 1+len(f.Options)+len(f.Arguments))
	argv = append(argv, f.Command)
	argv = append(argv, f.Options...)
	for _, arg := range f.Arguments {
		if arg == RedirectionToken {
			break
		}
		argv = append(argv, arg)
	}
	return argv
}

// Release drops everything the frame holds. It's safe to call on nil.
func (f *CommandFrame) Release() {
	if f == nil {
		return
	}
	*f = CommandFrame{}
}

func (f *CommandFrame) String() string {
	if f == nil {
		return "<nil>"
	}
	return fmt.Sprintf("command=%q options=%q arguments=%q redirect=%q",
		f.Command, f.Options, f.Arguments, f.RedirectTarget)
}
