package core

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

// ShellBuiltin is a command that runs inside the shell process. args[0] is
// the name of the builtin.
type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// showHelp prints usage and returns true if -h or --help was given. Any
// other option token is left to the builtin, which ignores it.
func showHelp(s *Shell, opts *getopt.Set, args []string, description string) bool {
	requested := false
	for _, arg := range args[1:] {
		if arg == "-h" || arg == "--help" {
			requested = true
			break
		}
	}
	if !requested {
		return false
	}

	w := s.VirtualOS.Stdout()
	opts.BoolLong("help", 'h', "show help and exit")
	opts.SetProgram(args[0])
	opts.PrintUsage(w)
	fmt.Fprintln(w, description)
	return true
}

// operands returns the tokens after the builtin's name that aren't options.
func operands(args []string) []string {
	var out []string
	for _, arg := range args[1:] {
		if strings.HasPrefix(arg, "-") {
			continue
		}
		out = append(out, arg)
	}
	return out
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	opts := getopt.New()
	opts.SetParameters("[dir]")
	if showHelp(s, opts, args, "Change the shell working directory, HOME if no dir is given.") {
		return 0
	}

	dirs := operands(args)

	var target string
	switch {
	case len(dirs) == 0:
		target = s.VirtualOS.Getenv(EnvHome)
		if target == "" {
			return 0
		}
	case s.Config.AbsoluteCd && path.IsAbs(dirs[0]):
		target = dirs[0]
	default:
		wd, err := s.VirtualOS.Getwd()
		if err != nil {
			fmt.Fprintf(s.VirtualOS.Stderr(), "%s: %v\n", args[0], err)
			return 1
		}
		// Joined without cleaning so ".." is resolved by the OS.
		target = wd + "/" + dirs[0]
	}

	if err := s.VirtualOS.Chdir(target); err != nil {
		fmt.Fprintf(s.VirtualOS.Stderr(), "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// Exit quits the shell, whatever other arguments it's given.
func Exit(s *Shell, args []string) int {
	if showHelp(s, getopt.New(), args, "Exit the shell.") {
		return 0
	}

	if s.Config.Farewell != "" {
		fmt.Fprintln(s.VirtualOS.Stdout(), s.Config.Farewell)
	}
	s.Quit = true
	return 0
}

// Help lists the builtins, or shows help for the named builtins.
func Help(s *Shell, args []string) int {
	opts := getopt.New()
	opts.SetParameters("[name...]")
	if showHelp(s, opts, args, "Display information about builtin commands.") {
		return 0
	}

	if topics := operands(args); len(topics) > 0 {
		status := 0
		for _, name := range topics {
			builtin, ok := AllBuiltins[name]
			if !ok {
				fmt.Fprintf(s.VirtualOS.Stderr(), "%s: no help topics match %q\n", args[0], name)
				status = 1
				continue
			}
			builtin.Main(s, []string{name, "--help"})
		}
		return status
	}

	w := s.VirtualOS.Stdout()
	fmt.Fprintln(w, "These shell commands are defined internally.  Type `help' to see this list.")
	fmt.Fprintln(w, "Type `help name' to find out more about the function `name'.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands are separated by && (run in the background), ## (run in order)")
	fmt.Fprintln(w, "or | (pipe output to the next command). Use > file to redirect output.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w)

	for _, name := range BuiltinNames() {
		fmt.Fprintln(w, name)
	}

	return 0
}

// BuiltinNames returns the sorted names of all builtins.
func BuiltinNames() []string {
	var builtins []string
	for k := range AllBuiltins {
		builtins = append(builtins, k)
	}
	sort.Strings(builtins)
	return builtins
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
