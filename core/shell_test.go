package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abiosoft/readline"
	"github.com/josephlewis42/cshell/core/config"
	"github.com/josephlewis42/cshell/core/logger"
	"github.com/josephlewis42/cshell/core/vos/vostest"
	"github.com/stretchr/testify/assert"
)

type readResult struct {
	line string
	err  error
}

// scriptedReader returns canned lines then io.EOF.
type scriptedReader struct {
	results []readResult
	prompts []string
	closed  bool
}

func (r *scriptedReader) SetPrompt(prompt string) {
	r.prompts = append(r.prompts, prompt)
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.results) == 0 {
		return "", io.EOF
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next.line, next.err
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func lines(in ...string) []readResult {
	var out []readResult
	for _, line := range in {
		out = append(out, readResult{line: line})
	}
	return out
}

func testConfig() *config.Configuration {
	cfg := config.Default()
	cfg.Motd = ""
	cfg.Color = config.ColorNever
	return cfg
}

// newTestShell creates a shell running in a temporary directory that can
// start real programs.
func newTestShell(t *testing.T, cfg *config.Configuration) (*Shell, *vostest.TestOS) {
	t.Helper()

	virtOS := vostest.New(t.TempDir(), []string{"PATH=" + os.Getenv("PATH"), "HOME=/home/test"}, "")
	return newShell(virtOS, cfg, &scriptedReader{}), virtOS
}

func writeScript(t *testing.T, dir, name, contents string) {
	t.Helper()

	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0755); err != nil {
		t.Fatal(err)
	}
}

func TestRunLine_empty(t *testing.T) {
	for _, line := range []string{"", "   ", "\t \t"} {
		s, virtOS := newTestShell(t, testConfig())

		assert.Nil(t, s.RunLine(line))
		assert.Empty(t, virtOS.Out.String())
		assert.Empty(t, virtOS.Err.String())
	}
}

func TestRunLine_terminated(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())

	assert.Nil(t, s.RunLine("echo -n hello world"))
	assert.Equal(t, "hello world", virtOS.Out.String())
	assert.Equal(t, 0, s.LastStatus())
}

func TestRunLine_sequential(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())

	assert.Nil(t, s.RunLine("echo one ## echo two ## echo three"))
	assert.Equal(t, "one\ntwo\nthree\n", virtOS.Out.String())
}

func TestRunLine_sequentialStatus(t *testing.T) {
	s, _ := newTestShell(t, testConfig())

	assert.Nil(t, s.RunLine("true ## false"))
	assert.Equal(t, 1, s.LastStatus())

	assert.Nil(t, s.RunLine("false ## true"))
	assert.Equal(t, 0, s.LastStatus())
}

func TestRunLine_parallel(t *testing.T) {
	s, _ := newTestShell(t, testConfig())

	start := time.Now()
	assert.Nil(t, s.RunLine("sleep 0.5 && sleep 0.5"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, int64(elapsed), int64(500*time.Millisecond), "background commands are waited for")
	assert.Less(t, int64(elapsed), int64(900*time.Millisecond), "background commands run concurrently")
}

func TestRunLine_parallelDrainedAtEndOfLine(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())
	writeScript(t, virtOS.Wd, "late.sh", "#!/bin/sh\nsleep 0.2\necho late\n")

	assert.Nil(t, s.RunLine("./late.sh && echo early"))
	assert.Equal(t, "early\nlate\n", virtOS.Out.String())
}

func TestRunLine_redirectWithoutSpaces(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())

	assert.Nil(t, s.RunLine("ls>out.txt"))

	// The file is created before ls runs.
	contents, err := os.ReadFile(filepath.Join(virtOS.Wd, "out.txt"))
	assert.Nil(t, err)
	assert.Equal(t, "out.txt\n", string(contents))
	assert.Empty(t, virtOS.Out.String())
}

func TestRunLine_unknownCommand(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())

	assert.Nil(t, s.RunLine("definitely-not-a-command ## echo still running"))
	assert.Equal(t, "cshell: incorrect command: definitely-not-a-command\n", virtOS.Err.String())
	assert.Equal(t, "still running\n", virtOS.Out.String())
}

func TestRunLine_limits(t *testing.T) {
	cfg := testConfig()
	cfg.MaxArguments = 1
	cfg.MaxOptions = 1
	s, virtOS := newTestShell(t, cfg)

	assert.Nil(t, s.RunLine("echo one two"))
	assert.Equal(t, "cshell: echo: too many arguments\n", virtOS.Err.String())
	assert.Empty(t, virtOS.Out.String())

	virtOS.Err.Reset()
	assert.Nil(t, s.RunLine("echo -n -e one"))
	assert.Equal(t, "cshell: echo: too many options\n", virtOS.Err.String())

	virtOS.Err.Reset()
	assert.Nil(t, s.RunLine("echo one ## echo two three"))
	assert.Equal(t, "one\n", virtOS.Out.String(), "frames before the bad one still run")
	assert.Equal(t, "cshell: echo: too many arguments\n", virtOS.Err.String())
}

func TestRunLine_exit(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())

	assert.Nil(t, s.RunLine("exit ## echo after"))
	assert.True(t, s.Quit)
	assert.Equal(t, "Exiting shell...\n", virtOS.Out.String())
}

func TestRunLine_exitInsidePipeline(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())

	assert.Nil(t, s.RunLine("echo hi | exit"))
	assert.True(t, s.Quit)
	assert.Equal(t, "Exiting shell...\n", virtOS.Out.String())
}

func TestRunLine_pipeClosedAfterConsumer(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())

	assert.Nil(t, s.RunLine("echo leaked | true ## cat ## cat"))
	assert.Empty(t, virtOS.Out.String(), "later commands read the shell stdin, not the old pipe")
	assert.Equal(t, 0, s.LastStatus())
}

func TestRunLine_builtinDropsPipe(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())

	wd := virtOS.Wd
	assert.Nil(t, s.RunLine("echo hi | cd . ## cat"))
	assert.Empty(t, virtOS.Out.String(), "cat reads the empty shell stdin, not the pipe")
	assert.Equal(t, []string{wd + "/."}, virtOS.ChdirCalls)
}

func TestRunLine_events(t *testing.T) {
	s, _ := newTestShell(t, testConfig())

	var buf bytes.Buffer
	s.Events = logger.NewJSONLinesLogRecorder(&buf).NewSession()

	assert.Nil(t, s.RunLine("echo hi | cat ## nope-not-here ## sleep 0 && sh -c"))
	assert.Nil(t, s.RunLine("cd ## echo a b c > /nonexistent/dir/file"))

	var events []string
	var statuses []int
	assert.Nil(t, logger.ReadJSONLinesLog(&buf, func(le *logger.LogEntry) {
		events = append(events, le.Event+":"+le.GetString("directive"))
		statuses = append(statuses, int(le.GetNumber("status")))
	}))

	// The producer of a pipe is reaped after its consumer, background
	// commands at the end of the line.
	assert.Equal(t, []string{
		"run_command:sequential",
		"run_command:pipeline",
		"unknown_command:",
		"run_command:terminated",
		"run_command:parallel",
		"builtin:",
	}, events)
	assert.Equal(t, 2, statuses[3], "sh -c without a script is a usage error")
}

func TestRun(t *testing.T) {
	cfg := testConfig()
	cfg.Motd = "welcome\n"
	s, virtOS := newTestShell(t, cfg)
	reader := &scriptedReader{results: []readResult{
		{line: "echo hi"},
		{err: readline.ErrInterrupt},
		{line: "   "},
		{line: "exit"},
		{line: "echo never"},
	}}
	s.Readline = reader

	assert.Nil(t, s.Run(context.Background()))
	assert.Equal(t, "welcome\nhi\nExiting shell...\n", virtOS.Out.String())
	assert.Len(t, reader.prompts, 4)
	assert.Equal(t, virtOS.Wd+"$ ", reader.prompts[0])
}

func TestRun_eof(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())
	s.Readline = &scriptedReader{results: lines("echo hi")}

	err := s.Run(context.Background())
	assert.True(t, errors.Is(err, ErrLineRead))
	assert.Equal(t, "hi\n", virtOS.Out.String())
}

func TestRun_canceled(t *testing.T) {
	s, _ := newTestShell(t, testConfig())
	s.Readline = &scriptedReader{results: lines("echo hi")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, context.Canceled, s.Run(ctx))
}

func TestRun_interrupt(t *testing.T) {
	s, virtOS := newTestShell(t, testConfig())
	s.Interrupt()

	assert.True(t, errors.Is(s.Run(context.Background()), ErrLineRead))
	assert.Equal(t, "\n", virtOS.Out.String(), "an interrupt redraws the prompt on a new line")
}

func TestRun_promptFollowsCd(t *testing.T) {
	cfg := testConfig()
	cfg.PromptSuffix = " > "
	s, _ := newTestShell(t, cfg)
	reader := &scriptedReader{results: lines("cd sub", "exit")}
	s.Readline = reader

	assert.Nil(t, s.Run(context.Background()))
	assert.Equal(t, s.VirtualOS.(*vostest.TestOS).Wd+" > ", reader.prompts[1])
	assert.Contains(t, reader.prompts[1], "/sub > ")
}
