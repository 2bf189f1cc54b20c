package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/josephlewis42/cshell/core/config"
	"github.com/josephlewis42/cshell/core/ttylog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	fixNewlines   bool
	idleTimeLimit time.Duration
)

var logsCmd = &cobra.Command{
	Use:     "logs",
	Aliases: []string{"log"},
	Short:   "Explore recorded terminal sessions.",
	Long: `Explore recorded terminal sessions.

Recordings are named by file name or session ID and looked up in the
session_logs directory under --config. Anything else is read as a path.`,
}

var listLogsCommand = &cobra.Command{
	Use:   "list",
	Short: "List the recorded sessions.",
	Args:  cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.HasDir() {
			return fmt.Errorf("%w: pass --config", config.ErrNoConfigDir)
		}
		entries, err := cfg.ListSessionLogs()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSIZE\tMODIFIED")
		for _, entry := range entries {
			fmt.Fprintf(w, "%s\t%d\t%s\n", entry.Name(), entry.Size(), entry.ModTime().Format(time.RFC3339))
		}
		return w.Flush()
	},
}

// playCommand replays a recorded session
var playCommand = &cobra.Command{
	Use:   "play SESSION",
	Short: "Replay a recorded session in the terminal.",
	Long:  `Plays a recorded session back to the current terminal with its original timing.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sink := ttylog.NewClientOutput(cmd.OutOrStdout())
		sink = ttylog.NewRealTimePlayback(idleTimeLimit, sink)
		return replayRecording(cmd, args[0], sink)
	},
}

// catCommand prints a recorded session without pauses
var catCommand = &cobra.Command{
	Use:   "cat SESSION",
	Short: "Print the output of a recorded session.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replayRecording(cmd, args[0], ttylog.NewClientOutput(cmd.OutOrStdout()))
	},
}

// asciicastCmd converts a recording to the asciicast format
var asciicastCmd = &cobra.Command{
	Use:   "asciicast SESSION > OUTPUT.cast",
	Short: "Convert a recorded session to asciicast (asciinema) format.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return replayRecording(cmd, args[0], ttylog.NewAsciicastLogSink(cmd.OutOrStdout()))
	},
}

func replayRecording(cmd *cobra.Command, ref string, sink ttylog.LogSink) error {
	cmd.SilenceUsage = true

	fd, name, err := openRecording(ref)
	if err != nil {
		return err
	}
	defer fd.Close()

	if fixNewlines {
		sink = ttylog.NewCRLFAdapter(sink)
	}
	return ttylog.Replay(createLogSource(name, fd), sink)
}

// openRecording opens a recording from the configured session_logs
// directory, falling back to treating ref as a path.
func openRecording(ref string) (afero.File, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}

	if cfg.HasDir() {
		name, err := cfg.FindSessionLog(ref)
		switch {
		case err == nil:
			fd, err := cfg.OpenSessionLog(name)
			return fd, name, err
		case !errors.Is(err, fs.ErrNotExist):
			return nil, "", err
		}
	}

	fd, err := afero.NewOsFs().Open(ref)
	return fd, ref, err
}

func createLogSource(name string, r io.Reader) ttylog.LogSource {
	switch strings.TrimPrefix(filepath.Ext(name), ".") {
	case ttylog.AsciicastFileExt:
		return ttylog.NewAsciicastLogSource(r)
	default:
		return ttylog.NewUMLLogSource(r)
	}
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(listLogsCommand, playCommand, catCommand, asciicastCmd)

	for _, cmd := range []*cobra.Command{playCommand, asciicastCmd, catCommand} {
		cmd.Flags().BoolVar(&fixNewlines, "crlf", false, "Convert bare newlines to CRLF, for sessions recorded without a terminal.")
	}

	playCommand.Flags().DurationVarP(&idleTimeLimit, "idle-time-limit", "i", 3*time.Second, "Maximum time output can be idle. (e.g. 3s, 2m, 100ms)")
}
