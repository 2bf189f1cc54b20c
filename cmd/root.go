package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"io/ioutil"
	"log"
	"time"

	"github.com/josephlewis42/cshell/core"
	"github.com/josephlewis42/cshell/core/config"
	"github.com/josephlewis42/cshell/core/logger"
	"github.com/josephlewis42/cshell/core/ttylog"
	"github.com/josephlewis42/cshell/core/vos"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	verbose bool
)

// loadConfig reads the configuration from --config, or the defaults if it
// wasn't given.
func loadConfig() (*config.Configuration, error) {
	if cfgPath == "" {
		return config.Default(), nil
	}

	configuration, err := config.Load(afero.NewOsFs(), cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

func newDiagnosticLogger(cmd *cobra.Command) *log.Logger {
	var w io.Writer = ioutil.Discard
	if verbose {
		w = cmd.ErrOrStderr()
	}
	return log.New(w, "[cshell] ", 0)
}

type closers []io.Closer

func (c closers) Close() error {
	var lastErr error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i].Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// openSession sets up the event log and terminal recording for a session.
func openSession(cfg *config.Configuration, hostIO vos.VIO, diag *log.Logger) (*logger.SessionLogger, vos.VIO, io.Closer, error) {
	var toClose closers

	events := logger.NewNopLogger()
	if cfg.EventLog && cfg.HasDir() {
		fd, err := cfg.OpenEventLog()
		if err != nil {
			return nil, nil, nil, err
		}
		toClose = append(toClose, fd)
		events = logger.NewJSONLinesLogRecorder(fd)
		diag.Printf("Logging events to %s", config.EventLogName)
	}
	session := events.NewSession()

	vio := hostIO
	if cfg.SessionLogs && cfg.HasDir() {
		name := fmt.Sprintf("%s-%s.%s", time.Now().Format("20060102T150405"), session.SessionID(), ttylog.UMLFileExt)
		fd, err := cfg.CreateSessionLog(name)
		if err != nil {
			toClose.Close()
			return nil, nil, nil, err
		}
		toClose = append(toClose, fd)
		vio = ttylog.NewRecorder(hostIO, ttylog.NewUMLLogSink(fd), diag)
		session.LogOpenTTYLog(name)
		diag.Printf("Recording session to %s", name)
	}

	return session, vio, toClose, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cshell",
	Short: "A small interactive command shell",
	Long: `A small interactive command shell.

Commands on a line are separated by && (run in the background), ## (run in
order) or | (pipe output to the next command). "> file" redirects output.`,
	Args: cobra.ExactArgs(0),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		diag := newDiagnosticLogger(cmd)
		session, vio, toClose, err := openSession(cfg, vos.NewHostIO(), diag)
		if err != nil {
			return err
		}
		defer toClose.Close()

		sh, err := core.NewShell(vos.NewHostOS(vio), cfg)
		if err != nil {
			return err
		}
		defer sh.Readline.Close()
		sh.Events = session
		sh.Log = diag

		stop := core.WatchSignals(sh)
		defer stop()

		return sh.Run(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "configuration directory, built-in defaults are used if unset")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log diagnostics to stderr")
}
