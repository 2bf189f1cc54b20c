package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"
	LogsDirName       = "session_logs"
	EventLogName      = "events.log"
)

const (
	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

// ErrNoConfigDir is returned when a file is requested from a configuration
// that wasn't loaded from a directory.
var ErrNoConfigDir = errors.New("configuration has no directory")

type Configuration struct {
	configFs afero.Fs

	Motd         string `json:"motd"`
	PromptSuffix string `json:"prompt_suffix"`
	Farewell     string `json:"farewell"`
	Color        string `json:"color" validate:"oneof=always auto never"`

	MaxArguments int `json:"max_arguments" validate:"gte=0,lte=65536"`
	MaxOptions   int `json:"max_options" validate:"gte=0,lte=65536"`

	AbsoluteCd bool `json:"absolute_cd"`

	EventLog    bool `json:"event_log"`
	SessionLogs bool `json:"session_logs"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// HasDir reports whether the configuration is backed by a directory that
// logs can be written to.
func (c *Configuration) HasDir() bool {
	return c.configFs != nil
}

func (c *Configuration) fs() (afero.Fs, error) {
	if c.configFs == nil {
		return nil, ErrNoConfigDir
	}
	return c.configFs, nil
}

// CreateSessionLog creates a terminal recording with the given name.
func (c *Configuration) CreateSessionLog(name string) (afero.File, error) {
	fs, err := c.fs()
	if err != nil {
		return nil, err
	}
	return fs.Create(filepath.Join(LogsDirName, name))
}

// ListSessionLogs returns the terminal recordings sorted by name.
func (c *Configuration) ListSessionLogs() ([]os.FileInfo, error) {
	fs, err := c.fs()
	if err != nil {
		return nil, err
	}

	var out []os.FileInfo
	entries, err := afero.ReadDir(fs, LogsDirName)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.Mode().IsRegular() {
			out = append(out, entry)
		}
	}
	return out, nil
}

// FindSessionLog resolves ref to the name of a terminal recording. ref is
// either the file name or the ID of the session that was recorded.
func (c *Configuration) FindSessionLog(ref string) (string, error) {
	entries, err := c.ListSessionLogs()
	if err != nil {
		return "", err
	}

	var matches []string
	for _, entry := range entries {
		name := entry.Name()
		if name == ref {
			return name, nil
		}
		if ref != "" && strings.Contains(name, "-"+ref+".") {
			matches = append(matches, name)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("session log %q: %w", ref, os.ErrNotExist)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("session log %q is ambiguous: %s", ref, strings.Join(matches, ", "))
	}
}

// OpenSessionLog opens the terminal recording with the given name.
func (c *Configuration) OpenSessionLog(name string) (afero.File, error) {
	fs, err := c.fs()
	if err != nil {
		return nil, err
	}
	return fs.Open(filepath.Join(LogsDirName, name))
}

// OpenEventLog opens the event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	fs, err := c.fs()
	if err != nil {
		return nil, err
	}
	return fs.OpenFile(EventLogName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	fs, err := c.fs()
	if err != nil {
		return nil, err
	}
	return fs.OpenFile(EventLogName, os.O_RDONLY, 0600)
}

// Default returns the built-in configuration. It isn't backed by a
// directory so no logs are written.
func Default() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}
