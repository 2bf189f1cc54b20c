package config

import (
	"log"
	"path/filepath"

	"github.com/spf13/afero"
)

// Initialize creates a configuration directory at dir holding the default
// configuration, existing files are left alone.
func Initialize(fs afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	logger.Printf("Initializing configuration in %q\n", dir)

	for _, subdir := range []string{dir, filepath.Join(dir, LogsDirName)} {
		logger.Printf("- Creating directory %q\n", subdir)
		if err := fs.MkdirAll(subdir, 0700); err != nil {
			return nil, err
		}
	}

	configPath := filepath.Join(dir, ConfigurationName)
	switch exists, err := afero.Exists(fs, configPath); {
	case err != nil:
		return nil, err
	case exists:
		logger.Printf("- Keeping existing %q\n", configPath)
	default:
		logger.Printf("- Writing %q\n", configPath)
		if err := afero.WriteFile(fs, configPath, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	}

	return Load(fs, dir)
}
