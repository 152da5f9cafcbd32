package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/temirov/marginal/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	configurationFileMode      = 0o600
	configurationDirectoryMode = 0o755

	errorWorkingDirectoryFmt    = "determine working directory for configuration: %w"
	errorHomeDirectoryFmt       = "resolve home directory for configuration: %w"
	errorCreateDirectoryFmt     = "create configuration directory %s: %w"
	errorUnsupportedTargetFmt   = "unsupported init target %q"
	errorConfigurationExistsFmt = "configuration file already exists at %s"
	errorInspectPathFmt         = "inspect configuration path %s: %w"
	errorWriteConfigurationFmt  = "write configuration to %s: %w"

	defaultConfigurationTemplate = `tree:
  format: json
editor:
  view_mode: rendered
  render:
    hard_wraps: false
    unsafe_html: false
serve:
  address: 127.0.0.1:0
  shutdown_timeout: 5s
`
)

// InitOptions controls how configuration initialization behaves.
// A nil Filesystem writes to the operating system filesystem.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
	Filesystem       afero.Fs
}

// InitializeConfiguration writes the default configuration to the requested target
// and returns the path it wrote.
func InitializeConfiguration(options InitOptions) (string, error) {
	filesystem := options.Filesystem
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	destinationPath, resolveError := resolveInitDestination(options)
	if resolveError != nil {
		return "", resolveError
	}

	exists, existsError := afero.Exists(filesystem, destinationPath)
	if existsError != nil {
		return "", fmt.Errorf(errorInspectPathFmt, destinationPath, existsError)
	}
	if exists && !options.Force {
		return "", fmt.Errorf(errorConfigurationExistsFmt, destinationPath)
	}

	destinationDirectory := filepath.Dir(destinationPath)
	if mkdirError := filesystem.MkdirAll(destinationDirectory, configurationDirectoryMode); mkdirError != nil {
		return "", fmt.Errorf(errorCreateDirectoryFmt, destinationDirectory, mkdirError)
	}
	if writeError := afero.WriteFile(filesystem, destinationPath, []byte(defaultConfigurationTemplate), configurationFileMode); writeError != nil {
		return "", fmt.Errorf(errorWriteConfigurationFmt, destinationPath, writeError)
	}
	return destinationPath, nil
}

func resolveInitDestination(options InitOptions) (string, error) {
	target := options.Target
	if target == "" {
		target = InitTargetLocal
	}
	switch target {
	case InitTargetLocal:
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf(errorWorkingDirectoryFmt, err)
			}
			workingDirectory = current
		}
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf(errorHomeDirectoryFmt, err)
		}
		return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName), nil
	default:
		return "", fmt.Errorf(errorUnsupportedTargetFmt, target)
	}
}
