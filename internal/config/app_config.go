// Package config loads layered application configuration and writes the default template.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/temirov/marginal/internal/utils"
)

// LoadOptions controls how application configuration is discovered.
// A nil Filesystem reads from the operating system filesystem.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
	Filesystem       afero.Fs
}

// ApplicationConfiguration holds command defaults read from configuration files.
type ApplicationConfiguration struct {
	Tree   TreeConfiguration   `mapstructure:"tree"`
	Editor EditorConfiguration `mapstructure:"editor"`
	Serve  ServeConfiguration  `mapstructure:"serve"`
}

// TreeConfiguration configures the tree command.
type TreeConfiguration struct {
	Format string `mapstructure:"format"`
}

// EditorConfiguration configures document presentation.
type EditorConfiguration struct {
	ViewMode string              `mapstructure:"view_mode"`
	Render   RenderConfiguration `mapstructure:"render"`
}

// RenderConfiguration controls markdown to HTML rendering.
type RenderConfiguration struct {
	HardWraps  *bool `mapstructure:"hard_wraps"`
	UnsafeHTML *bool `mapstructure:"unsafe_html"`
}

// ServeConfiguration configures the command bridge.
type ServeConfiguration struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoadApplicationConfiguration loads configuration from global and local files.
// Local values override global ones; absent files are skipped.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	filesystem := options.Filesystem
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(filesystem, globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(filesystem, localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath
		}
		return filepath.Join(workingDirectory, explicitPath)
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName)
}

func loadConfigurationFromPath(filesystem afero.Fs, path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := filesystem.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetFs(filesystem)
	reader.SetConfigFile(path)
	reader.SetConfigType(utils.ConfigFileType)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.Tree.Format != "" {
		result.Tree.Format = override.Tree.Format
	}
	result.Editor = result.Editor.merge(override.Editor)
	result.Serve = result.Serve.merge(override.Serve)
	return result
}

func (config EditorConfiguration) merge(override EditorConfiguration) EditorConfiguration {
	result := config
	if override.ViewMode != "" {
		result.ViewMode = override.ViewMode
	}
	if override.Render.HardWraps != nil {
		result.Render.HardWraps = cloneBool(override.Render.HardWraps)
	}
	if override.Render.UnsafeHTML != nil {
		result.Render.UnsafeHTML = cloneBool(override.Render.UnsafeHTML)
	}
	return result
}

func (config ServeConfiguration) merge(override ServeConfiguration) ServeConfiguration {
	result := config
	if override.Address != "" {
		result.Address = override.Address
	}
	if override.ShutdownTimeout > 0 {
		result.ShutdownTimeout = override.ShutdownTimeout
	}
	return result
}

// BoolOrDefault dereferences value, returning fallback when it is unset.
func BoolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
