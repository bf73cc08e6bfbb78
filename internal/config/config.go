// SPDX-License-Identifier: MPL-2.0

// Package config loads the optional user-global CLI configuration.
// Every value has a default, so a missing config file is never an
// error; the file only overrides defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"

	"uniweb-cli/internal/issue"
)

const (
	// AppName is the application name, also the config directory name.
	AppName = "uniweb"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
)

// Config holds the user-global settings.
type Config struct {
	// RegistryURL is the base URL of the hosted registry service.
	RegistryURL string `mapstructure:"registry_url"`
	// ServePort is the default port for the local serve command.
	ServePort int `mapstructure:"serve_port"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		RegistryURL: "https://registry.uniweb.app",
		ServePort:   4350,
	}
}

// configDirOverride allows tests to redirect the config directory.
var configDirOverride string

// SetConfigDirOverride redirects config loading to the given directory.
// Pass an empty string to restore the platform default. Test-only.
func SetConfigDirOverride(dir string) {
	configDirOverride = dir
}

// ConfigDir returns the uniweb configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load reads the config file if present and merges it over the
// defaults. A missing file yields the defaults.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("registry_url", defaults.RegistryURL)
	v.SetDefault("serve_port", defaults.ServePort)

	cfgDir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileExt)
	v.AddConfigPath(cfgDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)).
				WithSuggestion("Check that the file contains valid TOML").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, issue.WrapWithOperation(err, "parse configuration")
	}
	return &cfg, nil
}
