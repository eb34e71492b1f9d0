// Package config loads checkrun configuration from .checkrun/config.yaml,
// merging file values over defaults and CLI flags over both.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultTarget is the file checked when no target is configured anywhere.
const DefaultTarget = "board_annotate.py"

// CheckConfig overrides how one external tool is invoked.
type CheckConfig struct {
	// Path is the executable path. Empty resolves the tool name on PATH.
	Path string `yaml:"path"`

	// Args are extra arguments inserted before the target path.
	Args []string `yaml:"args"`
}

// HistoryConfig configures the run-history store.
type HistoryConfig struct {
	// Enabled turns history recording on.
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite database location.
	DBPath string `yaml:"db_path"`

	// KeepDays is the retention window for run records. 0 keeps forever.
	KeepDays int `yaml:"keep_days"`
}

// Config represents checkrun configuration options.
type Config struct {
	// Target is the file path handed to each check tool.
	Target string `yaml:"target"`

	// Timeout is the maximum execution time per tool (0 = no limit).
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets logging verbosity (trace, debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Checks holds per-tool overrides keyed by task name.
	Checks map[string]CheckConfig `yaml:"checks"`

	// History configures run-history recording.
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Target:   DefaultTarget,
		Timeout:  10 * time.Minute,
		LogLevel: "info",
		Checks:   map[string]CheckConfig{},
		History: HistoryConfig{
			Enabled:  true,
			DBPath:   filepath.Join(".checkrun", "history.db"),
			KeepDays: 90,
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields defaults without error; a malformed file is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations come in as strings ("30s", "5m"), so unmarshal into a
	// shadow struct first.
	type yamlConfig struct {
		Target   string                 `yaml:"target"`
		Timeout  string                 `yaml:"timeout"`
		LogLevel string                 `yaml:"log_level"`
		Checks   map[string]CheckConfig `yaml:"checks"`
		History  HistoryConfig          `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Target != "" {
		cfg.Target = yamlCfg.Target
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	for name, check := range yamlCfg.Checks {
		cfg.Checks[name] = check
	}
	// Merge the history block field by field. Zero values are meaningful
	// here (enabled: false, keep_days: 0 keeps forever), so only fields
	// actually present in the YAML may override the defaults.
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if historySection, exists := rawMap["history"]; exists && historySection != nil {
			historyMap, _ := historySection.(map[string]interface{})

			if _, exists := historyMap["enabled"]; exists {
				cfg.History.Enabled = yamlCfg.History.Enabled
			}
			if _, exists := historyMap["db_path"]; exists {
				cfg.History.DBPath = yamlCfg.History.DBPath
			}
			if _, exists := historyMap["keep_days"]; exists {
				cfg.History.KeepDays = yamlCfg.History.KeepDays
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .checkrun/config.yaml in the
// specified directory, falling back to defaults when absent.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".checkrun", "config.yaml"))
}

// MergeWithFlags merges CLI flag values into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(target *string, timeout *time.Duration, logLevel *string, noHistory *bool) {
	if target != nil && *target != "" {
		c.Target = *target
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logLevel != nil && *logLevel != "" {
		c.LogLevel = *logLevel
	}
	if noHistory != nil && *noHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Target == "" {
		return fmt.Errorf("target cannot be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if c.History.Enabled {
		if c.History.DBPath == "" {
			return fmt.Errorf("history.db_path cannot be empty when history is enabled")
		}
		if c.History.KeepDays < 0 {
			return fmt.Errorf("history.keep_days must be >= 0, got %d", c.History.KeepDays)
		}
	}

	return nil
}
