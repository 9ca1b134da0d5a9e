// Package config provides layered configuration for AceFlow.
//
// Configuration is resolved in precedence order: environment variables
// (ACEFLOW_* prefix), the project config (.aceflow/config.yaml), the global
// config (~/.aceflow/config.yaml), and built-in defaults.
package config

import (
	"time"

	"github.com/aceflow-ai/aceflow/internal/constants"
)

// Config is the resolved AceFlow configuration.
type Config struct {
	// Project holds project-level defaults.
	Project ProjectConfig `mapstructure:"project" yaml:"project"`

	// Gates tunes the engine's transition gates.
	Gates GatesConfig `mapstructure:"gates" yaml:"gates"`

	// Storage tunes the state store.
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	// Logging controls CLI log output.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ProjectConfig holds project-level defaults.
type ProjectConfig struct {
	// DefaultMode is the flow mode used by init when none is given.
	DefaultMode string `mapstructure:"default_mode" yaml:"default_mode"`
}

// GatesConfig tunes the engine's transition gates.
type GatesConfig struct {
	// RequireOutputs enables the output-validation gate on stage completion.
	RequireOutputs bool `mapstructure:"require_outputs" yaml:"require_outputs"`

	// SkipDependencies disables the dependency gate on stage start.
	SkipDependencies bool `mapstructure:"skip_dependencies" yaml:"skip_dependencies"`
}

// StorageConfig tunes the state store.
type StorageConfig struct {
	// ResultsDir is the directory scanned for stage output artifacts,
	// relative to the project root.
	ResultsDir string `mapstructure:"results_dir" yaml:"results_dir"`

	// LockTimeout is how long state operations wait for the file lock.
	LockTimeout time.Duration `mapstructure:"lock_timeout" yaml:"lock_timeout"`
}

// LoggingConfig controls CLI log output.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `mapstructure:"level" yaml:"level"`

	// File enables the rotating log file under ~/.aceflow/logs.
	File bool `mapstructure:"file" yaml:"file"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			DefaultMode: constants.FlowModeMinimal.String(),
		},
		Gates: GatesConfig{
			RequireOutputs:   true,
			SkipDependencies: false,
		},
		Storage: StorageConfig{
			ResultsDir:  constants.ResultsDir,
			LockTimeout: constants.LockTimeout,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  true,
		},
	}
}
