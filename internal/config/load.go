package config

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/errors"
)

// newViperInstance creates a Viper instance with standard AceFlow settings:
// the ACEFLOW_ environment prefix, key replacer, and built-in defaults.
func newViperInstance() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ACEFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults configures all default values on the Viper instance.
// Keys must match the yaml tag names exactly for proper mapping.
func setDefaults(v *viper.Viper) {
	v.SetDefault("project.default_mode", constants.FlowModeMinimal.String())

	v.SetDefault("gates.require_outputs", true)
	v.SetDefault("gates.skip_dependencies", false)

	v.SetDefault("storage.results_dir", constants.ResultsDir)
	v.SetDefault("storage.lock_timeout", constants.LockTimeout.String())

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", true)
}

// isConfigNotFoundError reports whether err is viper's missing-file error.
func isConfigNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var configNotFoundErr viper.ConfigFileNotFoundError
	return stderrors.As(err, &configNotFoundErr)
}

// Load reads configuration for the project rooted at root.
// Sources in precedence order (highest first):
//  1. Environment variables (ACEFLOW_* prefix)
//  2. Project config (<root>/.aceflow/config.yaml)
//  3. Global config (~/.aceflow/config.yaml)
//  4. Built-in defaults
//
// Missing config files are expected and skipped silently; only actual
// configuration problems return an error.
func Load(root string) (*Config, error) {
	globalPath := ""
	if dir, err := GlobalConfigDir(); err == nil {
		globalPath = filepath.Join(dir, constants.ConfigFileName)
	}
	return LoadFromPaths(ProjectConfigPath(root), globalPath)
}

// LoadFromPaths loads configuration from explicit file paths. Either path
// can be empty to skip that layer; the project layer merges over the global
// layer.
func LoadFromPaths(projectConfigPath, globalConfigPath string) (*Config, error) {
	v := newViperInstance()

	// Global config first (lower precedence)
	if globalConfigPath != "" && fileExists(globalConfigPath) {
		v.SetConfigFile(globalConfigPath)
		if err := v.ReadInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read global config: %s", globalConfigPath)
		}
	}

	// Project config merges over global
	if projectConfigPath != "" && fileExists(projectConfigPath) {
		v.SetConfigFile(projectConfigPath)
		if err := v.MergeInConfig(); err != nil && !isConfigNotFoundError(err) {
			return nil, errors.Wrapf(err, "failed to read project config: %s", projectConfigPath)
		}
	}

	return unmarshalAndValidate(v)
}

// unmarshalAndValidate unmarshals viper config into Config and validates it.
func unmarshalAndValidate(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viperDecoderOption()); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// viperDecoderOption configures mapstructure to decode time.Duration values
// from strings like "5s".
func viperDecoderOption() viper.DecoderConfigOption {
	return viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)
}

// fileExists reports whether the file at path exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
