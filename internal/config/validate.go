package config

import (
	"fmt"

	aceerrors "github.com/aceflow-ai/aceflow/internal/errors"
)

// validLogLevels are the accepted logging.level values.
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks a resolved configuration for invalid values.
// Returns ErrConfigNil for a nil config and ErrConfigInvalid otherwise.
func Validate(cfg *Config) error {
	if cfg == nil {
		return aceerrors.ErrConfigNil
	}

	if cfg.Project.DefaultMode == "" {
		return fmt.Errorf("%w: project.default_mode is empty", aceerrors.ErrConfigInvalid)
	}

	if cfg.Storage.ResultsDir == "" {
		return fmt.Errorf("%w: storage.results_dir is empty", aceerrors.ErrConfigInvalid)
	}
	if cfg.Storage.LockTimeout <= 0 {
		return fmt.Errorf("%w: storage.lock_timeout must be positive, got %s", aceerrors.ErrConfigInvalid, cfg.Storage.LockTimeout)
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("%w: logging.level %q (want trace, debug, info, warn, or error)", aceerrors.ErrConfigInvalid, cfg.Logging.Level)
	}

	return nil
}
