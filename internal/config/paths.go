package config

import (
	"os"
	"path/filepath"

	"github.com/aceflow-ai/aceflow/internal/constants"
	"github.com/aceflow-ai/aceflow/internal/errors"
)

// GlobalConfigDir returns the global AceFlow directory. ACEFLOW_HOME
// overrides the default of ~/.aceflow.
func GlobalConfigDir() (string, error) {
	if home := os.Getenv("ACEFLOW_HOME"); home != "" {
		return home, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get user home directory")
	}
	return filepath.Join(home, constants.AceflowHome), nil
}

// GlobalLogDir returns the directory for the rotating CLI log file.
func GlobalLogDir() (string, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.LogsDir), nil
}

// ProjectConfigPath returns the project config file path for the project
// rooted at root.
func ProjectConfigPath(root string) string {
	return filepath.Join(root, constants.ProjectDir, constants.ConfigFileName)
}

// CatalogPath returns the catalog override file path for the project rooted
// at root.
func CatalogPath(root string) string {
	return filepath.Join(root, constants.ProjectDir, constants.CatalogFileName)
}
